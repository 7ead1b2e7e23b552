package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"expense-tracker-bot-go/internal/common"
	"expense-tracker-bot-go/internal/config"
	"expense-tracker-bot-go/internal/database"
	"expense-tracker-bot-go/internal/models"

	"go.uber.org/zap"
)

type migrationStats struct {
	read    int
	skipped int
	written int64
}

func main() {
	legacyPath := flag.String("legacy", "", "Path to the sqlite file written by the previous tracker (required)")
	batchSize := flag.Int("batch", 500, "Rows copied per database transaction")
	dryRun := flag.Bool("dry-run", false, "Normalize rows and report problems without writing")
	flag.Parse()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if *legacyPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: migrate -legacy <path to old sqlite file> [-batch N] [-dry-run]")
		os.Exit(2)
	}
	if *batchSize <= 0 {
		logger.Fatal("Batch size must be positive", zap.Int("batch", *batchSize))
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	source, err := database.OpenLegacySource(ctx, *legacyPath)
	if err != nil {
		logger.Fatal("Failed to open legacy database", zap.String("path", *legacyPath), zap.Error(err))
	}
	defer source.Close()

	var dbService *database.Service
	if !*dryRun {
		dbService, err = common.InitializeDatabaseOnly(ctx, cfg)
		if err != nil {
			logger.Fatal("Failed to initialize database", zap.Error(err))
		}
		defer dbService.Close()
	}

	var stats migrationStats
	err = source.Batches(ctx, *batchSize, func(rows []database.LegacyRow) error {
		stats.read += len(rows)

		transactions := make([]models.Transaction, 0, len(rows))
		for _, row := range rows {
			tx, err := database.NormalizeLegacyRow(row, cfg.Database.DefaultCurrency)
			if err != nil {
				stats.skipped++
				logger.Warn("Skipping legacy row",
					zap.String("id", row["id"].String),
					zap.Error(err))
				continue
			}
			transactions = append(transactions, tx)
		}

		if dbService == nil {
			return nil
		}
		written, err := dbService.CopyRows(ctx, transactions)
		if err != nil {
			return fmt.Errorf("batch ending at row %d: %w", stats.read, err)
		}
		stats.written += written
		return nil
	})
	if err != nil {
		logger.Fatal("Migration stopped",
			zap.Int("rows_read", stats.read),
			zap.Int64("written_so_far", stats.written),
			zap.Error(err))
	}

	printSummary(stats, *dryRun)
}

func printSummary(stats migrationStats, dryRun bool) {
	title := "MIGRATION COMPLETE"
	if dryRun {
		title = "MIGRATION DRY RUN"
	}
	common.PrintHeader(os.Stdout, title, common.DefaultWidth)
	fmt.Printf("Rows read:     %d\n", stats.read)
	fmt.Printf("Rows skipped:  %d\n", stats.skipped)
	if !dryRun {
		fmt.Printf("Rows written:  %d\n", stats.written)
		fmt.Printf("Already there: %d\n", int64(stats.read-stats.skipped)-stats.written)
	}
	common.PrintFooter(os.Stdout, "Done", common.DefaultWidth)
}
