package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"expense-tracker-bot-go/internal/bot"
	"expense-tracker-bot-go/internal/common"
	"expense-tracker-bot-go/internal/config"
	"expense-tracker-bot-go/internal/report"

	"go.uber.org/zap"
)

func main() {
	userId := flag.Int64("user", 0, "User id to report on (required)")
	period := flag.String("period", "month", "Summary period: today, week, month or all")
	limit := flag.Int("limit", bot.DefaultListLimit, "Number of recent transactions to show")
	exportFile := flag.String("export", "", "Also write the CSV export to this file")
	flag.Parse()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if *userId == 0 {
		fmt.Fprintln(os.Stderr, "Usage: report -user <id> [-period month] [-limit 10] [-export expenses.csv]")
		os.Exit(2)
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	resolved, start := bot.SummaryStart(*period, time.Now())
	totals, err := dbService.SummarizeByCategory(ctx, *userId, start)
	if err != nil {
		logger.Fatal("Failed to summarize transactions", zap.Error(err))
	}

	recent, err := dbService.ListRecent(ctx, *userId, bot.ListLimit(fmt.Sprint(*limit), cfg.Bot.ListMaxLimit))
	if err != nil {
		logger.Fatal("Failed to list transactions", zap.Error(err))
	}

	report.PrintReport(os.Stdout, report.Console{
		UserId: *userId,
		Period: resolved,
		Totals: totals,
		Recent: recent,
	})

	if *exportFile == "" {
		return
	}

	rows, err := dbService.ExportAll(ctx, *userId)
	if err != nil {
		logger.Fatal("Failed to export transactions", zap.Error(err))
	}
	data, err := report.ExportCSV(rows)
	if err != nil {
		logger.Warn("Nothing exported", zap.Error(err))
		return
	}
	if err := os.WriteFile(*exportFile, data, 0o600); err != nil {
		logger.Fatal("Failed to write export", zap.String("file", *exportFile), zap.Error(err))
	}
	logger.Info("Export written", zap.String("file", *exportFile), zap.Int("rows", len(rows)))
}
