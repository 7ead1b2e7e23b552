package common

import (
	"context"
	"log"
	"os"
	"strings"

	"expense-tracker-bot-go/internal/database"
	"expense-tracker-bot-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService  *database.Service
	Categories []Category
}

// InitializeLogger installs a production zap logger as the global logger.
// LOG_LEVEL (debug, info, warn, error) overrides the default info level.
func InitializeLogger() (*zap.Logger, func()) {
	zapConfig := zap.NewProductionConfig()
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			log.Printf("Ignoring invalid LOG_LEVEL %q: %v\n", level, err)
		} else {
			zapConfig.Level = zap.NewAtomicLevelAt(parsed)
		}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database pool and loads the suggested
// categories. A missing categories file is not fatal.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	categories, err := LoadCategories(cfg.Bot.CategoriesFile)
	if err != nil {
		zap.L().Warn("Using built-in categories",
			zap.String("file", cfg.Bot.CategoriesFile),
			zap.Error(err))
		categories = DefaultCategories()
	}
	zap.L().Info("Loaded categories", zap.Int("count", len(categories)))

	return &Services{
		DbService:  dbService,
		Categories: categories,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service.
// Useful for operator tools that never talk to the chat API.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	return database.NewService(ctx, cfg.Database)
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
