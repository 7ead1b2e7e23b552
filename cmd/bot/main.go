/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"expense-tracker-bot-go/internal/bot"
	"expense-tracker-bot-go/internal/common"
	"expense-tracker-bot-go/internal/config"
	"expense-tracker-bot-go/internal/conversation"
	"expense-tracker-bot-go/internal/telegram"

	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}
	if err := config.ValidateBot(cfg.Bot); err != nil {
		zap.L().Fatal("Invalid bot configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zap.L().Info("Starting Expense Tracker Bot", zap.String("driver", cfg.Database.Driver))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	client, err := telegram.NewClient(cfg.Bot)
	if err != nil {
		zap.L().Fatal("Failed to create telegram client", zap.Error(err))
	}

	conversations := conversation.NewRegistry(conversation.RegistryConfig{
		Store:           services.DbService,
		IdleTTL:         cfg.Conversation.IdleTTL,
		CleanupInterval: cfg.Conversation.CleanupInterval,
	})
	conversations.Start(ctx)

	handler := bot.NewHandler(bot.HandlerConfig{
		Store:         services.DbService,
		Transport:     client,
		Conversations: conversations,
		Categories:    common.CategoryNames(services.Categories),
		ListMaxLimit:  cfg.Bot.ListMaxLimit,
	})

	// Handlers outlive the signal so in-flight replies can finish.
	handlerCtx, cancelHandlers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelHandlers()
	dispatcher := bot.NewDispatcher(handlerCtx, handler, cfg.Bot.MaxConcurrency, bot.DefaultHandleTimeout)

	zap.L().Info("Bot running",
		zap.Int("max_concurrency", cfg.Bot.MaxConcurrency),
		zap.Duration("conversation_ttl", cfg.Conversation.IdleTTL))
	zap.L().Info("Press Ctrl+C to stop")

	if err := client.Run(ctx, dispatcher.Dispatch); err != nil {
		zap.L().Error("Polling stopped unexpectedly", zap.Error(err))
	}

	zap.L().Info("Shutdown signal received, draining in-flight messages...")

	done := make(chan struct{})
	go func() {
		if err := dispatcher.Wait(); err != nil {
			zap.L().Warn("Dispatcher returned error", zap.Error(err))
		}
		conversations.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Bot stopped gracefully")
	case <-time.After(shutdownTimeout):
		cancelHandlers()
		zap.L().Warn("Forced shutdown after timeout")
	}

	stats := services.DbService.Stats()
	zap.L().Info("Database pool statistics",
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int64("wait_count", stats.WaitCount),
		zap.Duration("wait_duration", stats.WaitDuration))
}
