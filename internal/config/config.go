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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"expense-tracker-bot-go/internal/models"
	"expense-tracker-bot-go/internal/store"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite3"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	pollTimeout, err := getEnvDuration("BOT_POLL_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	idleTTL, err := getEnvDuration("CONVERSATION_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	cleanupInterval, err := getEnvDuration("CONVERSATION_CLEANUP_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Driver:          strings.ToLower(getEnvString("DB_DRIVER", DriverPostgres)),
			Host:            os.Getenv("PGHOST"),
			Port:            getEnvInt("PGPORT", 5432),
			Name:            os.Getenv("PGDATABASE"),
			User:            os.Getenv("PGUSER"),
			Password:        os.Getenv("PGPASSWORD"),
			SSLMode:         getEnvString("PGSSLMODE", "require"),
			SqlitePath:      getEnvString("SQLITE_PATH", "data.db"),
			MinConns:        getEnvInt("DB_MIN_CONNS", 1),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 10),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			IdRetries:       getEnvInt("DB_ID_RETRIES", 3),
			DefaultCurrency: getEnvString("DEFAULT_CURRENCY", store.DefaultCurrency),
		},
		Bot: models.BotConfig{
			Token:          os.Getenv("BOT_TOKEN"),
			PollTimeout:    pollTimeout,
			MaxConcurrency: getEnvInt("BOT_MAX_CONCURRENCY", 16),
			ListMaxLimit:   getEnvInt("LIST_MAX_LIMIT", 100),
			CategoriesFile: getEnvString("CATEGORIES_FILE", "categories.yaml"),
			Debug:          getEnvBool("BOT_DEBUG", false),
		},
		Conversation: models.ConversationConfig{
			IdleTTL:         idleTTL,
			CleanupInterval: cleanupInterval,
		},
	}

	if err := ValidateDatabase(cfg.Database); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateDatabase checks that the credentials for the selected driver are present.
// Missing credentials are fatal at startup.
func ValidateDatabase(cfg models.DatabaseConfig) error {
	switch cfg.Driver {
	case DriverPostgres:
		var missing []string
		if cfg.Host == "" {
			missing = append(missing, "PGHOST")
		}
		if cfg.Name == "" {
			missing = append(missing, "PGDATABASE")
		}
		if cfg.User == "" {
			missing = append(missing, "PGUSER")
		}
		if cfg.Password == "" {
			missing = append(missing, "PGPASSWORD")
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: please set %s environment variables", store.ErrConfiguration, strings.Join(missing, ", "))
		}
	case DriverSqlite:
		if cfg.SqlitePath == "" {
			return fmt.Errorf("%w: SQLITE_PATH cannot be empty", store.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unsupported DB_DRIVER %q", store.ErrConfiguration, cfg.Driver)
	}

	if cfg.MaxConns <= 0 {
		return fmt.Errorf("%w: DB_MAX_CONNS must be positive, got %d", store.ErrConfiguration, cfg.MaxConns)
	}
	if cfg.MinConns < 0 || cfg.MinConns > cfg.MaxConns {
		return fmt.Errorf("%w: DB_MIN_CONNS must be between 0 and %d, got %d", store.ErrConfiguration, cfg.MaxConns, cfg.MinConns)
	}
	return nil
}

// ValidateBot checks the settings only the chat bot needs.
func ValidateBot(cfg models.BotConfig) error {
	if cfg.Token == "" {
		return fmt.Errorf("%w: bot token not provided, set BOT_TOKEN", store.ErrConfiguration)
	}
	if cfg.MaxConcurrency <= 0 {
		return fmt.Errorf("%w: BOT_MAX_CONCURRENCY must be positive, got %d", store.ErrConfiguration, cfg.MaxConcurrency)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid duration for %s: %q (%v)", store.ErrConfiguration, key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
