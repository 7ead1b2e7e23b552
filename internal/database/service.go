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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"expense-tracker-bot-go/internal/models"
	"expense-tracker-bot-go/internal/store"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.ExpenseStore.
var _ store.ExpenseStore = (*Service)(nil)

// Service owns the connection pool. Every operation checks a connection out of
// the pool and returns it before the call completes, including on error paths.
type Service struct {
	db              *sql.DB
	dialect         dialect
	idRetries       int
	defaultCurrency string
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns <= 0 {
		return nil, fmt.Errorf("%w: max connections must be positive, got %d", store.ErrConfiguration, cfg.MaxConns)
	}
	if cfg.MinConns < 0 {
		return nil, fmt.Errorf("%w: min connections cannot be negative, got %d", store.ErrConfiguration, cfg.MinConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("%w: ping timeout must be positive, got %v", store.ErrConfiguration, cfg.PingTimeout)
	}

	dsn, err := dataSourceName(cfg)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Opening database",
		zap.String("driver", cfg.Driver),
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int("min_conns", cfg.MinConns),
		zap.Int("max_conns", cfg.MaxConns))

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open database: %w", store.ErrConnection, err)
	}

	// Pool bounds: checkouts beyond MaxConns block until a connection is released
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("%w: unable to ping database: %w", store.ErrConnection, err)
	}

	service := newService(db, d, cfg)
	if err := service.Initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, err
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func newService(db *sql.DB, d dialect, cfg models.DatabaseConfig) *Service {
	currency := cfg.DefaultCurrency
	if currency == "" {
		currency = store.DefaultCurrency
	}
	retries := cfg.IdRetries
	if retries < 0 {
		retries = 0
	}
	return &Service{
		db:              db,
		dialect:         d,
		idRetries:       retries,
		defaultCurrency: currency,
	}
}

// Initialize creates the transactions table and its index when absent.
func (s *Service) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		zap.L().Error("Failed to initialize schema", zap.String("dialect", s.dialect.name), zap.Error(err))
		return storageError("initialize schema", err)
	}
	zap.L().Debug("Schema ready", zap.String("dialect", s.dialect.name))
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, queryPing).Scan(&one); err != nil {
		return fmt.Errorf("%w: database health check failed: %w", store.ErrConnection, err)
	}
	return nil
}

// Stats reports pool usage.
func (s *Service) Stats() sql.DBStats {
	return s.db.Stats()
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func dataSourceName(cfg models.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case driverPostgres:
		if cfg.Host == "" || cfg.Name == "" || cfg.User == "" || cfg.Password == "" {
			return "", fmt.Errorf("%w: host, database name, user and password are required", store.ErrConnection)
		}
		parts := []string{
			"host=" + dsnValue(cfg.Host),
			fmt.Sprintf("port=%d", cfg.Port),
			"dbname=" + dsnValue(cfg.Name),
			"user=" + dsnValue(cfg.User),
			"password=" + dsnValue(cfg.Password),
		}
		if cfg.SSLMode != "" {
			parts = append(parts, "sslmode="+dsnValue(cfg.SSLMode))
		}
		if cfg.PingTimeout > 0 {
			parts = append(parts, fmt.Sprintf("connect_timeout=%d", int(cfg.PingTimeout.Round(time.Second)/time.Second)))
		}
		return strings.Join(parts, " "), nil
	case driverSqlite:
		if cfg.SqlitePath == "" {
			return "", fmt.Errorf("%w: sqlite path cannot be empty", store.ErrConfiguration)
		}
		return cfg.SqlitePath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("%w: unsupported database driver %q", store.ErrConfiguration, cfg.Driver)
	}
}

// dsnValue quotes a libpq keyword/value when it contains spaces or quotes.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
	return "'" + escaped + "'"
}
