package config

import (
	"errors"
	"testing"
	"time"

	"expense-tracker-bot-go/internal/models"
	"expense-tracker-bot-go/internal/store"
)

func setPostgresEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGDATABASE", "expenses")
	t.Setenv("PGUSER", "bot")
	t.Setenv("PGPASSWORD", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setPostgresEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("expected default port 5432, got %d", cfg.Database.Port)
	}
	if cfg.Database.SSLMode != "require" {
		t.Errorf("expected default sslmode require, got %q", cfg.Database.SSLMode)
	}
	if cfg.Database.MinConns != 1 || cfg.Database.MaxConns != 10 {
		t.Errorf("expected pool 1..10, got %d..%d", cfg.Database.MinConns, cfg.Database.MaxConns)
	}
	if cfg.Database.DefaultCurrency != "INR" {
		t.Errorf("expected INR, got %q", cfg.Database.DefaultCurrency)
	}
	if cfg.Conversation.IdleTTL != 30*time.Minute {
		t.Errorf("unexpected conversation ttl %v", cfg.Conversation.IdleTTL)
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	setPostgresEnv(t)
	t.Setenv("PGPASSWORD", "")
	t.Setenv("PGHOST", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if !errors.Is(err, store.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	setPostgresEnv(t)
	t.Setenv("DB_PING_TIMEOUT", "soon")

	if _, err := Load(); !errors.Is(err, store.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestLoad_Sqlite(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLITE3")
	t.Setenv("PGHOST", "")
	t.Setenv("SQLITE_PATH", "test.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Driver != DriverSqlite {
		t.Errorf("expected sqlite3 driver, got %q", cfg.Database.Driver)
	}
}

func TestValidateDatabase_PoolBounds(t *testing.T) {
	tests := []struct {
		name    string
		min     int
		max     int
		wantErr bool
	}{
		{"valid", 1, 10, false},
		{"zero min", 0, 1, false},
		{"zero max", 0, 0, true},
		{"min above max", 5, 2, true},
	}
	for _, tt := range tests {
		cfg := models.DatabaseConfig{Driver: DriverSqlite, SqlitePath: "x.db", MinConns: tt.min, MaxConns: tt.max}
		err := ValidateDatabase(cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: ValidateDatabase() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestValidateBot(t *testing.T) {
	if err := ValidateBot(models.BotConfig{MaxConcurrency: 1}); !errors.Is(err, store.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for missing token, got %v", err)
	}
	if err := ValidateBot(models.BotConfig{Token: "t", MaxConcurrency: 1}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
