package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"expense-tracker-bot-go/internal/models"
	"expense-tracker-bot-go/internal/store"

	"github.com/shopspring/decimal"
)

func writeLegacyFile(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to open legacy file: %v", err)
	}
	defer db.Close()

	// Oldest layout: no user, currency or metadata columns
	schema := `
		CREATE TABLE transactions (
			id INTEGER PRIMARY KEY,
			category TEXT,
			amount REAL,
			date TEXT,
			description TEXT,
			tags TEXT
		);
		INSERT INTO transactions VALUES (1, 'food', 250.5, '15-01-2025', 'lunch', 'office, team');
		INSERT INTO transactions VALUES (2, 'rent', 12000, '2025-01-01 00:00:00', NULL, NULL);
		INSERT INTO transactions VALUES (3, 'fuel', 500, 'last week', NULL, NULL);
		INSERT INTO transactions VALUES (4, '', 10, '2025-01-02', NULL, NULL);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create legacy schema: %v", err)
	}
	return path
}

func TestLegacySource_NormalizeAndCopy(t *testing.T) {
	ctx := context.Background()
	source, err := OpenLegacySource(ctx, writeLegacyFile(t))
	if err != nil {
		t.Fatalf("OpenLegacySource failed: %v", err)
	}
	defer source.Close()

	var (
		rows  []LegacyRow
		sizes []int
	)
	err = source.Batches(ctx, 3, func(batch []LegacyRow) error {
		sizes = append(sizes, len(batch))
		rows = append(rows, batch...)
		return nil
	})
	if err != nil {
		t.Fatalf("Batches failed: %v", err)
	}
	if len(sizes) != 2 || sizes[0] != 3 || sizes[1] != 1 {
		t.Errorf("Expected batches of 3 and 1, got %v", sizes)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected 4 legacy rows, got %d", len(rows))
	}
	if rows[0]["user_id"].Valid {
		t.Error("Expected missing user_id column to read as NULL")
	}

	var skipped []int
	service, cleanup := setupTestDb(t)
	defer cleanup()

	converted := make([]int64, 0)
	for i, row := range rows {
		tx, err := NormalizeLegacyRow(row, store.DefaultCurrency)
		if err != nil {
			if !errors.Is(err, store.ErrValidation) {
				t.Errorf("Row %d: expected ErrValidation, got %v", i, err)
			}
			skipped = append(skipped, i)
			continue
		}
		written, err := service.CopyRows(ctx, []models.Transaction{tx})
		if err != nil {
			t.Fatalf("CopyRows failed: %v", err)
		}
		if written != 1 {
			t.Errorf("Expected 1 row written, got %d", written)
		}
		converted = append(converted, tx.Id)
	}

	if len(skipped) != 2 || skipped[0] != 2 || skipped[1] != 3 {
		t.Errorf("Expected rows 2 and 3 to be skipped, got %v", skipped)
	}
	if len(converted) != 2 {
		t.Fatalf("Expected 2 converted rows, got %v", converted)
	}

	exported, err := service.ExportAll(ctx, 0)
	if err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}
	if len(exported) != 2 {
		t.Fatalf("Expected 2 exported rows, got %d", len(exported))
	}

	rent, food := exported[0], exported[1]
	if rent.Id != 2 || rent.Date.Format("2006-01-02") != "2025-01-01" {
		t.Errorf("Unexpected first row: id %d date %s", rent.Id, rent.Date.Format("2006-01-02"))
	}
	if food.Id != 1 || food.Date.Format("2006-01-02") != "2025-01-15" {
		t.Errorf("Unexpected second row: id %d date %s", food.Id, food.Date.Format("2006-01-02"))
	}
	if !food.Amount.Equal(decimal.RequireFromString("250.5")) {
		t.Errorf("Expected 250.5, got %s", food.Amount.String())
	}
	if len(food.Tags) != 2 || food.Tags[0] != "office" || food.Tags[1] != "team" {
		t.Errorf("Expected tags [office team], got %v", food.Tags)
	}
	if rent.Tags != nil {
		t.Errorf("Expected NULL tags, got %v", rent.Tags)
	}
	if food.Currency != "INR" || food.TransactionType != "expense" {
		t.Errorf("Expected defaults INR/expense, got %s/%s", food.Currency, food.TransactionType)
	}
	if food.Status == nil || *food.Status != "paid" {
		t.Errorf("Expected status paid, got %v", food.Status)
	}

	// Re-running the copy leaves existing ids alone
	again, err := NormalizeLegacyRow(rows[0], store.DefaultCurrency)
	if err != nil {
		t.Fatalf("NormalizeLegacyRow failed: %v", err)
	}
	written, err := service.CopyRows(ctx, []models.Transaction{again})
	if err != nil {
		t.Fatalf("CopyRows failed: %v", err)
	}
	if written != 0 {
		t.Errorf("Expected duplicate id to be ignored, wrote %d", written)
	}
}

func TestLegacySource_BatchesStopsOnError(t *testing.T) {
	ctx := context.Background()
	source, err := OpenLegacySource(ctx, writeLegacyFile(t))
	if err != nil {
		t.Fatalf("OpenLegacySource failed: %v", err)
	}
	defer source.Close()

	stop := errors.New("target unavailable")
	calls := 0
	err = source.Batches(ctx, 1, func([]LegacyRow) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Expected callback error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected scan to stop after first batch, got %d calls", calls)
	}

	if err := source.Batches(ctx, 0, func([]LegacyRow) error { return nil }); !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected ErrValidation for zero batch size, got %v", err)
	}
}

func TestOpenLegacySource_MissingFile(t *testing.T) {
	_, err := OpenLegacySource(context.Background(), filepath.Join(t.TempDir(), "missing", "legacy.db"))
	if !errors.Is(err, store.ErrConnection) {
		t.Errorf("Expected ErrConnection, got %v", err)
	}
}

func TestNormalizeLegacyRow_AmountOutOfRange(t *testing.T) {
	row := LegacyRow{
		"id":       {String: "9", Valid: true},
		"category": {String: "food", Valid: true},
		"amount":   {String: strings.Repeat("9", 400), Valid: true},
		"date":     {String: "2025-01-15", Valid: true},
	}
	if _, err := NormalizeLegacyRow(row, store.DefaultCurrency); !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}
