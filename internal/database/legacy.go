package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"expense-tracker-bot-go/internal/models"
	"expense-tracker-bot-go/internal/normalize"
	"expense-tracker-bot-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// legacyColumns is the full column set; older files carry a prefix of it.
var legacyColumns = []string{
	"id", "user_id", "category", "amount", "currency", "date", "description", "tags",
	"merchant", "payment_method", "transaction_type", "is_recurring", "recurring_period",
	"status", "bill_due_date", "attachment_url", "created_at", "updated_at",
}

var legacyTimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999",
}

// LegacyRow holds one row of an old sqlite file, every column read as text.
type LegacyRow map[string]sql.NullString

// LegacySource reads transactions written by earlier versions of the tracker.
type LegacySource struct {
	db *sql.DB
}

func OpenLegacySource(ctx context.Context, path string) (*LegacySource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: legacy sqlite path cannot be empty", store.ErrConfiguration)
	}
	db, err := sql.Open(driverSqlite, "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open legacy database: %w", store.ErrConnection, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close legacy database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("%w: unable to ping legacy database: %w", store.ErrConnection, err)
	}
	return &LegacySource{db: db}, nil
}

func (l *LegacySource) Close() {
	if err := l.db.Close(); err != nil {
		zap.L().Warn("Failed to close legacy database", zap.Error(err))
	}
}

// Batches streams legacy rows in id order, handing fn at most size rows at a
// time. Columns missing from the file read as NULL. An error from fn stops
// the scan and is returned as is.
func (l *LegacySource) Batches(ctx context.Context, size int, fn func([]LegacyRow) error) error {
	if size <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", store.ErrValidation, size)
	}

	present, err := l.columns(ctx)
	if err != nil {
		return err
	}
	if !present["id"] {
		return fmt.Errorf("%w: legacy transactions table has no id column", store.ErrStorage)
	}

	projection := make([]string, 0, len(legacyColumns))
	for _, col := range legacyColumns {
		if present[col] {
			projection = append(projection, fmt.Sprintf("CAST(%s AS TEXT)", col))
		} else {
			projection = append(projection, "NULL")
		}
	}
	query := "SELECT " + strings.Join(projection, ", ") + " FROM transactions ORDER BY id"

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return storageError("read legacy transactions", err)
	}
	defer rows.Close()

	batch := make([]LegacyRow, 0, size)
	for rows.Next() {
		values := make([]sql.NullString, len(legacyColumns))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return storageError("scan legacy transaction", err)
		}
		row := make(LegacyRow, len(legacyColumns))
		for i, col := range legacyColumns {
			row[col] = values[i]
		}

		batch = append(batch, row)
		if len(batch) == size {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]LegacyRow, 0, size)
		}
	}
	if err := rows.Err(); err != nil {
		return storageError("iterate legacy transactions", err)
	}

	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

func (l *LegacySource) columns(ctx context.Context) (map[string]bool, error) {
	rows, err := l.db.QueryContext(ctx, sqliteTableInfo)
	if err != nil {
		return nil, storageError("read legacy table info", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageError("scan legacy table info", err)
		}
		present[strings.ToLower(name)] = true
	}
	return present, rows.Err()
}

// NormalizeLegacyRow converts a legacy row, applying the current column defaults.
func NormalizeLegacyRow(row LegacyRow, defaultCurrency string) (models.Transaction, error) {
	text := func(col string) string { return strings.TrimSpace(row[col].String) }
	optional := func(col string) *string {
		if v := row[col]; v.Valid && strings.TrimSpace(v.String) != "" {
			s := v.String
			return &s
		}
		return nil
	}

	id, err := strconv.ParseInt(text("id"), 10, 64)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%w: invalid id %q", store.ErrValidation, text("id"))
	}

	tx := models.Transaction{
		Id:              id,
		Category:        text("category"),
		Currency:        text("currency"),
		Description:     optional("description"),
		Tags:            normalize.CoerceTags(row["tags"].String),
		Merchant:        optional("merchant"),
		PaymentMethod:   optional("payment_method"),
		TransactionType: text("transaction_type"),
		RecurringPeriod: optional("recurring_period"),
		Status:          optional("status"),
		AttachmentUrl:   optional("attachment_url"),
		CreatedAt:       legacyTimestamp(text("created_at")),
		UpdatedAt:       legacyTimestamp(text("updated_at")),
	}
	if tx.Category == "" {
		return models.Transaction{}, fmt.Errorf("%w: transaction %d has no category", store.ErrValidation, id)
	}

	if v := text("user_id"); v != "" {
		if tx.UserId, err = strconv.ParseInt(v, 10, 64); err != nil {
			return models.Transaction{}, fmt.Errorf("%w: transaction %d has invalid user id %q", store.ErrValidation, id, v)
		}
	}

	if tx.Amount, err = decimal.NewFromString(text("amount")); err != nil {
		if tx.Amount, err = normalize.CoerceAmount(text("amount")); err != nil {
			return models.Transaction{}, fmt.Errorf("transaction %d: %w", id, err)
		}
	}
	if err := normalize.CheckAmountRange(tx.Amount); err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %d: %w", id, err)
	}

	if tx.Date, err = normalize.MigrationDate(text("date")); err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %d: %w", id, err)
	}
	if v := text("bill_due_date"); v != "" {
		if due, err := normalize.MigrationDate(v); err == nil {
			tx.BillDueDate = &due
		}
	}

	switch strings.ToLower(text("is_recurring")) {
	case "1", "true", "t", "yes":
		tx.IsRecurring = true
	}

	if tx.Currency == "" {
		tx.Currency = defaultCurrency
	}
	if tx.TransactionType == "" {
		tx.TransactionType = "expense"
	}
	if tx.Status == nil {
		paid := "paid"
		tx.Status = &paid
	}
	return tx, nil
}

func legacyTimestamp(text string) time.Time {
	for _, layout := range legacyTimestampLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CopyRows inserts rows keeping their ids, in one database transaction.
// Ids already present are left untouched. Returns the number of rows written.
func (s *Service) CopyRows(ctx context.Context, rows []models.Transaction) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageError("begin copy", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.dialect.copy)
	if err != nil {
		return 0, storageError("prepare copy", err)
	}
	defer stmt.Close()

	var written int64
	for _, row := range rows {
		tags, err := normalize.EncodeTags(row.Tags)
		if err != nil {
			return 0, fmt.Errorf("%w: transaction %d: %w", store.ErrValidation, row.Id, err)
		}

		var billDueDate *string
		if row.BillDueDate != nil {
			due := normalize.FormatDate(*row.BillDueDate)
			billDueDate = &due
		}

		result, err := stmt.ExecContext(ctx,
			row.Id, row.UserId, row.Category, row.Amount.String(), row.Currency,
			normalize.FormatDate(row.Date), row.Description, tags, row.Merchant,
			row.PaymentMethod, row.TransactionType, row.IsRecurring, row.RecurringPeriod,
			row.Status, billDueDate, row.AttachmentUrl,
			nullTime(row.CreatedAt), nullTime(row.UpdatedAt))
		if err != nil {
			return 0, storageError(fmt.Sprintf("copy transaction %d", row.Id), err)
		}
		if n, err := result.RowsAffected(); err == nil {
			written += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storageError("commit copy", err)
	}

	zap.L().Info("Copied transactions",
		zap.Int("batch", len(rows)),
		zap.Int64("written", written))
	return written, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
