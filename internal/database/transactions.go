package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"expense-tracker-bot-go/internal/models"
	"expense-tracker-bot-go/internal/normalize"
	"expense-tracker-bot-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Insert records a transaction and returns its id. Ids are assigned as
// max(id)+1; a collision with a concurrent insert is retried.
func (s *Service) Insert(ctx context.Context, params store.InsertParams) (int64, error) {
	category := strings.TrimSpace(params.Category)
	if category == "" {
		return 0, fmt.Errorf("%w: category cannot be empty", store.ErrValidation)
	}

	if err := normalize.CheckAmountRange(params.Amount); err != nil {
		return 0, err
	}

	date, err := normalize.ParseISODate(params.DateText)
	if err != nil {
		return 0, err
	}

	tags, err := normalize.EncodeTags(normalize.CoerceTags(params.Tags))
	if err != nil {
		return 0, fmt.Errorf("%w: unable to encode tags: %w", store.ErrValidation, err)
	}

	currency := strings.TrimSpace(params.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}

	zap.L().Debug("Inserting transaction",
		zap.Int64("user_id", params.UserId),
		zap.String("category", category),
		zap.String("amount", params.Amount.String()),
		zap.String("date", normalize.FormatDate(date)))

	var id int64
	for attempt := 0; ; attempt++ {
		err = s.db.QueryRowContext(ctx, s.dialect.insert,
			params.UserId, category, params.Amount.String(), currency,
			normalize.FormatDate(date), params.Description, tags).Scan(&id)
		if err == nil {
			break
		}

		err = storageError("insert transaction", err)
		if !errors.Is(err, store.ErrDuplicateId) || attempt >= s.idRetries {
			zap.L().Error("Failed to insert transaction",
				zap.Int64("user_id", params.UserId),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			return 0, err
		}
		zap.L().Warn("Transaction id collision, retrying",
			zap.Int64("user_id", params.UserId),
			zap.Int("attempt", attempt+1))
	}

	zap.L().Info("Transaction recorded",
		zap.Int64("id", id),
		zap.Int64("user_id", params.UserId),
		zap.String("category", category))
	return id, nil
}

// ListRecent returns up to limit transactions, newest date first, ties broken by id.
func (s *Service) ListRecent(ctx context.Context, userId int64, limit int) ([]models.RecentTransaction, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", store.ErrValidation, limit)
	}

	rows, err := s.db.QueryContext(ctx, queryListRecent, userId, limit)
	if err != nil {
		return nil, storageError("list recent transactions", err)
	}
	defer rows.Close()

	result := make([]models.RecentTransaction, 0, limit)
	for rows.Next() {
		var (
			tx          models.RecentTransaction
			amount      float64
			description sql.NullString
		)
		if err := rows.Scan(&tx.Id, &tx.Category, &amount, &tx.Date, &description); err != nil {
			return nil, storageError("scan recent transaction", err)
		}
		if tx.Amount, err = amountFromFloat("scan recent transaction", amount); err != nil {
			return nil, err
		}
		tx.Date = normalize.DateOf(tx.Date)
		tx.Description = nullableString(description)
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate recent transactions", err)
	}
	return result, nil
}

// SummarizeByCategory sums amounts per category, optionally from start onwards.
func (s *Service) SummarizeByCategory(ctx context.Context, userId int64, start *time.Time) ([]models.CategoryTotal, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if start == nil {
		rows, err = s.db.QueryContext(ctx, querySummaryAllTime, userId)
	} else {
		rows, err = s.db.QueryContext(ctx, querySummarySince, userId, normalize.FormatDate(*start))
	}
	if err != nil {
		return nil, storageError("summarize transactions", err)
	}
	defer rows.Close()

	result := make([]models.CategoryTotal, 0)
	for rows.Next() {
		var (
			total models.CategoryTotal
			sum   float64
		)
		if err := rows.Scan(&total.Category, &sum); err != nil {
			return nil, storageError("scan category total", err)
		}
		if total.Total, err = amountFromFloat("scan category total", sum); err != nil {
			return nil, err
		}
		result = append(result, total)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate category totals", err)
	}
	return result, nil
}

// ExportAll returns every transaction of the user ordered by date then id.
func (s *Service) ExportAll(ctx context.Context, userId int64) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, queryExportAll, userId)
	if err != nil {
		return nil, storageError("export transactions", err)
	}
	defer rows.Close()

	result := make([]models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate exported transactions", err)
	}

	zap.L().Debug("Exported transactions", zap.Int64("user_id", userId), zap.Int("count", len(result)))
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTransaction reads one row in the queryExportAll column order.
func scanTransaction(row rowScanner) (models.Transaction, error) {
	var (
		tx              models.Transaction
		userId          sql.NullInt64
		amount          float64
		currency        sql.NullString
		description     sql.NullString
		tags            sql.NullString
		merchant        sql.NullString
		paymentMethod   sql.NullString
		transactionType sql.NullString
		isRecurring     sql.NullBool
		recurringPeriod sql.NullString
		status          sql.NullString
		billDueDate     sql.NullTime
		attachmentUrl   sql.NullString
		createdAt       sql.NullTime
		updatedAt       sql.NullTime
	)

	err := row.Scan(&tx.Id, &userId, &tx.Category, &amount, &currency, &tx.Date,
		&description, &tags, &merchant, &paymentMethod, &transactionType, &isRecurring,
		&recurringPeriod, &status, &billDueDate, &attachmentUrl, &createdAt, &updatedAt)
	if err != nil {
		return models.Transaction{}, storageError("scan transaction", err)
	}

	tx.UserId = userId.Int64
	if tx.Amount, err = amountFromFloat("scan transaction", amount); err != nil {
		return models.Transaction{}, err
	}
	tx.Currency = currency.String
	tx.Date = normalize.DateOf(tx.Date)
	tx.Description = nullableString(description)
	tx.Merchant = nullableString(merchant)
	tx.PaymentMethod = nullableString(paymentMethod)
	tx.TransactionType = transactionType.String
	tx.IsRecurring = isRecurring.Bool
	tx.RecurringPeriod = nullableString(recurringPeriod)
	tx.Status = nullableString(status)
	tx.AttachmentUrl = nullableString(attachmentUrl)
	if billDueDate.Valid {
		due := normalize.DateOf(billDueDate.Time)
		tx.BillDueDate = &due
	}
	if createdAt.Valid {
		tx.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		tx.UpdatedAt = updatedAt.Time
	}

	tx.Tags, err = normalize.DecodeTags(nullableString(tags))
	if err != nil {
		zap.L().Warn("Stored tags are not a JSON array, falling back to comma split",
			zap.Int64("id", tx.Id), zap.Error(err))
		tx.Tags = normalize.CoerceTags(tags.String)
	}
	return tx, nil
}

// amountFromFloat converts a stored amount, refusing infinities and NaN.
func amountFromFloat(op string, f float64) (decimal.Decimal, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Zero, fmt.Errorf("%w: %s: stored amount %v is not finite", store.ErrStorage, op, f)
	}
	return decimal.NewFromFloat(f), nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
