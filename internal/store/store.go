package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expense-tracker-bot-go/internal/models"

	"github.com/shopspring/decimal"
)

// Error taxonomy shared by every layer. Callers match with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrConnection    = errors.New("connection error")
	ErrValidation    = errors.New("validation error")
	ErrStorage       = errors.New("storage error")

	// ErrDuplicateId reports a primary key collision on the max(id)+1 assignment.
	ErrDuplicateId = fmt.Errorf("%w: duplicate transaction id", ErrStorage)
)

// DefaultCurrency is applied when an insert does not name one.
const DefaultCurrency = "INR"

// InsertParams contains the raw, not yet normalized, fields of a new transaction.
type InsertParams struct {
	UserId      int64
	Category    string
	Amount      decimal.Decimal
	DateText    string // YYYY-MM-DD
	Description *string
	Tags        string // JSON array or comma separated; "" means no tags
	Currency    string
}

// ExpenseStore defines the contract every storage backend must satisfy.
type ExpenseStore interface {
	Initialize(ctx context.Context) error

	Insert(ctx context.Context, params InsertParams) (int64, error)
	ListRecent(ctx context.Context, userId int64, limit int) ([]models.RecentTransaction, error)
	SummarizeByCategory(ctx context.Context, userId int64, start *time.Time) ([]models.CategoryTotal, error)
	ExportAll(ctx context.Context, userId int64) ([]models.Transaction, error)

	Ping(ctx context.Context) error
	Close()
}
