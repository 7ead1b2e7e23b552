package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents one recorded expense or income event
type Transaction struct {
	Id              int64           `db:"id"`
	UserId          int64           `db:"user_id"`
	Category        string          `db:"category"`
	Amount          decimal.Decimal `db:"amount"`
	Currency        string          `db:"currency"`
	Date            time.Time       `db:"date"`
	Description     *string         `db:"description"`
	Tags            []string        `db:"tags"`
	Merchant        *string         `db:"merchant"`
	PaymentMethod   *string         `db:"payment_method"`
	TransactionType string          `db:"transaction_type"`
	IsRecurring     bool            `db:"is_recurring"`
	RecurringPeriod *string         `db:"recurring_period"`
	Status          *string         `db:"status"`
	BillDueDate     *time.Time      `db:"bill_due_date"`
	AttachmentUrl   *string         `db:"attachment_url"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// DescriptionOrEmpty returns the description, or "" when none was recorded
func (t Transaction) DescriptionOrEmpty() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// RecentTransaction is the projection returned by recent-transaction listings
type RecentTransaction struct {
	Id          int64           `db:"id"`
	Category    string          `db:"category"`
	Amount      decimal.Decimal `db:"amount"`
	Date        time.Time       `db:"date"`
	Description *string         `db:"description"`
}

// CategoryTotal is the summed amount for one category
type CategoryTotal struct {
	Category string          `db:"category"`
	Total    decimal.Decimal `db:"total"`
}
