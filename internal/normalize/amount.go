package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"expense-tracker-bot-go/internal/store"

	"github.com/shopspring/decimal"
)

var (
	ErrUnparsableAmount = fmt.Errorf("%w: couldn't parse amount", store.ErrValidation)
	ErrAmountOutOfRange = fmt.Errorf("%w: amount out of range", store.ErrValidation)
)

var (
	amountNoise  = regexp.MustCompile(`[^0-9.\-]`)
	amountStrict = regexp.MustCompile(`^-?(?:[0-9]+\.?[0-9]*|\.[0-9]+)$`)
)

// SanitizeAmount drops every character that is not a digit, '.' or '-'.
// Thousands separators and currency symbols disappear with it.
func SanitizeAmount(text string) string {
	return amountNoise.ReplaceAllString(text, "")
}

// CoerceAmount parses user typed amounts such as "₹ 1,234.50" or "-20".
// After sanitizing, at most one decimal point and only a leading minus are allowed.
func CoerceAmount(text string) (decimal.Decimal, error) {
	cleaned := SanitizeAmount(text)
	if !amountStrict.MatchString(cleaned) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnparsableAmount, text)
	}

	amount, err := decimal.NewFromString(strings.TrimSuffix(cleaned, "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q (%v)", ErrUnparsableAmount, text, err)
	}
	if err := CheckAmountRange(amount); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrUnparsableAmount, err)
	}
	return amount, nil
}

// CheckAmountRange rejects amounts the floating point amount column cannot hold.
func CheckAmountRange(amount decimal.Decimal) error {
	f := amount.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return fmt.Errorf("%w: %d digits", ErrAmountOutOfRange, len(amount.Coefficient().String()))
	}
	return nil
}
