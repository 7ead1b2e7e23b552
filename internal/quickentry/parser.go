// Package quickentry parses single-line expense entries such as
//
//	food 1,250.50 yesterday --desc "team lunch"
//
// The grammar is <category> <amount> [rest]; rest may carry a quoted
// --desc fragment and free text that is read as a date.
package quickentry

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"expense-tracker-bot-go/internal/normalize"
	"expense-tracker-bot-go/internal/store"

	"github.com/shopspring/decimal"
)

var ErrUsage = fmt.Errorf("%w: quick entry must start with <category> <amount>", store.ErrValidation)

var descFlag = regexp.MustCompile(`--desc\s+"([^"]+)"`)

// Mobile keyboards substitute typographic quotes for ASCII ones.
var quoteFolder = strings.NewReplacer("“", `"`, "”", `"`, "„", `"`, "«", `"`, "»", `"`)

// Command is the structured result of the grammar, before date resolution.
type Command struct {
	Category    string
	Amount      decimal.Decimal
	Description *string
	Rest        string // free text left after removing --desc
}

// Entry is a quick entry ready for insertion.
type Entry struct {
	Category    string
	Amount      decimal.Decimal
	Date        time.Time
	Description *string
}

// Parse parses payload and resolves its date, defaulting to today.
func Parse(payload string, now time.Time) (Entry, error) {
	cmd, err := ParseCommand(payload)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Category:    cmd.Category,
		Amount:      cmd.Amount,
		Date:        normalize.CoerceDateOrToday(cmd.Rest, now),
		Description: cmd.Description,
	}, nil
}

// ParseCommand applies the grammar without touching the date.
func ParseCommand(payload string) (Command, error) {
	s := &scanner{input: strings.TrimSpace(payload)}

	category := s.takeWhile(isCategoryRune)
	if category == "" {
		return Command{}, fmt.Errorf("%w: missing category", ErrUsage)
	}
	if s.takeWhile(unicode.IsSpace) == "" {
		return Command{}, fmt.Errorf("%w: missing amount", ErrUsage)
	}

	amountText, err := s.amount()
	if err != nil {
		return Command{}, err
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(amountText, ",", ""))
	if err != nil {
		return Command{}, fmt.Errorf("%w: invalid amount %q", ErrUsage, amountText)
	}
	if err := normalize.CheckAmountRange(amount); err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	s.takeWhile(unicode.IsSpace)
	rest := quoteFolder.Replace(strings.TrimSpace(s.remaining()))

	var description *string
	if m := descFlag.FindStringSubmatch(rest); m != nil {
		desc := m[1]
		description = &desc
		rest = strings.ReplaceAll(rest, m[0], "")
	}

	return Command{
		Category:    category,
		Amount:      amount,
		Description: description,
		Rest:        strings.TrimSpace(rest),
	}, nil
}

type scanner struct {
	input string
	pos   int
}

func (s *scanner) peek() (rune, int) {
	if s.pos >= len(s.input) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(s.input[s.pos:])
}

func (s *scanner) takeWhile(accept func(rune) bool) string {
	start := s.pos
	for {
		r, size := s.peek()
		if size == 0 || !accept(r) {
			break
		}
		s.pos += size
	}
	return s.input[start:s.pos]
}

// amount reads [0-9,]+ with an optional .[0-9]+ fraction. A dot without
// digits after it is left for the rest of the line.
func (s *scanner) amount() (string, error) {
	start := s.pos
	whole := s.takeWhile(func(r rune) bool { return isASCIIDigit(r) || r == ',' })
	if strings.IndexFunc(whole, isASCIIDigit) < 0 {
		return "", fmt.Errorf("%w: missing amount", ErrUsage)
	}

	if r, size := s.peek(); size > 0 && r == '.' {
		mark := s.pos
		s.pos += size
		if s.takeWhile(isASCIIDigit) == "" {
			s.pos = mark
		}
	}
	return s.input[start:s.pos], nil
}

func (s *scanner) remaining() string {
	return s.input[s.pos:]
}

func isCategoryRune(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
