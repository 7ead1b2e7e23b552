package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"expense-tracker-bot-go/internal/store"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const ISODateLayout = "2006-01-02"

var ErrUnparsableDate = fmt.Errorf("%w: couldn't parse date", store.ErrValidation)

// Rules are compiled once; Parse does not mutate the parser.
var naturalDates = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// isoShaped matches text that can only be meant as YYYY-MM-DD.
var isoShaped = regexp.MustCompile(`^[0-9]{4}-[0-9]{1,2}-[0-9]{1,2}$`)

// dayFirstLayouts are tried when month-first parsing fails, so 15-01-2025 is
// the 15th of January.
var dayFirstLayouts = []string{
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2.1.2006",
}

// legacyLayouts are the formats older sqlite rows were written with.
var legacyLayouts = []string{
	ISODateLayout,
	"2006-01-02 15:04:05",
	"02-01-2006",
	"02/01/2006",
}

// DateOf truncates t to its calendar date, expressed at UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(ISODateLayout)
}

// ParseISODate accepts only YYYY-MM-DD.
func ParseISODate(text string) (time.Time, error) {
	d, err := time.Parse(ISODateLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrUnparsableDate, text)
	}
	return d, nil
}

// CoerceDate resolves free text to a calendar date. ISO dates win, then absolute
// formats, then natural phrases covering the whole text, then absolute dates
// embedded in surrounding words. Dates without a year fall in the year of now.
func CoerceDate(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("%w: empty input", ErrUnparsableDate)
	}

	if isoShaped.MatchString(text) {
		d, err := time.Parse(ISODateLayout, text)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q is not a valid date", ErrUnparsableDate, text)
		}
		return d, nil
	}

	if t, ok := parseAbsolute(text, now); ok {
		return t, nil
	}

	if r, err := naturalDates.Parse(text, now); err == nil && r != nil && coversAll(r.Text, text) {
		return DateOf(r.Time), nil
	}

	if t, ok := scanAbsoluteDate(text, now); ok {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDate, text)
}

// CoerceDateOrToday never fails: anything unparsable becomes today's date.
func CoerceDateOrToday(text string, now time.Time) time.Time {
	d, err := CoerceDate(text, now)
	if err != nil {
		return DateOf(now)
	}
	return d
}

// MigrationDate parses dates written by older versions of the tracker.
func MigrationDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range legacyLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDate, text)
}

// scanAbsoluteDate tries every contiguous window of words, longest first, so a
// date embedded in surrounding prose is still found.
func scanAbsoluteDate(text string, now time.Time) (time.Time, bool) {
	words := strings.Fields(text)
	for size := len(words); size > 0; size-- {
		for start := 0; start+size <= len(words); start++ {
			candidate := strings.Join(words[start:start+size], " ")
			if !hasDigit(candidate) || isAllDigits(candidate) {
				continue
			}
			if t, ok := parseAbsolute(candidate, now); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// parseAbsolute parses one candidate as an absolute date. Invalid ISO dates
// such as 2025-02-30 are rejected rather than reinterpreted.
func parseAbsolute(candidate string, now time.Time) (time.Time, bool) {
	if isoShaped.MatchString(candidate) {
		d, err := time.Parse(ISODateLayout, candidate)
		return d, err == nil
	}

	if t, err := dateparse.ParseIn(candidate, now.Location()); err == nil {
		return withYear(DateOf(t), now), true
	}

	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return DateOf(t), true
		}
	}
	return time.Time{}, false
}

// withYear places a year-less date in the year of now.
func withYear(d time.Time, now time.Time) time.Time {
	if d.Year() != 0 {
		return d
	}
	return time.Date(now.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// coversAll reports whether a natural-language match spans the whole input.
func coversAll(match, text string) bool {
	trim := func(s string) string {
		return strings.TrimFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	}
	return match != "" && strings.EqualFold(trim(match), trim(text))
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func isAllDigits(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
}
