// Package conversation implements the interactive /add flow: a linear
// category → amount → date → description wizard, one session per chat user.
package conversation

import (
	"strings"
	"time"

	"expense-tracker-bot-go/internal/normalize"

	"github.com/shopspring/decimal"
)

type State int

const (
	AwaitingCategory State = iota
	AwaitingAmount
	AwaitingDate
	AwaitingDescription
	Complete
	Cancelled
)

func (s State) String() string {
	switch s {
	case AwaitingCategory:
		return "awaiting_category"
	case AwaitingAmount:
		return "awaiting_amount"
	case AwaitingDate:
		return "awaiting_date"
	case AwaitingDescription:
		return "awaiting_description"
	case Complete:
		return "complete"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further input is accepted.
func (s State) Terminal() bool {
	return s == Complete || s == Cancelled
}

const (
	PromptCategory      = "Enter category (e.g. food, petrol, creditcard, emi):"
	PromptEmptyCategory = "Category cannot be empty. Enter category:"
	PromptAmount        = "Enter amount (numbers):"
	PromptAmountRetry   = "Couldn't parse amount. Enter numeric amount:"
	PromptDate          = "Enter date (YYYY-MM-DD) or text like 'today' or 'yesterday':"
	PromptDateRetry     = "Couldn't parse date. Please try again:"
	PromptDescription   = "Enter description (optional):"
	ReplySaved          = "Saved ✅"
	ReplyCancelled      = "Cancelled."
	ReplyNothingActive  = "Nothing to cancel."
)

// Draft accumulates the fields collected so far.
type Draft struct {
	Category    string
	Amount      decimal.Decimal
	Date        time.Time
	Description string
}

type Session struct {
	State     State
	Draft     Draft
	UpdatedAt time.Time
}

// Effect is an instruction produced by Step for the caller to carry out.
type Effect interface {
	effect()
}

// Reply sends Text back to the user.
type Reply struct {
	Text string
}

// Persist stores the finished draft. The session only becomes Complete once
// the caller confirms the insert.
type Persist struct {
	Draft Draft
}

func (Reply) effect()   {}
func (Persist) effect() {}

// Start opens a new session at the category step.
func Start(now time.Time) (Session, []Effect) {
	return Session{State: AwaitingCategory, UpdatedAt: now}, []Effect{Reply{Text: PromptCategory}}
}

// Step feeds one user message into the session.
func Step(s Session, input string, now time.Time) (Session, []Effect) {
	if s.State.Terminal() {
		return s, nil
	}

	text := strings.TrimSpace(input)
	s.UpdatedAt = now

	switch s.State {
	case AwaitingCategory:
		if text == "" {
			return s, []Effect{Reply{Text: PromptEmptyCategory}}
		}
		s.Draft.Category = text
		s.State = AwaitingAmount
		return s, []Effect{Reply{Text: PromptAmount}}

	case AwaitingAmount:
		amount, err := normalize.CoerceAmount(text)
		if err != nil {
			return s, []Effect{Reply{Text: PromptAmountRetry}}
		}
		s.Draft.Amount = amount
		s.State = AwaitingDate
		return s, []Effect{Reply{Text: PromptDate}}

	case AwaitingDate:
		date, err := normalize.CoerceDate(text, now)
		if err != nil {
			return s, []Effect{Reply{Text: PromptDateRetry}}
		}
		s.Draft.Date = date
		s.State = AwaitingDescription
		return s, []Effect{Reply{Text: PromptDescription}}

	case AwaitingDescription:
		s.Draft.Description = text
		return s, []Effect{Persist{Draft: s.Draft}}
	}
	return s, nil
}

// Saved marks the session complete after a successful insert.
func Saved(s Session, now time.Time) (Session, []Effect) {
	s.State = Complete
	s.UpdatedAt = now
	return s, []Effect{Reply{Text: ReplySaved}}
}

// Cancel ends a session without persisting anything.
func Cancel(s Session, now time.Time) (Session, []Effect) {
	if s.State.Terminal() {
		return s, []Effect{Reply{Text: ReplyNothingActive}}
	}
	s.State = Cancelled
	s.UpdatedAt = now
	return s, []Effect{Reply{Text: ReplyCancelled}}
}
