package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used on the wire and in the ledger.
const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	// Expense is one ledger row. Identity is positional: the ledger keeps
	// rows in append order and there is no primary key.
	Expense struct {
		Date     Date
		Store    string
		Category string
		Amount   decimal.Decimal
		Summary  string
	}
)

var (
	ErrEmptyDate     = errors.New("empty date")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNegative      = errors.New("amount must not be negative")
)

// dateLayouts are accepted when reading dates back from a ledger, where the
// spreadsheet may have re-rendered the value in its locale format.
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"1/2/2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date in one of the accepted layouts.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrEmptyDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return Date{}, ErrInvalidDate
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrEmptyDate
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.Amount.IsNegative() {
		return ErrNegative
	}
	return nil
}
