package sheets

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aicfo/internal/core"
)

// Column names of the ledger header row, in column order.
const (
	ColDate     = "Date"
	ColStore    = "Store"
	ColCategory = "Category"
	ColAmount   = "Amount"
	ColSummary  = "Summary"
)

// Header is the first row of a ledger worksheet.
var Header = []any{ColDate, ColStore, ColCategory, ColAmount, ColSummary}

// Row renders an expense in ledger column order. The amount is written as a
// number so spreadsheet formulas can sum it.
func Row(e core.Expense) []any {
	return []any{e.Date.String(), e.Store, e.Category, e.Amount.InexactFloat64(), e.Summary}
}

// SkippedRow describes a ledger row that could not be read as an expense.
// Line is 1-based and counts the header.
type SkippedRow struct {
	Line int
	Err  error
}

var ErrNoAmount = errors.New("no amount")

// Records maps a worksheet's values to expenses. When the first row names an
// Amount column it is used as the header (case-insensitive, any order);
// otherwise columns are read positionally and the first row is data. Blank
// rows are ignored; rows whose amount cannot be read are reported in skipped.
func Records(values [][]any) (records []core.Expense, skipped []SkippedRow) {
	records = []core.Expense{}
	if len(values) == 0 {
		return records, nil
	}

	cols := map[string]int{}
	for i, name := range Header {
		cols[strings.ToLower(name.(string))] = i
	}
	start := 0
	if header, ok := headerIndex(values[0]); ok {
		cols = header
		start = 1
	}

	for i := start; i < len(values); i++ {
		row := values[i]
		if blankRow(row) {
			continue
		}
		e, err := recordFromRow(row, cols)
		if err != nil {
			skipped = append(skipped, SkippedRow{Line: i + 1, Err: err})
			continue
		}
		records = append(records, e)
	}
	return records, skipped
}

func headerIndex(row []any) (map[string]int, bool) {
	idx := make(map[string]int, len(row))
	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(fmt.Sprint(cell)))
		if _, dup := idx[name]; name != "" && !dup {
			idx[name] = i
		}
	}
	_, ok := idx[strings.ToLower(ColAmount)]
	return idx, ok
}

func recordFromRow(row []any, cols map[string]int) (core.Expense, error) {
	cell := func(name string) any {
		i, ok := cols[strings.ToLower(name)]
		if !ok || i >= len(row) {
			return nil
		}
		return row[i]
	}
	text := func(name string) string {
		v := cell(name)
		if v == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(v))
	}

	amount, err := cellAmount(cell(ColAmount))
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Date:     cellDate(cell(ColDate)),
		Store:    text(ColStore),
		Category: text(ColCategory),
		Amount:   amount,
		Summary:  text(ColSummary),
	}, nil
}

func cellAmount(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, ErrNoAmount
	case float64:
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case string:
		if strings.TrimSpace(x) == "" {
			return decimal.Zero, ErrNoAmount
		}
		return core.ParseAmount(x)
	default:
		return core.ParseAmount(fmt.Sprint(x))
	}
}

// spreadsheetEpoch is day zero of spreadsheet date serial numbers.
var spreadsheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// cellDate reads a date cell. Unreadable dates yield the zero Date; the
// row is still listed.
func cellDate(v any) core.Date {
	switch x := v.(type) {
	case float64:
		t := spreadsheetEpoch.AddDate(0, 0, int(x))
		return core.NewDate(t.Year(), int(t.Month()), t.Day())
	case string:
		d, _ := core.ParseDate(x)
		return d
	default:
		return core.Date{}
	}
}

func blankRow(row []any) bool {
	for _, c := range row {
		if c != nil && strings.TrimSpace(fmt.Sprint(c)) != "" {
			return false
		}
	}
	return true
}
