package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"aicfo/internal/core"
)

// Wire field names of a model answer item.
const (
	FieldDate     = "date"
	FieldStore    = "store"
	FieldCategory = "category"
	FieldTotal    = "total"
	FieldSummary  = "summary"
)

// decodeObject parses a single-receipt answer. A one-element array is
// accepted since models sometimes wrap the object.
func decodeObject(raw string) (core.Expense, error) {
	body := []byte(StripFences(raw))
	if !json.Valid(body) {
		return core.Expense{}, &ParseError{Raw: raw, Err: syntaxError(body)}
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return core.Expense{}, &ValidationError{Index: -1, Err: fmt.Errorf("%w: %v", ErrWrongType, err)}
		}
		if len(items) != 1 {
			return core.Expense{}, &ValidationError{Index: -1, Err: fmt.Errorf("%w: expected one object, got %d items", ErrWrongType, len(items))}
		}
		body = items[0]
	}
	return decodeItem(body, -1)
}

// decodeArray parses a bulk answer into one entry per item, in order. A bare
// object is treated as a one-item list.
func decodeArray(raw string) (Batch, error) {
	body := bytes.TrimSpace([]byte(StripFences(raw)))
	if !json.Valid(body) {
		return nil, &ParseError{Raw: raw, Err: syntaxError(body)}
	}

	var items []json.RawMessage
	switch {
	case len(body) > 0 && body[0] == '{':
		items = []json.RawMessage{body}
	default:
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, &ValidationError{Index: -1, Err: fmt.Errorf("%w: expected a JSON list: %v", ErrWrongType, err)}
		}
	}

	batch := make(Batch, 0, len(items))
	for i, item := range items {
		e, err := decodeItem(item, i)
		batch = append(batch, BatchItem{Expense: e, Err: err})
	}
	return batch, nil
}

func decodeItem(body []byte, index int) (core.Expense, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return core.Expense{}, &ValidationError{Index: index, Err: fmt.Errorf("%w: expected an object", ErrWrongType)}
	}
	fields := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		fields[strings.ToLower(strings.TrimSpace(k))] = v
	}

	invalid := func(field string, err error) (core.Expense, error) {
		return core.Expense{}, &ValidationError{Index: index, Field: field, Err: err}
	}

	dateText, err := stringField(fields, FieldDate)
	if err != nil {
		return invalid(FieldDate, err)
	}
	date, err := core.ParseDate(dateText)
	if err != nil {
		return invalid(FieldDate, err)
	}
	store, err := stringField(fields, FieldStore)
	if err != nil {
		return invalid(FieldStore, err)
	}
	category, err := stringField(fields, FieldCategory)
	if err != nil {
		return invalid(FieldCategory, err)
	}
	summary, err := stringField(fields, FieldSummary)
	if err != nil {
		return invalid(FieldSummary, err)
	}
	amount, err := amountField(fields, FieldTotal)
	if err != nil {
		return invalid(FieldTotal, err)
	}

	e := core.Expense{
		Date:     date,
		Store:    strings.TrimSpace(store),
		Category: strings.TrimSpace(category),
		Amount:   amount,
		Summary:  strings.TrimSpace(summary),
	}
	if err := e.Validate(); err != nil {
		return invalid(FieldTotal, err)
	}
	return e, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return "", ErrMissingField
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: expected a string", ErrWrongType)
	}
	return s, nil
}

// amountField accepts the total as a JSON number or as a numeric string.
func amountField(fields map[string]json.RawMessage, name string) (decimal.Decimal, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return decimal.Zero, ErrMissingField
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return core.ParseAmount(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return decimal.Zero, fmt.Errorf("%w: expected a number", ErrWrongType)
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, core.ErrInvalidAmount
	}
	return d, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

func syntaxError(body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return err
	}
	return errors.New("empty response")
}
