// Package memory is an in-process ledger for development and tests.
package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"aicfo/internal/core"
	ports "aicfo/internal/sheets"
)

type Store struct {
	mu    sync.Mutex
	items []core.Expense
}

var _ ports.Ledger = (*Store)(nil)

func New(seed ...core.Expense) *Store {
	return &Store{items: append([]core.Expense(nil), seed...)}
}

// NewFromFile seeds the store from a ledger exported as CSV (header row
// first). A missing file yields an empty store.
func NewFromFile(path string) *Store {
	f, err := os.Open(path)
	if err != nil {
		return New()
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		slog.Warn("Ignoring unreadable ledger seed", "path", path, "error", err)
		return New()
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}
	records, skipped := ports.Records(values)
	for _, s := range skipped {
		slog.Warn("Skipping seed row", "path", path, "line", s.Line, "error", s.Err)
	}
	return New(records...)
}

// Append stores the expense and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// ReadAll returns a copy of the stored expenses in append order.
func (s *Store) ReadAll(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense{}, s.items...), nil
}

// Rows renders the stored expenses as ledger rows.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.items))
	for i, e := range s.items {
		out[i] = ports.Row(e)
	}
	return out
}
