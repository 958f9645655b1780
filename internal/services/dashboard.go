package services

import (
	"context"
	"fmt"
	"log/slog"

	"aicfo/internal/core"
	"aicfo/internal/log"
)

type DashboardStatus int

const (
	DashboardReady DashboardStatus = iota
	DashboardEmpty
	DashboardUnavailable
)

func (s DashboardStatus) String() string {
	switch s {
	case DashboardReady:
		return "ready"
	case DashboardEmpty:
		return "empty"
	case DashboardUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("DashboardStatus(%d)", int(s))
	}
}

// DashboardResult separates an empty ledger from one that could not be read.
// Err is set only when Status is DashboardUnavailable.
type DashboardResult struct {
	Status   DashboardStatus
	Records  []core.Expense
	Overview core.Overview
	Err      error
}

// Dashboard reads the whole ledger and aggregates it by category.
func (s *ExpenseService) Dashboard(ctx context.Context) DashboardResult {
	records, err := s.ledger.ReadAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read ledger", log.FieldOperation, log.OpDashboard, log.FieldError, err)
		return DashboardResult{Status: DashboardUnavailable, Err: err}
	}
	if len(records) == 0 {
		return DashboardResult{Status: DashboardEmpty, Records: records}
	}
	return DashboardResult{
		Status:   DashboardReady,
		Records:  records,
		Overview: core.Summarize(records),
	}
}

// Advise reads the ledger and asks for savings advice on it.
func (s *ExpenseService) Advise(ctx context.Context) (string, error) {
	records, err := s.ledger.ReadAll(ctx)
	if err != nil {
		return "", fmt.Errorf("read ledger: %w", err)
	}
	return s.advisor.Advise(ctx, records)
}
