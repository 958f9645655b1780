package sheets

import (
	"context"

	"aicfo/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter appends one expense row and returns a reference to it.
	LedgerWriter interface {
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// LedgerReader returns every expense row in ledger order.
	LedgerReader interface {
		ReadAll(ctx context.Context) ([]core.Expense, error)
	}

	Ledger interface {
		LedgerWriter
		LedgerReader
	}
)
