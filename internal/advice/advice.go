// Package advice asks the model for savings tips based on spending totals.
package advice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"aicfo/internal/core"
	"aicfo/internal/llm"
	"aicfo/internal/log"
)

var ErrNoData = errors.New("no expenses to advise on")

type Generator struct {
	model    llm.Model
	currency string
}

// New returns a generator that formats amounts in currency (ISO 4217).
func New(model llm.Model, currency string) *Generator {
	if !core.IsKnownCurrency(currency) {
		currency = core.DefaultCurrency
	}
	return &Generator{model: model, currency: currency}
}

// Advise returns the model's answer unmodified. Empty input returns ErrNoData
// without calling the model.
func (g *Generator) Advise(ctx context.Context, records []core.Expense) (string, error) {
	if len(records) == 0 {
		return "", ErrNoData
	}
	ov := core.Summarize(records)
	text, err := g.model.Generate(ctx, Prompt(ov, g.currency))
	if err != nil {
		return "", fmt.Errorf("advice: %w", err)
	}
	slog.DebugContext(ctx, "Advice generated",
		log.FieldComponent, log.ComponentAdvice,
		"categories", len(ov.ByCategory),
		"bytes", len(text))
	return text, nil
}

// Prompt embeds the grand total and the per-category breakdown.
func Prompt(ov core.Overview, currency string) string {
	parts := make([]string, 0, len(ov.ByCategory))
	for _, c := range ov.ByCategory {
		parts = append(parts, fmt.Sprintf("%s: %s", c.Name, core.FormatAmount(c.Amount, currency)))
	}
	return fmt.Sprintf("Act as a CFO. Total Spent: %s. Breakdown: %s. Give 3 ruthless tips to save money.",
		core.FormatAmount(ov.Total, currency), strings.Join(parts, ", "))
}
