package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"aicfo/internal/advice"
	"aicfo/internal/core"
	"aicfo/internal/services"
)

const barWidth = 30

type reporter interface {
	Dashboard(ctx context.Context) services.DashboardResult
	Advise(ctx context.Context) (string, error)
}

var (
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	valueStyle   = lipgloss.NewStyle().Bold(true)
	adviceStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#4F46E5")).PaddingLeft(1)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))

	barColors = []lipgloss.Color{
		"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
		"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
	}
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	var withAdvice bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print spending by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp(cmd, true)
			if err != nil {
				return err
			}
			defer app.Close()
			return runReport(commandContext(cmd), cmd.OutOrStdout(), app.Service, app.Config.Currency, withAdvice)
		},
	}

	cmd.Flags().BoolVar(&withAdvice, "advice", false, "also ask the model for savings advice")
	return cmd
}

func runReport(ctx context.Context, w io.Writer, svc reporter, currency string, withAdvice bool) error {
	res := svc.Dashboard(ctx)
	switch res.Status {
	case services.DashboardUnavailable:
		return fmt.Errorf("could not reach the ledger: %w", res.Err)
	case services.DashboardEmpty:
		fmt.Fprintln(w, mutedStyle.Render("No data yet."))
		return nil
	}

	fmt.Fprintln(w, renderReport(res.Overview, currency))
	if !withAdvice {
		return nil
	}

	text, err := svc.Advise(ctx)
	if errors.Is(err, advice.ErrNoData) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, adviceStyle.Render(strings.TrimSpace(text)))
	return nil
}

// renderReport draws the totals box and one bar per category, scaled to the
// largest category.
func renderReport(ov core.Overview, currency string) string {
	summary := summaryStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		labelStyle.Render("Total spent ")+valueStyle.Render(core.FormatAmount(ov.Total, currency)),
		"    ",
		labelStyle.Render("Transactions ")+valueStyle.Render(fmt.Sprint(ov.Count)),
	))

	nameWidth := 0
	for _, c := range ov.ByCategory {
		nameWidth = max(nameWidth, lipgloss.Width(c.Name))
	}

	top := ov.Max()
	rows := make([]string, 0, len(ov.ByCategory))
	for i, c := range ov.ByCategory {
		n := 0
		if top.IsPositive() && c.Amount.IsPositive() {
			n = int(c.Amount.Mul(decimal.NewFromInt(barWidth)).Div(top).Round(0).IntPart())
			n = max(n, 1)
		}
		bar := lipgloss.NewStyle().Foreground(barColors[i%len(barColors)]).Render(strings.Repeat("█", n))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(nameWidth+2).Render(c.Name),
			lipgloss.NewStyle().Width(barWidth+2).Render(bar),
			core.FormatAmount(c.Amount, currency),
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, summary, "", strings.Join(rows, "\n"))
}
