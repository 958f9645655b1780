package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"aicfo/internal/core"
	"aicfo/internal/services"
	"aicfo/internal/statement"
)

type receiptRecorder interface {
	RecordReceipt(ctx context.Context, up services.Upload) (services.Recorded, error)
}

type statementImporter interface {
	ImportStatement(ctx context.Context, statement string) (services.ImportResult, error)
}

func newReceiptCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <image>",
		Short: "Extract one receipt image and append it to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp(cmd, true)
			if err != nil {
				return err
			}
			defer app.Close()
			return runReceipt(commandContext(cmd), cmd.OutOrStdout(), app.Service, args[0], app.Config.Currency)
		},
	}
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <statement.csv>",
		Short: "Categorise a bank statement and append every expense to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp(cmd, true)
			if err != nil {
				return err
			}
			defer app.Close()
			return runImport(commandContext(cmd), cmd.OutOrStdout(), app.Service, args[0], app.Config.Currency)
		},
	}
}

func runReceipt(ctx context.Context, w io.Writer, svc receiptRecorder, path, currency string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading receipt: %w", err)
	}

	rec, err := svc.RecordReceipt(ctx, services.Upload{Filename: filepath.Base(path), Data: data})
	if err != nil {
		return err
	}

	e := rec.Expense
	fmt.Fprintf(w, "Saved to the ledger (%s)\n", rec.RowRef)
	fmt.Fprintf(w, "  Date:     %s\n", e.Date)
	fmt.Fprintf(w, "  Store:    %s\n", e.Store)
	fmt.Fprintf(w, "  Category: %s\n", e.Category)
	fmt.Fprintf(w, "  Total:    %s\n", core.FormatAmount(e.Amount, currency))
	fmt.Fprintf(w, "  Summary:  %s\n", e.Summary)
	return nil
}

func runImport(ctx context.Context, w io.Writer, svc statementImporter, path, currency string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading statement: %w", err)
	}
	defer f.Close()

	table, err := statement.Parse(f)
	if err != nil {
		return err
	}

	res, err := svc.ImportStatement(ctx, table.Text())
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Processed %d of %d transactions (batch %s)\n", len(res.Appended), res.Identified, res.BatchID)
	for _, rec := range res.Appended {
		e := rec.Expense
		fmt.Fprintf(w, "  + %s  %-24s %-14s %12s\n", e.Date, e.Store, e.Category, core.FormatAmount(e.Amount, currency))
	}
	for _, fail := range res.Failed {
		label := fmt.Sprintf("item %d", fail.Position)
		if fail.Store != "" {
			label += " (" + fail.Store + ")"
		}
		fmt.Fprintf(w, "  ! %s: %v\n", label, fail.Err)
	}
	return nil
}
