package backend

import (
	"context"
	"fmt"
	"log/slog"

	gsheet "aicfo/internal/sheets/google"
	"aicfo/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend. No network call is made;
// the sheets ledger connects on first use.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsBackend:
		return f.createSheetsBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsBackend(config Config) (*BackendResult, error) {
	cli, err := gsheet.New(gsheet.Config{
		SpreadsheetID:   config.SpreadsheetID,
		SpreadsheetName: config.SpreadsheetName,
		SheetName:       config.SheetName,
		CredentialsJSON: config.Credentials,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.SpreadsheetID,
		"spreadsheet_name", config.SpreadsheetName,
		"sheet", config.SheetName)

	return &BackendResult{Ledger: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.New()
	if config.SeedFile != "" {
		store = memory.NewFromFile(config.SeedFile)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &BackendResult{Ledger: store}, nil
}
