package cli

import (
	"context"

	"github.com/spf13/cobra"

	"aicfo/internal/log"
)

// Version is set at build time.
var Version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "aicfo",
		Short:   "Receipts and statements into a spreadsheet ledger, with a CFO on call",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			LoadEnvFile()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (environment variables override it)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newReceiptCommand(opts),
		newImportCommand(opts),
		newReportCommand(opts),
	)
	return rootCmd
}

// openApp loads configuration and wires the pipeline for a command.
func (o *rootOptions) openApp(cmd *cobra.Command, terminal bool) (*App, error) {
	cfg, err := LoadAndValidateConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	logger := SetupLogger(cmd.ErrOrStderr(), cfg.LogLevel, terminal)
	if terminal {
		logger = logger.WithComponent(log.ComponentCLI)
	}
	return NewApp(commandContext(cmd), cfg, logger)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
