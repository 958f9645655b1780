package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	apphttp "aicfo/internal/http"
	"aicfo/internal/log"
)

const (
	shutdownTimeout = 30 * time.Second
	warmupTimeout   = 15 * time.Second
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web front-end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp(cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()
			return runServe(commandContext(cmd), app)
		},
	}
}

func runServe(ctx context.Context, app *App) error {
	cfg := app.Config
	logger := app.Logger

	warmCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
	app.Warmup(warmCtx)
	cancel()

	srv := apphttp.NewServer(":"+cfg.Port, app.Service, apphttp.Options{
		Currency:       cfg.Currency,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	})
	srv.ReadTimeout = 30 * time.Second
	// Model calls can take most of a minute on large statements.
	srv.WriteTimeout = 3 * time.Minute
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	sigCtx, done := GracefulShutdown(logger, shutdownTimeout, srv.Shutdown)

	logger.Info("Starting aicfo server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"llm_provider", cfg.LLMProvider,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	WaitForShutdown(sigCtx, done)
	logger.Info("Server stopped gracefully")
	return nil
}
