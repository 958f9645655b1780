// Package cli wires configuration, logging and the pipeline for the aicfo
// commands.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"aicfo/internal/config"
	"aicfo/internal/log"
)

// SetupLogger builds the process logger and installs it as the slog default.
// The server logs plain text; interactive commands use the terminal handler.
func SetupLogger(w io.Writer, level string, terminal bool) *log.Logger {
	lvl := log.ParseLevel(level)
	handler := log.NewTextHandler(w, lvl)
	if terminal {
		handler = log.NewTerminalHandler(w, lvl)
	}
	logger := log.New(log.Config{Level: lvl, Component: log.ComponentApp, Handler: handler})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads the optional YAML file and the environment and
// validates the result.
func LoadAndValidateConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GracefulShutdown runs shutdown on SIGINT or SIGTERM, bounded by timeout.
// The returned context is cancelled once the signal arrives and done is
// closed after shutdown returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, shutdown func(context.Context) error) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if shutdown == nil {
			return
		}
		if err := shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", log.FieldError, err)
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and shutdown is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
