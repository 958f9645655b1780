package cli

import (
	"context"
	"errors"
	"fmt"

	"aicfo/internal/advice"
	"aicfo/internal/amqp"
	"aicfo/internal/backend"
	"aicfo/internal/config"
	"aicfo/internal/extract"
	"aicfo/internal/llm"
	"aicfo/internal/log"
	"aicfo/internal/services"
	"aicfo/internal/sheets"
)

// App is the wired pipeline for one process.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Ledger  sheets.Ledger
	Service *services.ExpenseService

	closers []func() error
}

// NewApp builds the ledger, the model client, the extractor, the advice
// generator and the optional event publisher from cfg. No remote call is
// made except dialing the AMQP broker when AMQP_URL is set.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("ledger config: %w", err)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentLedger).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	app.Ledger = res.Ledger
	if res.Cleanup != nil {
		app.closers = append(app.closers, res.Cleanup)
	}

	model, closeModel, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.APIKey(),
		BaseURL:  cfg.OpenAIBaseURL,
		Model:    cfg.LLMModel,
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("model client: %w", err)
	}
	app.closers = append(app.closers, closeModel)

	var opts []services.Option
	if cfg.AMQPURL != "" {
		pub, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			// Events are optional; the ledger stays the source of truth.
			logger.WithComponent(log.ComponentAMQP).Warn("Event publishing disabled", log.FieldError, err)
		} else {
			opts = append(opts, services.WithEvents(pub))
			app.closers = append(app.closers, pub.Close)
		}
	}

	app.Service = services.NewExpenseService(
		extract.New(model),
		app.Ledger,
		advice.New(model, cfg.Currency),
		opts...,
	)
	return app, nil
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type connector interface {
	Connect(ctx context.Context) error
}

// Warmup connects a remote ledger early so configuration problems show up
// in the startup log. Failure is not fatal: the dashboard reports it.
func (a *App) Warmup(ctx context.Context) {
	c, ok := a.Ledger.(connector)
	if !ok {
		return
	}
	if err := c.Connect(ctx); err != nil {
		a.Logger.WithComponent(log.ComponentLedger).Warn("Ledger not reachable at startup", log.FieldError, err)
		return
	}
	a.Logger.WithComponent(log.ComponentLedger).Info("Ledger connected")
}
