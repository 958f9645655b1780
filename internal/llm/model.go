// Package llm wraps the hosted language models used to read receipts and
// statements and to write spending advice.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Supported providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultModel is used when no model name is configured for Gemini.
const DefaultModel = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("model returned no text")

// Attachment is a binary payload sent alongside the prompt.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Model submits one prompt, optionally with attachments, and returns the
// model's free-text answer.
type Model interface {
	Generate(ctx context.Context, prompt string, attachments ...Attachment) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// New builds the Model for cfg.Provider. The returned close function
// releases the underlying client and is never nil.
func New(ctx context.Context, cfg Config) (Model, func() error, error) {
	noop := func() error { return nil }
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, noop, fmt.Errorf("%s: api key is required", cfg.Provider)
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGemini:
		g, err := NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, noop, err
		}
		return g, g.Close, nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
