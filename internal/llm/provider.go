// Package llm provides the narrative providers used by the report
// composer. A Provider turns one system+user prompt pair into a single
// completion; conversation state, tool use and streaming are out of
// scope.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

const (
	defaultMaxTokens   = 2000
	defaultTemperature = 0.1
)

// Provider is a minimal completion interface over a hosted model.
type Provider interface {
	// Complete sends the prompts and returns the response text. Deadline
	// expiry surfaces as models.ErrLLMTimeout, every other failure as
	// models.ErrLLMError. Caller cancellation passes through unclassified.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Name returns the provider identifier ("anthropic", "gemini").
	Name() string

	// Model returns the configured model identifier.
	Model() string
}

// New builds the provider selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return NewAnthropicProvider(cfg)
	case "gemini":
		return NewGeminiProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q (valid: anthropic, gemini)", cfg.Provider)
	}
}

// classify maps a provider failure onto the two stable sentinels the
// composer retries on. Caller cancellation is not an LLM failure and is
// returned unchanged so the composer can abort instead of retrying.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", models.ErrLLMTimeout, err)
	default:
		return fmt.Errorf("%w: %w", models.ErrLLMError, err)
	}
}

// applyDefaults fills the zero-valued fields of cfg.
func applyDefaults(cfg *config.LLMConfig, defaultModel string) {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
}
