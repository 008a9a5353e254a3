// Package llm hands the evidence pack to a language model and turns its
// answer into validated facts and synthesis payloads. Model failures never
// escape this package: every failed pass is replaced by a fallback payload
// carrying a structured error.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Generator is the single blocking call a model backend must provide. The
// returned value is the decoded JSON answer, of any JSON type.
type Generator interface {
	Generate(ctx context.Context, system, user string) (any, error)
	Model() string
}

// Providers.
const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// Config selects and configures a backend.
type Config struct {
	Provider string
	Host     string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// NewGenerator builds the backend named by cfg.Provider.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	switch cfg.Provider {
	case "", ProviderOllama:
		var opts []Option
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		return NewOllama(cfg.Host, cfg.Model, opts...), nil
	case ProviderGemini:
		var opts []GeminiOption
		if cfg.Timeout > 0 {
			opts = append(opts, WithGeminiTimeout(cfg.Timeout))
		}
		return NewGemini(ctx, cfg.APIKey, cfg.Model, opts...)
	}
	return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
}
