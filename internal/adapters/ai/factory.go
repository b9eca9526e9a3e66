package ai

import (
	"strings"

	"golang.org/x/time/rate"

	"minerva/internal/adapters/config"
	"minerva/pkg/errors"
)

// BuildRegistry initializes a ProviderRegistry with all enabled providers
// based on configuration. Providers share the configured per-minute budget
// individually; the limiter is local per process.
func BuildRegistry(cfg config.AIConfig) (*ProviderRegistry, error) {
	registry := NewProviderRegistry()

	if cfg.ClaudeKey != "" {
		limiter := newLimiter(cfg.ReqPerMinute)
		if err := registry.Register(NewClaudeProvider(cfg.ClaudeKey, cfg.RequestTimeout, limiter)); err != nil {
			return nil, err
		}
	}

	if cfg.OpenAIKey != "" {
		limiter := newLimiter(cfg.ReqPerMinute)
		if err := registry.Register(NewOpenAIProvider(cfg.OpenAIKey, cfg.RequestTimeout, limiter)); err != nil {
			return nil, err
		}
	}

	if len(registry.List()) == 0 {
		return nil, errors.Wrap(errors.ErrUnavailable, "no AI providers configured")
	}

	return registry, nil
}

func newLimiter(reqPerMinute float64) *rate.Limiter {
	if reqPerMinute <= 0 {
		return nil
	}
	burst := int(reqPerMinute / 10)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(reqPerMinute/60.0), burst)
}

// NormalizeProviderName makes provider lookup more forgiving.
func NormalizeProviderName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DefaultModelFor returns the model used when none is configured.
func DefaultModelFor(provider string) string {
	switch NormalizeProviderName(provider) {
	case ProviderNameOpenAI.String():
		return string(ModelGPT4o)
	default:
		return string(ModelClaude45Sonnet)
	}
}
