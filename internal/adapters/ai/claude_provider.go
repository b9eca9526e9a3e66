package ai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"minerva/pkg/errors"
)

// ClaudeProvider implements the Anthropic Claude integration.
type ClaudeProvider struct {
	apiKey  string
	timeout time.Duration
	limiter *rate.Limiter
	client  *http.Client
	models  []ModelInfo
}

// NewClaudeProvider creates a new Claude provider.
func NewClaudeProvider(apiKey string, timeout time.Duration, limiter *rate.Limiter) *ClaudeProvider {
	return &ClaudeProvider{
		apiKey:  apiKey,
		timeout: timeout,
		limiter: limiter,
		client:  &http.Client{Timeout: timeout},
		models:  claudeModels(),
	}
}

// Name returns provider name.
func (p *ClaudeProvider) Name() string {
	return ProviderNameClaude.String()
}

// GetModel returns model info by name.
func (p *ClaudeProvider) GetModel(_ context.Context, model string) (ModelInfo, error) {
	for _, m := range p.models {
		if strings.EqualFold(m.Name, model) {
			return m, nil
		}
	}
	return ModelInfo{}, errors.Wrapf(errors.ErrModelNotFound, "claude model %s not found", model)
}

// ListModels lists available models.
func (p *ClaudeProvider) ListModels(_ context.Context) ([]ModelInfo, error) {
	return p.models, nil
}

// SupportsTools indicates tool calling support.
func (p *ClaudeProvider) SupportsTools() bool { return true }

func claudeModels() []ModelInfo {
	return []ModelInfo{
		{
			Name:           string(ModelClaude45Sonnet),
			Family:         "claude-4.5",
			MaxTokens:      200000,
			SupportsTools:  true,
			SupportsImages: true,
		},
		{
			Name:           string(ModelClaude35Haiku),
			Family:         "claude-3.5",
			MaxTokens:      200000,
			SupportsTools:  true,
			SupportsImages: true,
		},
	}
}
