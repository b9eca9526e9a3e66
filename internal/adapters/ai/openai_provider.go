package ai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"minerva/pkg/errors"
)

// OpenAIProvider implements the OpenAI integration.
type OpenAIProvider struct {
	apiKey  string
	timeout time.Duration
	limiter *rate.Limiter
	client  *http.Client
	models  []ModelInfo
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey string, timeout time.Duration, limiter *rate.Limiter) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:  apiKey,
		timeout: timeout,
		limiter: limiter,
		client:  &http.Client{Timeout: timeout},
		models:  openAIModels(),
	}
}

// Name returns provider name.
func (p *OpenAIProvider) Name() string {
	return ProviderNameOpenAI.String()
}

// GetModel returns model info by name.
func (p *OpenAIProvider) GetModel(_ context.Context, model string) (ModelInfo, error) {
	for _, m := range p.models {
		if strings.EqualFold(m.Name, model) {
			return m, nil
		}
	}
	return ModelInfo{}, errors.Wrapf(errors.ErrModelNotFound, "openai model %s not found", model)
}

// ListModels lists available models.
func (p *OpenAIProvider) ListModels(_ context.Context) ([]ModelInfo, error) {
	return p.models, nil
}

// SupportsTools indicates tool calling support.
func (p *OpenAIProvider) SupportsTools() bool { return true }

func openAIModels() []ModelInfo {
	return []ModelInfo{
		{
			Name:           string(ModelGPT4o),
			Family:         "gpt-4o",
			MaxTokens:      128000,
			SupportsTools:  true,
			SupportsImages: true,
		},
		{
			Name:           string(ModelGPT4oMini),
			Family:         "gpt-4o",
			MaxTokens:      128000,
			SupportsTools:  true,
			SupportsImages: true,
		},
	}
}
