package nlp

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/skls/pkg/alert"
	"github.com/soundprediction/skls/pkg/config"
)

// NewClient creates the backend named by provider.
func NewClient(ctx context.Context, provider string, cfg *LLMConfig) (Client, error) {
	switch strings.ToLower(provider) {
	case ProviderGoogle, ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case ProviderLlamaCpp, "":
		return NewLlamaCppClient(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

// NewClientFromConfig builds the configured backend wrapped in a RetryClient
// and, when enabled, a CircuitBreakerClient. The RetryClient only backs off on
// rate limits: the generator's attempt loop owns every other retry.
func NewClientFromConfig(ctx context.Context, cfg *config.Config, alerter alert.Alerter) (Client, error) {
	var llmCfg *LLMConfig
	switch strings.ToLower(cfg.Generator.Backend) {
	case ProviderGoogle, ProviderGemini:
		llmCfg = NewLLMConfig().WithAPIKey(cfg.Gemini.APIKey).WithModel(cfg.Gemini.Model)
	default:
		llmCfg = NewLLMConfig().
			WithAPIKey(cfg.LlamaCpp.APIKey).
			WithModel(cfg.LlamaCpp.Model).
			WithBaseURL(cfg.LlamaCpp.BaseURL)
	}

	client, err := NewClient(ctx, cfg.Generator.Backend, llmCfg)
	if err != nil {
		return nil, err
	}

	retryCfg := DefaultRetryConfig()
	retryCfg.RateLimitOnly = true
	var wrapped Client = NewRetryClient(client, retryCfg)
	if cfg.CircuitBreaker.Enabled {
		wrapped = NewCircuitBreakerClient(wrapped, cfg.CircuitBreaker, alerter, "generator-"+client.Model())
	}
	return wrapped, nil
}
