package nlp

import (
	"context"
	"testing"

	"github.com/soundprediction/skls/pkg/alert"
	"github.com/soundprediction/skls/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c, err := NewClient(context.Background(), "llamacpp", nil)
	require.NoError(t, err)
	assert.IsType(t, &LlamaCppClient{}, c)

	_, err = NewClient(context.Background(), "GOOGLE", &LLMConfig{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewClient(context.Background(), "openai", nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewClientFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Generator.Backend = "llamacpp"
	cfg.LlamaCpp.Model = "qwen"

	c, err := NewClientFromConfig(context.Background(), cfg, alert.NoOpAlerter{})
	require.NoError(t, err)
	require.IsType(t, &RetryClient{}, c)
	assert.True(t, c.(*RetryClient).config.RateLimitOnly, "generator attempts own non rate limit retries")
	assert.Equal(t, "qwen", c.Model())

	cfg.CircuitBreaker.Enabled = true
	c, err = NewClientFromConfig(context.Background(), cfg, alert.NoOpAlerter{})
	require.NoError(t, err)
	assert.IsType(t, &CircuitBreakerClient{}, c)
}
