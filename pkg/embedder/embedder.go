package embedder

import (
	"context"
	"errors"
)

// Default configuration values
const (
	DefaultBaseURL   = "http://localhost:8080"
	DefaultBatchSize = 20
)

var (
	// ErrMalformedResponse is returned when the server answer has no usable embedding.
	ErrMalformedResponse = errors.New("malformed embedding response")
	// ErrNoModels is returned when the server reports no loaded model.
	ErrNoModels = errors.New("no models found")
)

// Client generates embeddings for text.
type Client interface {
	// EmbedText returns the embedding of a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)
	// EmbedTexts returns index-aligned embeddings for texts, batchSize at a time.
	EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
}

// Config holds embedding client settings.
type Config struct {
	BaseURL   string `json:"base_url,omitempty"`
	BatchSize int    `json:"batch_size,omitempty"`
	// TimeoutSeconds bounds every HTTP request; 0 means 60 seconds.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
