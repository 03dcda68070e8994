package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/soundprediction/skls/pkg/logger"
)

// LlamaCppClient implements Client against the llama.cpp /embedding endpoint.
type LlamaCppClient struct {
	base       string
	batchSize  int
	httpClient *http.Client
	log        *slog.Logger
}

// Option customises a LlamaCppClient.
type Option func(*LlamaCppClient)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *LlamaCppClient) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *LlamaCppClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewLlamaCppClient creates a new llama.cpp embedding client.
func NewLlamaCppClient(cfg Config, opts ...Option) *LlamaCppClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	timeout := 60 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	c := &LlamaCppClient{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		batchSize:  cfg.BatchSize,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.Get("embedder"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.log.Info("Embedding server instantiated", "base", c.base)
	return c
}

// BaseURL returns the server address.
func (c *LlamaCppClient) BaseURL() string {
	return c.base
}

// embeddingItem is one entry of the /embedding response. Depending on the
// server version the embedding is a flat vector or a list of per-token rows.
type embeddingItem struct {
	Index     int             `json:"index"`
	Embedding json.RawMessage `json:"embedding"`
}

func (it embeddingItem) vector() ([]float32, error) {
	var nested [][]float32
	if err := json.Unmarshal(it.Embedding, &nested); err == nil {
		if len(nested) == 0 || len(nested[0]) == 0 {
			return nil, ErrMalformedResponse
		}
		return nested[0], nil
	}

	var flat []float32
	if err := json.Unmarshal(it.Embedding, &flat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(flat) == 0 {
		return nil, ErrMalformedResponse
	}
	return flat, nil
}

// EmbedText generates an embedding for the given text.
func (c *LlamaCppClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	c.log.Debug("Embedding text", "preview", preview(text, 30))

	items, err := c.post(ctx, map[string]any{"content": text})
	if err != nil {
		c.log.Error("Failed to communicate with the embedding server", "error", err)
		return nil, err
	}
	if len(items) == 0 {
		c.log.Error("Failed to parse embedding from server response", "error", ErrMalformedResponse)
		return nil, ErrMalformedResponse
	}

	vec, err := items[0].vector()
	if err != nil {
		c.log.Error("Failed to parse embedding from server response", "error", err)
		return nil, err
	}
	return vec, nil
}

// EmbedTexts generates embeddings for texts in batches. A batchSize <= 0 uses
// the configured batch size.
func (c *LlamaCppClient) EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = c.batchSize
	}

	previews := make([]string, 0, 3)
	for _, t := range texts[:min(3, len(texts))] {
		previews = append(previews, fmt.Sprintf("%s... len -> %d", preview(t, 30), len(t)))
	}
	c.log.Debug("Embedding texts", "count", len(texts), "preview", previews)

	out := make([][]float32, 0, len(texts))
	var errs []error
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch := texts[start:end]

		vecs, err := c.embedBatch(ctx, batch)
		if err != nil {
			c.log.Error("Failed to embed batch", "start", start, "size", len(batch), "error", err)
			errs = append(errs, fmt.Errorf("batch %d-%d: %w", start, end, err))
			out = append(out, make([][]float32, len(batch))...)
			continue
		}
		out = append(out, vecs...)
	}
	return out, errors.Join(errs...)
}

func (c *LlamaCppClient) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	items, err := c.post(ctx, map[string]any{"content": batch})
	if err != nil {
		return nil, err
	}
	if len(items) != len(batch) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrMalformedResponse, len(batch), len(items))
	}

	vecs := make([][]float32, len(items))
	for i, it := range items {
		v, err := it.vector()
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

func (c *LlamaCppClient) post(ctx context.Context, payload any) ([]embeddingItem, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/embedding", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var items []embeddingItem
	if err := json.Unmarshal(raw, &items); err != nil {
		// single-object answers from older servers
		var single embeddingItem
		if err2 := json.Unmarshal(raw, &single); err2 != nil || len(single.Embedding) == 0 {
			c.log.Debug("Received data", "body", preview(string(raw), 200))
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		items = []embeddingItem{single}
	}
	return items, nil
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Model returns the name of the model loaded by the server, without any
// Windows-style directory prefix.
func (c *LlamaCppClient) Model(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/models", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	raw, err := c.do(req)
	if err != nil {
		c.log.Error("Error fetching models from server", "error", err)
		return "", err
	}

	var resp modelsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(resp.Data) == 0 {
		return "", ErrNoModels
	}

	id := resp.Data[0].ID
	return id[strings.LastIndex(id, `\`)+1:], nil
}

func (c *LlamaCppClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server returned status %d: %s", resp.StatusCode, preview(string(raw), 200))
	}
	return raw, nil
}
