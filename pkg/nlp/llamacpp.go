package nlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/soundprediction/skls/pkg/logger"
)

// LlamaCppClient implements Client against a llama.cpp server through its
// OpenAI-compatible chat completions endpoint.
type LlamaCppClient struct {
	client  *openai.Client
	baseURL string
	model   string
	log     *slog.Logger
}

// NewLlamaCppClient creates a llama.cpp client. BaseURL defaults to
// DefaultLlamaCppBaseURL; a trailing /chat/completions is tolerated.
func NewLlamaCppClient(cfg *LLMConfig) *LlamaCppClient {
	if cfg == nil {
		cfg = NewLLMConfig()
	}
	base := strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/chat/completions")
	if base == "" {
		base = DefaultLlamaCppBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultLlamaCppModel
	}
	timeout := 600 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = base
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	c := &LlamaCppClient{
		client:  openai.NewClientWithConfig(clientConfig),
		baseURL: base,
		model:   model,
		log:     logger.Get("nlp.llamacpp"),
	}
	c.log.Info("LlamaCppGenAI initialized", "base_url", base)
	return c
}

// Model implements Client.
func (c *LlamaCppClient) Model() string {
	return c.model
}

// Close implements Client.
func (c *LlamaCppClient) Close() error {
	return nil
}

// Complete implements Client.
func (c *LlamaCppClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	req = withDefaults(req)

	messages := llamaCppMessages(req)
	if len(messages) == 0 {
		return "", ErrNoMessages
	}
	c.log.Debug("Payload sending to LlamaCpp", "messages", len(messages))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		c.log.ErrorContext(ctx, "LlamaCpp API Request failed", "error", err)
		return "", llamaCppError(err)
	}
	if len(resp.Choices) == 0 {
		c.log.ErrorContext(ctx, "Malformed response format from LlamaCpp", "id", resp.ID)
		return "", fmt.Errorf("%w: no choices in llama.cpp response", ErrMalformedResponse)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", NewRefusalError("llama.cpp answer was filtered")
	}
	if choice.Message.Content == "" && choice.Message.Refusal != "" {
		return "", NewRefusalError("llama.cpp refused: " + choice.Message.Refusal)
	}
	return choice.Message.Content, nil
}

// llamaCppError turns HTTP 429 answers into a RateLimitError.
func llamaCppError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return NewRateLimitError("llama.cpp rate limit: " + apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return NewRateLimitError("llama.cpp rate limit: " + reqErr.Error())
	}
	return err
}

// llamaCppMessages puts the system prompt first, then history (assistant
// aliases normalised, history system turns dropped when a system prompt is
// given), then the user turn.
func llamaCppMessages(req CompletionRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.History {
		role := string(m.Role)
		if m.Role == RoleModel || m.Role == RoleAgent {
			role = openai.ChatMessageRoleAssistant
		}
		if m.Role == RoleSystem && req.System != "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	if req.User != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})
	}
	return messages
}
