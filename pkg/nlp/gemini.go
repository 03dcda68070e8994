package nlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"github.com/soundprediction/skls/pkg/logger"
	"github.com/soundprediction/skls/pkg/types"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	geminiTopP = 0.9
	geminiTopK = 40
)

// geminiSender performs one generate call. history excludes the final turn.
type geminiSender func(ctx context.Context, model *genai.GenerativeModel, history []*genai.Content, last *genai.Content) (*genai.GenerateContentResponse, error)

// GeminiClient implements Client for Google Gemini models.
type GeminiClient struct {
	client    *genai.Client
	model     string
	timeout   time.Duration
	newModel  func(name string) *genai.GenerativeModel
	send      geminiSender
	newPolicy func() backoff.BackOff
	log       *slog.Logger
}

// NewGeminiClient creates a Gemini client. An empty model falls back to
// DefaultGeminiModel with a warning.
func NewGeminiClient(ctx context.Context, cfg *LLMConfig) (*GeminiClient, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY or pass it in the config", ErrMissingAPIKey)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	g := newGeminiClient(cfg, client.GenerativeModel, sendChat)
	g.client = client
	return g, nil
}

func newGeminiClient(cfg *LLMConfig, newModel func(string) *genai.GenerativeModel, send geminiSender) *GeminiClient {
	log := logger.Get("nlp.gemini")
	model := cfg.Model
	if model == "" {
		log.Warn("No model name provided. Ensure GEMINI_MODEL is set. Defaulting to " + DefaultGeminiModel)
		model = DefaultGeminiModel
	}
	timeout := 600 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &GeminiClient{
		model:     model,
		timeout:   timeout,
		newModel:  newModel,
		send:      send,
		newPolicy: deadlineBackoff,
		log:       log,
	}
}

// deadlineBackoff retries deadline errors starting at 1s, doubling up to 60s,
// for at most 600s overall.
func deadlineBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxInterval = 60 * time.Second
	b.MaxElapsedTime = 600 * time.Second
	b.RandomizationFactor = 0
	return b
}

// Model implements Client.
func (g *GeminiClient) Model() string {
	return g.model
}

// Close implements Client.
func (g *GeminiClient) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Complete implements Client.
func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	req = withDefaults(req)

	contents := geminiContents(req.History, req.User)
	if len(contents) == 0 {
		return "", ErrNoMessages
	}

	model := g.newModel(g.model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	model.SetTemperature(req.Temperature)
	model.SetMaxOutputTokens(int32(req.MaxTokens))
	model.SetTopP(geminiTopP)
	model.SetTopK(geminiTopK)

	g.log.Debug("Sending to Gemini", "model", g.model, "messages", len(contents))

	var resp *genai.GenerateContentResponse
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		var err error
		resp, err = g.send(callCtx, model, contents[:len(contents)-1], contents[len(contents)-1])
		if err == nil {
			return nil
		}
		if ctx.Err() == nil && isDeadlineError(err) {
			g.log.WarnContext(ctx, "Gemini deadline exceeded, retrying", "error", err)
			return err
		}
		return backoff.Permanent(geminiError(err))
	}

	if err := backoff.Retry(op, backoff.WithContext(g.newPolicy(), ctx)); err != nil {
		g.log.ErrorContext(ctx, "Google API Error", "error", err)
		return "", err
	}

	text, err := geminiText(resp)
	if err != nil {
		g.log.ErrorContext(ctx, "Value Error (often content safety)", "error", err)
		return "", err
	}
	return text, nil
}

// geminiError maps safety blocks to RefusalError and quota errors to
// RateLimitError. Anything else is returned unchanged.
func geminiError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return NewRefusalError("Gemini " + blocked.Error())
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return NewRateLimitError("Gemini rate limit: " + apiErr.Message)
	}
	return err
}

// geminiContents maps history onto Gemini turns. Assistant-like roles become
// "model", system messages are dropped and everything else is "user".
func geminiContents(history []types.Message, user string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		if m.Role == RoleSystem {
			continue
		}
		role := string(RoleUser)
		if isAssistantRole(m.Role) {
			role = string(RoleModel)
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	if user != "" {
		contents = append(contents, &genai.Content{Role: string(RoleUser), Parts: []genai.Part{genai.Text(user)}})
	}
	return contents
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", NewRefusalError("Gemini blocked the prompt: " + resp.PromptFeedback.BlockReason.String())
	}
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", NewRefusalError("Gemini stopped the answer for safety")
	}

	empty := NewEmptyResponseError("Gemini returned an empty response.")
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", empty
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", empty
	}
	return sb.String(), nil
}

func isDeadlineError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusGatewayTimeout
	}
	return strings.Contains(strings.ToLower(err.Error()), "deadline exceeded")
}

func sendChat(ctx context.Context, model *genai.GenerativeModel, history []*genai.Content, last *genai.Content) (*genai.GenerateContentResponse, error) {
	if len(history) == 0 {
		return model.GenerateContent(ctx, last.Parts...)
	}
	cs := model.StartChat()
	cs.History = history
	return cs.SendMessage(ctx, last.Parts...)
}
