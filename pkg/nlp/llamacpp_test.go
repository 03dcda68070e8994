package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/soundprediction/skls/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeChatServer(t *testing.T, reply string, choices bool) (*httptest.Server, *openai.ChatCompletionRequest, *http.Header) {
	t.Helper()
	var got openai.ChatCompletionRequest
	var headers http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		resp := openai.ChatCompletionResponse{ID: "cmpl-1", Model: got.Model}
		if choices {
			resp.Choices = []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
			}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &got, &headers
}

func TestLlamaCppComplete(t *testing.T) {
	srv, got, headers := fakeChatServer(t, "a poem about rust", true)
	c := NewLlamaCppClient(&LLMConfig{BaseURL: srv.URL + "/v1", APIKey: "secret"})

	out, err := c.Complete(context.Background(), CompletionRequest{
		System: "You are a minimalist poet.",
		User:   "Write a poem about rust (the metal).",
	})
	require.NoError(t, err)
	assert.Equal(t, "a poem about rust", out)

	assert.Equal(t, DefaultLlamaCppModel, got.Model)
	assert.InDelta(t, DefaultTemperature, got.Temperature, 1e-6)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
}

func TestLlamaCppAcceptsFullEndpointURL(t *testing.T) {
	srv, _, _ := fakeChatServer(t, "ok", true)
	c := NewLlamaCppClient(&LLMConfig{BaseURL: srv.URL + "/v1/chat/completions"})

	out, err := c.Complete(context.Background(), CompletionRequest{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestLlamaCppNoChoices(t *testing.T) {
	srv, _, _ := fakeChatServer(t, "", false)
	c := NewLlamaCppClient(&LLMConfig{BaseURL: srv.URL + "/v1"})

	_, err := c.Complete(context.Background(), CompletionRequest{User: "hi"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestLlamaCppContentFilterIsRefusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID: "cmpl-2",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant},
				FinishReason: openai.FinishReasonContentFilter,
			}},
		})
	}))
	t.Cleanup(srv.Close)
	c := NewLlamaCppClient(&LLMConfig{BaseURL: srv.URL + "/v1"})

	_, err := c.Complete(context.Background(), CompletionRequest{User: "hi"})
	assert.ErrorIs(t, err, ErrRefusal)
	assert.False(t, isRetryableError(err))
}

func TestLlamaCppTooManyRequestsIsRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slots busy","type":"unavailable_error"}}`))
	}))
	t.Cleanup(srv.Close)
	c := NewLlamaCppClient(&LLMConfig{BaseURL: srv.URL + "/v1"})

	_, err := c.Complete(context.Background(), CompletionRequest{User: "hi"})
	assert.ErrorIs(t, err, ErrRateLimit)
	assert.Contains(t, err.Error(), "slots busy")
	assert.True(t, isRetryableError(err))
}

func TestLlamaCppServerErrorPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad prompt","type":"invalid_request_error"}}`))
	}))
	t.Cleanup(srv.Close)
	c := NewLlamaCppClient(&LLMConfig{BaseURL: srv.URL + "/v1"})

	_, err := c.Complete(context.Background(), CompletionRequest{User: "hi"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimit)
}

func TestLlamaCppNoMessages(t *testing.T) {
	c := NewLlamaCppClient(nil)
	_, err := c.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, ErrNoMessages)
	assert.Equal(t, DefaultLlamaCppModel, c.Model())
}

func TestLlamaCppMessages(t *testing.T) {
	history := []types.Message{
		{Role: "system", Content: "old system"},
		{Role: "user", Content: "u1"},
		{Role: "model", Content: "m1"},
		{Role: "agent", Content: "a1"},
	}

	t.Run("explicit system prompt drops history system turns", func(t *testing.T) {
		msgs := llamaCppMessages(CompletionRequest{System: "sys", History: history, User: "u2"})
		roles := make([]string, len(msgs))
		for i, m := range msgs {
			roles[i] = m.Role
		}
		assert.Equal(t, []string{"system", "user", "assistant", "assistant", "user"}, roles)
		assert.Equal(t, "sys", msgs[0].Content)
	})

	t.Run("history system turn kept without override", func(t *testing.T) {
		msgs := llamaCppMessages(CompletionRequest{History: history})
		require.Len(t, msgs, 4)
		assert.Equal(t, "old system", msgs[0].Content)
	})
}
