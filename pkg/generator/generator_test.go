package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/soundprediction/skls/pkg/nlp"
	"github.com/soundprediction/skls/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type car struct {
	Make  string   `json:"make" jsonschema:"description=Manufacturer"`
	Year  int      `json:"year" validate:"gte=1886"`
	Color string   `json:"color,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

type scriptedReply struct {
	text string
	err  error
}

// scriptedClient replays replies in order and records every request.
type scriptedClient struct {
	replies  []scriptedReply
	requests []nlp.CompletionRequest
}

func (c *scriptedClient) Complete(_ context.Context, req nlp.CompletionRequest) (string, error) {
	req.History = append([]types.Message(nil), req.History...)
	c.requests = append(c.requests, req)
	i := len(c.requests) - 1
	if i >= len(c.replies) {
		i = len(c.replies) - 1
	}
	return c.replies[i].text, c.replies[i].err
}

func (c *scriptedClient) Model() string { return "scripted" }
func (c *scriptedClient) Close() error  { return nil }

func newTestGenerator(replies ...scriptedReply) (*Generator, *scriptedClient) {
	client := &scriptedClient{replies: replies}
	return New(client, WithRetryDelay(0)), client
}

func TestGenerateOneShotFirstAttempt(t *testing.T) {
	g, client := newTestGenerator(scriptedReply{text: "<think>hmm</think>```json\n{\"make\": \"Ford\", \"year\": 2020,}\n```"})

	got, err := GenerateOneShot[car](context.Background(), g, WithPrompt("Describe a car"), WithLanguage("Russian"))
	require.NoError(t, err)
	assert.Equal(t, &car{Make: "Ford", Year: 2020}, got)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, DefaultSystemPrompt, req.System)
	assert.Equal(t, MaxTokens, req.MaxTokens)
	assert.InDelta(t, DefaultTemperature, req.Temperature, 1e-6)
	require.Len(t, req.History, 1)

	prompt := req.History[0].Content
	assert.Equal(t, nlp.RoleUser, req.History[0].Role)
	assert.Contains(t, prompt, "Target JSON Schema:\n{")
	assert.Contains(t, prompt, `"make"`)
	assert.Contains(t, prompt, "1. Describe a car")
	assert.Contains(t, prompt, "2. All string values must be in Russian.")
	assert.Contains(t, prompt, "3. Strict Adherence to the Schema is required.")
}

func TestGenerateUsesFirstListItem(t *testing.T) {
	g, _ := newTestGenerator(scriptedReply{text: `[{"make":"Lada","year":1999},{"make":"Fiat","year":2001}]`})

	got, err := GenerateOneShot[car](context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, "Lada", got.Make)
}

func TestGenerateReflexionOnUnreadableJSON(t *testing.T) {
	g, client := newTestGenerator(
		scriptedReply{text: "I cannot do that"},
		scriptedReply{text: `{"make":"Volvo","year":2010}`},
	)

	got, err := GenerateOneShot[car](context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, "Volvo", got.Make)

	require.Len(t, client.requests, 2)
	history := client.requests[1].History
	require.Len(t, history, 3)
	assert.Equal(t, nlp.RoleAssistant, history[1].Role)
	assert.Equal(t, "I cannot do that", history[1].Content)
	assert.Equal(t, "Output was unreadable JSON. Output ONLY valid JSON.", history[2].Content)
}

func TestGenerateReflexionOnSchemaError(t *testing.T) {
	g, client := newTestGenerator(
		scriptedReply{text: `{"make":"Audi"}`},
		scriptedReply{text: `{"make":"Audi","year":1500}`},
		scriptedReply{text: `{"make":"Audi","year":1999}`},
	)

	got, err := GenerateOneShot[car](context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 1999, got.Year)

	require.Len(t, client.requests, 3)
	history := client.requests[2].History
	require.Len(t, history, 5)
	assert.True(t, strings.HasPrefix(history[2].Content, "JSON valid, but schema invalid: "))
	assert.True(t, strings.HasSuffix(history[2].Content, ". Fix structure."))
	assert.Contains(t, history[4].Content, "gte", "struct tag validation feeds back too")
}

type person struct {
	Name     string  `json:"name" validate:"required"`
	Nickname *string `json:"nickname,omitempty" jsonschema:"nullable"`
}

func TestGenerateAcceptsNullAndUnknownKeys(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "null optional field", reply: `{"name":"Ann","nickname":null}`},
		{name: "unknown key", reply: `{"name":"Ann","confidence":0.9}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, client := newTestGenerator(scriptedReply{text: tt.reply})

			got, err := GenerateOneShot[person](context.Background(), g, WithRetries(2))
			require.NoError(t, err)
			assert.Equal(t, "Ann", got.Name)
			assert.Nil(t, got.Nickname)
			assert.Len(t, client.requests, 1)
		})
	}
}

func TestGenerateBackendErrorKeepsHistory(t *testing.T) {
	g, client := newTestGenerator(
		scriptedReply{err: errors.New("connection refused")},
		scriptedReply{text: `{"make":"Kia","year":2015}`},
	)

	_, err := GenerateOneShot[car](context.Background(), g)
	require.NoError(t, err)
	require.Len(t, client.requests, 2)
	assert.Len(t, client.requests[1].History, 1)
}

func TestGenerateExhaustsRetries(t *testing.T) {
	g, client := newTestGenerator(scriptedReply{text: "nope"})

	_, err := GenerateOneShot[car](context.Background(), g, WithRetries(3))
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "failed to generate valid car after 3 attempts")
	assert.Len(t, client.requests, 3)
}

func TestGenerateOverrides(t *testing.T) {
	g, client := newTestGenerator(scriptedReply{text: `{"make":"BMW","year":2000}`})

	var c car
	err := g.Generate(context.Background(), &c, WithSystemPrompt("custom"), WithTemperature(0.1))
	require.NoError(t, err)
	assert.Equal(t, "custom", client.requests[0].System)
	assert.InDelta(t, 0.1, client.requests[0].Temperature, 1e-6)
	assert.Contains(t, client.requests[0].History[0].Content, "1. "+DefaultPrompt)
	assert.Contains(t, client.requests[0].History[0].Content, "2. \n")
}

func TestGenerateRejectsNonPointer(t *testing.T) {
	g, _ := newTestGenerator(scriptedReply{text: "{}"})
	assert.Error(t, g.Generate(context.Background(), car{}))
	assert.Error(t, g.Generate(context.Background(), (*car)(nil)))
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{{err: errors.New("boom")}}}
	g := New(client, WithRetryDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := GenerateOneShot[car](ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, client.requests, 1)
}

func TestParseAndRepair(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    any
		wasList bool
		wantErr bool
	}{
		{name: "object", in: `{"a":1}`, want: map[string]any{"a": float64(1)}},
		{name: "fenced", in: "```json\n{\"a\":1}\n```", want: map[string]any{"a": float64(1)}},
		{name: "single quotes", in: `{'a': 'b'}`, want: map[string]any{"a": "b"}},
		{name: "unclosed", in: `{"a": [1, 2`, want: map[string]any{"a": []any{float64(1), float64(2)}}},
		{name: "list", in: `[{"a":1}]`, want: map[string]any{"a": float64(1)}, wasList: true},
		{name: "empty list", in: `[]`, wantErr: true},
		{name: "number", in: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, wasList, err := parseAndRepair(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnreadableJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wasList, wasList)
		})
	}
}

func TestRemoveThinkTags(t *testing.T) {
	assert.Equal(t, "before after", RemoveThinkTags("before <think>\nreasoning\n</think>after"))
}
