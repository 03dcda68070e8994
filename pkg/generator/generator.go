package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/soundprediction/skls/pkg/logger"
	"github.com/soundprediction/skls/pkg/nlp"
	"github.com/soundprediction/skls/pkg/types"
)

const (
	DefaultRetries     = 8
	DefaultTemperature = 0.7
	DefaultPrompt      = "Generate a creative, random example."
	// MaxTokens is the default output budget of a generation request.
	MaxTokens = 2048

	DefaultSystemPrompt = "You are a strict JSON generation API. \n" +
		"Output ONLY valid JSON. \n" +
		"Do not output markdown blocks, comments, or conversational text."

	unreadableFeedback = "Output was unreadable JSON. Output ONLY valid JSON."
)

// ErrGenerationFailed is returned when no attempt produced a valid value.
var ErrGenerationFailed = errors.New("generation failed")

// Generator turns model output into typed values.
type Generator struct {
	client     nlp.Client
	validate   *validator.Validate
	retryDelay time.Duration
	log        *slog.Logger
}

// Option customises a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// WithRetryDelay sets the pause after a backend error. The default is one second.
func WithRetryDelay(d time.Duration) Option {
	return func(g *Generator) { g.retryDelay = d }
}

// New creates a Generator backed by client.
func New(client nlp.Client, opts ...Option) *Generator {
	g := &Generator{
		client:     client,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		retryDelay: time.Second,
		log:        logger.Get("generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log.Info("Generator initialized with model: " + client.Model())
	return g
}

// Model returns the backend model name.
func (g *Generator) Model() string {
	return g.client.Model()
}

type generateOptions struct {
	prompt       string
	language     string
	retries      int
	systemPrompt string
	temperature  float32
	maxTokens    int
}

// GenerateOption customises a single generation.
type GenerateOption func(*generateOptions)

// WithPrompt sets the task description placed in the instructions.
func WithPrompt(p string) GenerateOption {
	return func(o *generateOptions) { o.prompt = p }
}

// WithLanguage requires every string value to be written in language.
func WithLanguage(language string) GenerateOption {
	return func(o *generateOptions) { o.language = language }
}

// WithRetries sets the number of attempts.
func WithRetries(n int) GenerateOption {
	return func(o *generateOptions) { o.retries = n }
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(p string) GenerateOption {
	return func(o *generateOptions) { o.systemPrompt = p }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) GenerateOption {
	return func(o *generateOptions) { o.temperature = t }
}

// WithMaxTokens sets the output token budget of each request.
func WithMaxTokens(n int) GenerateOption {
	return func(o *generateOptions) { o.maxTokens = n }
}

// GenerateOneShot generates a value of type T.
func GenerateOneShot[T any](ctx context.Context, g *Generator, opts ...GenerateOption) (*T, error) {
	var out T
	if err := g.Generate(ctx, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

// Generate fills target, which must be a non-nil pointer, with a generated
// value.
func (g *Generator) Generate(ctx context.Context, target any, opts ...GenerateOption) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer, got %T", target)
	}
	t := rv.Elem().Type()

	o := generateOptions{
		retries:      DefaultRetries,
		systemPrompt: DefaultSystemPrompt,
		temperature:  DefaultTemperature,
		maxTokens:    MaxTokens,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxTokens <= 0 {
		o.maxTokens = MaxTokens
	}
	if o.prompt == "" {
		o.prompt = DefaultPrompt
	}
	if o.systemPrompt == "" {
		o.systemPrompt = DefaultSystemPrompt
	}

	defer logger.MeasureTime(g.log, "generate_one_shot")()

	schema, err := schemaFor(t)
	if err != nil {
		return err
	}

	history := []types.Message{nlp.NewUserMessage(initialPrompt(schema.pretty, o.prompt, o.language))}

	for i := 0; i < o.retries; i++ {
		g.log.InfoContext(ctx, fmt.Sprintf("Attempt %d/%d for %s", i+1, o.retries, t.Name()))

		response, err := g.client.Complete(ctx, nlp.CompletionRequest{
			System:      o.systemPrompt,
			History:     history,
			Temperature: o.temperature,
			MaxTokens:   o.maxTokens,
		})
		if err != nil {
			g.log.ErrorContext(ctx, "Unexpected error", "error", err)
			if werr := g.wait(ctx); werr != nil {
				return werr
			}
			continue
		}

		parsed, wasList, err := parseAndRepair(response)
		if err != nil {
			g.log.WarnContext(ctx, "JSON Parsing Failed (even after repair): " + err.Error())
			history = append(history,
				nlp.NewAssistantMessage(response),
				nlp.NewUserMessage(unreadableFeedback))
			continue
		}
		if wasList {
			g.log.WarnContext(ctx, "Received a list but expected an object. Using first item.")
		}

		if err := g.decode(schema, parsed, target); err != nil {
			g.log.WarnContext(ctx, "Schema Validation Failed: " + err.Error())
			history = append(history,
				nlp.NewAssistantMessage(response),
				nlp.NewUserMessage(fmt.Sprintf("JSON valid, but schema invalid: %s. Fix structure.", err)))
			continue
		}
		return nil
	}

	return fmt.Errorf("%w: failed to generate valid %s after %d attempts", ErrGenerationFailed, t.Name(), o.retries)
}

// decode validates parsed against the schema, then decodes it into target and
// checks struct tags. target is only modified on success.
func (g *Generator) decode(schema *compiledSchema, parsed any, target any) error {
	if err := schema.validate(parsed); err != nil {
		return err
	}

	raw, err := json.Marshal(parsed)
	if err != nil {
		return err
	}
	candidate := reflect.New(reflect.TypeOf(target).Elem())
	if err := json.Unmarshal(raw, candidate.Interface()); err != nil {
		return err
	}

	if candidate.Elem().Kind() == reflect.Struct {
		if err := g.validate.Struct(candidate.Interface()); err != nil {
			return err
		}
	}

	reflect.ValueOf(target).Elem().Set(candidate.Elem())
	return nil
}

func (g *Generator) wait(ctx context.Context) error {
	if g.retryDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(g.retryDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func initialPrompt(schema, description, language string) string {
	langInstruction := ""
	if language != "" {
		langInstruction = fmt.Sprintf("All string values must be in %s.", language)
	}
	return fmt.Sprintf(`
Target JSON Schema:
%s

Instructions:
1. %s
2. %s
3. Strict Adherence to the Schema is required.
`, schema, description, langInstruction)
}
