package nlp

// Default configuration values
const (
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.7

	DefaultGeminiModel     = "gemini-1.5-flash"
	DefaultLlamaCppBaseURL = "http://localhost:8080/v1"
	DefaultLlamaCppModel   = "local-llama-cpp-model"
)

// Provider names accepted by NewClient.
const (
	ProviderGoogle   = "google"
	ProviderGemini   = "gemini"
	ProviderLlamaCpp = "llamacpp"
)

// LLMConfig holds configuration for generation clients
type LLMConfig struct {
	// APIKey is excluded from JSON serialization to prevent accidental exposure in logs/responses.
	APIKey string `json:"-"`

	Model   string `json:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty"`

	// TimeoutSeconds bounds a single request; 0 means 600 seconds.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// NewLLMConfig creates an empty LLMConfig
func NewLLMConfig() *LLMConfig {
	return &LLMConfig{}
}

// WithAPIKey sets the API key
func (c *LLMConfig) WithAPIKey(apiKey string) *LLMConfig {
	c.APIKey = apiKey
	return c
}

// WithModel sets the model
func (c *LLMConfig) WithModel(model string) *LLMConfig {
	c.Model = model
	return c
}

// WithBaseURL sets the base URL
func (c *LLMConfig) WithBaseURL(baseURL string) *LLMConfig {
	c.BaseURL = baseURL
	return c
}

func withDefaults(req CompletionRequest) CompletionRequest {
	if req.Temperature == 0 {
		req.Temperature = DefaultTemperature
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	return req
}
