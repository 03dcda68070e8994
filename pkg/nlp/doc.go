// Package nlp provides text generation clients.
//
// The Client interface has two backends:
//   - GeminiClient: Google Gemini through the generative-ai-go SDK
//   - LlamaCppClient: a local llama.cpp server through its OpenAI-compatible API
//
// # Client Wrappers
//
//   - RetryClient: automatic retry with exponential backoff
//   - CircuitBreakerClient: circuit breaker that alerts when it trips
//
// # Usage
//
//	client, err := nlp.NewClient(ctx, nlp.ProviderLlamaCpp, &nlp.LLMConfig{BaseURL: "http://localhost:8080/v1"})
//	client = nlp.NewRetryClient(client, nlp.DefaultRetryConfig())
//
//	text, err := client.Complete(ctx, nlp.CompletionRequest{
//	    System: "You are a JSON robot.",
//	    User:   "Generate a JSON object for a car.",
//	})
//
// # Error Handling
//
// RateLimitError, RefusalError and EmptyResponseError support errors.Is() for
// type checking.
package nlp
