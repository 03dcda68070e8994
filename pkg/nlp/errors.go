package nlp

import "errors"

// Common LLM client errors
var (
	// ErrRateLimit indicates the rate limit has been exceeded
	ErrRateLimit = errors.New("rate limit exceeded. Please try again later")

	// ErrRefusal indicates the LLM refused to respond to the prompt
	ErrRefusal = errors.New("the LLM refused to respond to this prompt")

	// ErrEmptyResponse indicates the LLM returned an empty response
	ErrEmptyResponse = errors.New("the LLM returned an empty response")

	// ErrMissingAPIKey indicates a backend that needs a key was created without one
	ErrMissingAPIKey = errors.New("API key is missing")

	// ErrNoMessages indicates a request with neither history nor user input
	ErrNoMessages = errors.New("no messages provided, supply a user prompt or history")

	// ErrMalformedResponse indicates the backend answer could not be interpreted
	ErrMalformedResponse = errors.New("unexpected response format from backend")

	// ErrUnknownProvider indicates NewClient was asked for an unsupported backend
	ErrUnknownProvider = errors.New("unknown generation backend")
)

// RateLimitError represents a rate limit error with optional custom message
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return "rate limit exceeded. Please try again later"
	}
	return e.Message
}

// Is implements errors.Is support for RateLimitError.
// errors.Is(err, &RateLimitError{}) and errors.Is(err, ErrRateLimit) both match.
func (e *RateLimitError) Is(target error) bool {
	_, ok := target.(*RateLimitError)
	return ok || target == ErrRateLimit
}

// NewRateLimitError creates a new rate limit error with optional custom message
func NewRateLimitError(message ...string) *RateLimitError {
	err := &RateLimitError{}
	if len(message) > 0 {
		err.Message = message[0]
	}
	return err
}

// RefusalError represents an LLM refusal error
type RefusalError struct {
	Message string
}

func (e *RefusalError) Error() string {
	return e.Message
}

// Is implements errors.Is support for RefusalError.
// errors.Is(err, &RefusalError{}) and errors.Is(err, ErrRefusal) both match.
func (e *RefusalError) Is(target error) bool {
	_, ok := target.(*RefusalError)
	return ok || target == ErrRefusal
}

// NewRefusalError creates a new refusal error (message is required)
func NewRefusalError(message string) *RefusalError {
	return &RefusalError{Message: message}
}

// EmptyResponseError represents an empty response error
type EmptyResponseError struct {
	Message string
}

func (e *EmptyResponseError) Error() string {
	return e.Message
}

// Is implements errors.Is support for EmptyResponseError.
// errors.Is(err, &EmptyResponseError{}) and errors.Is(err, ErrEmptyResponse) both match.
func (e *EmptyResponseError) Is(target error) bool {
	_, ok := target.(*EmptyResponseError)
	return ok || target == ErrEmptyResponse
}

// NewEmptyResponseError creates a new empty response error (message is required)
func NewEmptyResponseError(message string) *EmptyResponseError {
	return &EmptyResponseError{Message: message}
}
