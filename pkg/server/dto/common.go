package dto

import "errors"

// Validation errors
var (
	ErrEmptyText      = errors.New("text cannot be empty")
	ErrEmptyQuery     = errors.New("query cannot be empty")
	ErrEmptyName      = errors.New("name cannot be empty")
	ErrTooManyTexts   = errors.New("texts count exceeds maximum (1000)")
	ErrContentTooLong = errors.New("content exceeds maximum length (1MB)")
	ErrTopKTooLarge   = errors.New("top_k exceeds maximum (100)")
)

// Maximum sizes accepted by the API
const (
	MaxContentLength = 1024 * 1024 // 1MB
	MaxTexts         = 1000
	MaxTopK          = 100
)

// Result represents a generic API result
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
