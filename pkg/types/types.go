package types

import "errors"

// Validation errors
var (
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrEmptyID      = errors.New("id cannot be empty")
	ErrInvalidLimit = errors.New("limit must be positive")
)

// Role identifies the author of a Message.
type Role string

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Metadata is an arbitrary set of attributes attached to a chunk or a document.
type Metadata map[string]any

// Chunk is a unit of text destined for the vector store.
type Chunk struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Metadata Metadata  `json:"metadata,omitempty"`
	Vector   []float32 `json:"-"`
}

// Validate checks that the chunk carries text.
func (c *Chunk) Validate() error {
	if c.Text == "" {
		return ErrEmptyContent
	}
	return nil
}

// SearchResult is a chunk returned from a similarity query.
// Distance is the raw distance reported by the store; 0 means identical.
type SearchResult struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Distance float64  `json:"distance"`
}

// Similarity converts the distance into a similarity score.
func (r SearchResult) Similarity() float64 {
	return 1 - r.Distance
}

// ContextKey is the type for request-scoped values stored in a context.
type ContextKey string

const (
	ContextKeyUserID        ContextKey = "user_id"
	ContextKeySessionID     ContextKey = "session_id"
	ContextKeyRequestSource ContextKey = "request_source"
)
