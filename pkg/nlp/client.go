package nlp

import (
	"context"

	"github.com/soundprediction/skls/pkg/types"
)

// Client generates text from a conversation.
type Client interface {
	// Complete sends the request and returns the generated text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Model returns the model identifier used by the client.
	Model() string

	// Close cleans up any resources.
	Close() error
}

// CompletionRequest is a single generation call. History holds earlier turns;
// User, when set, is appended as the final user turn.
type CompletionRequest struct {
	System      string
	History     []types.Message
	User        string
	Temperature float32
	MaxTokens   int
}

const (
	// RoleSystem represents a system message.
	RoleSystem types.Role = "system"
	// RoleUser represents a user message.
	RoleUser types.Role = "user"
	// RoleAssistant represents an assistant message.
	RoleAssistant types.Role = "assistant"
	// RoleModel is Gemini's name for the assistant.
	RoleModel types.Role = "model"
	// RoleAgent is accepted as an alias of the assistant.
	RoleAgent types.Role = "agent"
)

// NewMessage creates a new message with the specified role and content.
func NewMessage(role types.Role, content string) types.Message {
	return types.Message{
		Role:    role,
		Content: content,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) types.Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) types.Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) types.Message {
	return NewMessage(RoleAssistant, content)
}

func isAssistantRole(r types.Role) bool {
	return r == RoleAssistant || r == RoleModel || r == RoleAgent
}
