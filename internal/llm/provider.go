// Package llm talks to chat-completion models that can call tools.
package llm

import (
	"context"
	"encoding/json"
)

// Roles understood by completion providers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one entry of the conversation history sent to the model.
type Message struct {
	Role    string
	Content string
}

// Tool describes a function the model may call. Parameters is a JSON schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Request is a single completion call.
type Request struct {
	SystemPrompt string
	History      []Message
	Tools        []Tool
}

// Completion is the model's answer: free text, tool calls, or both.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
}

// Provider produces completions. Implementations report transport failures
// as apperr.ErrProviderUnavailable and rejected requests as apperr.ErrProviderError.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}
