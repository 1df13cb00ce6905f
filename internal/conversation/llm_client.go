package conversation

import (
	"context"
	"errors"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ErrEmptyCompletion marks a provider response that succeeded at the
// transport level but carried no usable text.
var ErrEmptyCompletion = errors.New("conversation: provider returned no completion text")

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type LLMRequest struct {
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float32
}

type LLMResponse struct {
	Text string
}

// LLMClient is the provider-agnostic completion interface. The webhook
// pipeline only depends on this, so providers can be swapped without
// touching extraction or persistence.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
