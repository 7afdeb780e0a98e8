// Package ai wraps the hosted models GrokCast talks to: chat completion for
// the persona and text-to-speech for its voice.
package ai

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNotConfigured is returned by providers constructed without credentials.
var ErrNotConfigured = errors.New("ai provider not configured")

type Message struct {
	Role    string
	Content string
}

// CompletionRequest is provider neutral. Messages normally start with a
// system prompt. JSON asks the provider for a single JSON object.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	JSON        bool
	Temperature float32
	MaxTokens   int
}

// Completer produces one assistant message for a conversation.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Synthesis is audio produced for one reply.
type Synthesis struct {
	Audio  []byte
	Format string
}

// Synthesizer speaks text in a persona's voice.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, persona, text string) (*Synthesis, error)
}

// lastUserMessage returns the content of the final user turn.
func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
