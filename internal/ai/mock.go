package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"grokcast/internal/models"
)

// MockService answers without any network access. It stands in when no chat
// provider is configured or the configured one fails.
type MockService struct{}

func NewMockService() *MockService { return &MockService{} }

func (s *MockService) Name() string { return "mock" }

func (s *MockService) Complete(_ context.Context, req CompletionRequest) (string, error) {
	reply := MockReply(lastUserMessage(req.Messages))
	if !req.JSON {
		return reply.ReplyText, nil
	}
	out, err := json.Marshal(reply)
	if err != nil {
		return "", fmt.Errorf("mock chat: %w", err)
	}
	return string(out), nil
}

// MockReply picks a canned reply and mood from keywords in the user message.
func MockReply(userMessage string) models.ChatReply {
	lower := strings.ToLower(strings.TrimSpace(userMessage))
	words := strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) && r != '\'' })

	switch {
	case hasAny(words, "hello", "hi", "hey"):
		return models.ChatReply{
			ReplyText:     "Hello! It's great to meet you. How can I help you today?",
			VideoState:    string(models.StateReactSmile),
			EmotionalTone: "warm",
		}
	case hasAny(words, "joke", "funny"):
		return models.ChatReply{
			ReplyText:     "Why don't scientists trust atoms? Because they make up everything!",
			VideoState:    string(models.StateReactSmile),
			EmotionalTone: "playful",
		}
	case hasAny(words, "question", "why", "how") || strings.HasSuffix(lower, "?"):
		return models.ChatReply{
			ReplyText:     "That's a great question. Let me think about that for a moment...",
			VideoState:    string(models.StateThinkingPause),
			EmotionalTone: "thoughtful",
		}
	case hasPrefix(words, "thank") || hasAny(words, "agree"):
		return models.ChatReply{
			ReplyText:     "You're very welcome! I'm glad I could help.",
			VideoState:    string(models.StateReactNod),
			EmotionalTone: "acknowledging",
		}
	case hasAny(words, "important", "listen"):
		return models.ChatReply{
			ReplyText:     "This is really important to understand. Pay close attention to this point.",
			VideoState:    string(models.StateSpeakingEmphatic),
			EmotionalTone: "emphatic",
		}
	default:
		return models.ChatReply{
			ReplyText:     fmt.Sprintf("I understand you're saying: %q. This is a demo response showing how the system works.", lower),
			VideoState:    string(models.StateSpeakingNeutral),
			EmotionalTone: "conversational",
		}
	}
}

func hasAny(words []string, candidates ...string) bool {
	for _, w := range words {
		for _, c := range candidates {
			if w == c {
				return true
			}
		}
	}
	return false
}

func hasPrefix(words []string, prefix string) bool {
	for _, w := range words {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}
