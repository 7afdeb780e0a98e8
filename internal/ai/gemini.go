package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

type GeminiService struct {
	client    *genai.Client
	modelName string
	log       *logrus.Logger
}

func NewGeminiService(ctx context.Context, apiKey, modelName string, log *logrus.Logger) (*GeminiService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("could not create new genai client: %w", err)
	}
	return &GeminiService{client: client, modelName: modelName, log: log}, nil
}

func (s *GeminiService) Name() string { return "gemini" }

func (s *GeminiService) Close() error {
	return s.client.Close()
}

// Complete maps the conversation onto a Gemini chat session: system messages
// become the system instruction, earlier turns the history, and the last user
// turn is sent.
func (s *GeminiService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	name := s.modelName
	if req.Model != "" && strings.HasPrefix(req.Model, "gemini") {
		name = req.Model
	}
	// A model value carries per-request settings, so build one per call.
	model := s.client.GenerativeModel(name)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	var system []string
	var history []*genai.Content
	var last string
	for i, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			if i == len(req.Messages)-1 {
				last = m.Content
				continue
			}
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	if last == "" {
		return "", fmt.Errorf("gemini chat: conversation must end with a user message")
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}

	cs := model.StartChat()
	cs.History = history

	s.log.WithField("model", name).Debug("calling gemini chat")
	res, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", fmt.Errorf("gemini content generation failed: %w", err)
	}
	return extractText(res)
}

func extractText(res *genai.GenerateContentResponse) (string, error) {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content")
	}

	var b strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini response did not contain text")
	}
	return b.String(), nil
}
