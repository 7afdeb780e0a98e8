package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const defaultGrokTimeout = 60 * time.Second

// GrokService talks to the xAI chat completion API, which speaks the OpenAI
// wire format.
type GrokService struct {
	client       *openai.Client
	defaultModel string
	log          *logrus.Logger
}

func NewGrokService(apiKey, baseURL, defaultModel string, log *logrus.Logger) (*GrokService, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("grok: %w", ErrNotConfigured)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: defaultGrokTimeout}

	return &GrokService{
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
		log:          log,
	}, nil
}

func (s *GrokService) Name() string { return "grok" }

func (s *GrokService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = s.defaultModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	s.log.WithFields(logrus.Fields{"model": model, "json": req.JSON}).Debug("calling grok chat completion")
	resp, err := s.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("grok chat: http %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("grok chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("grok chat: response has no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("grok chat: empty content (finish_reason=%q)", resp.Choices[0].FinishReason)
	}
	return content, nil
}
