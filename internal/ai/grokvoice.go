package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const maxTTSInput = 4096

// GrokVoiceService synthesizes speech with the xAI voice endpoint, cloning
// the persona's voice when a sample file exists.
type GrokVoiceService struct {
	apiKey     string
	endpoint   string
	voicesDir  string
	httpClient *http.Client
	log        *logrus.Logger
}

func NewGrokVoiceService(apiKey, endpoint, voicesDir string, log *logrus.Logger) (*GrokVoiceService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("grok voice: %w", ErrNotConfigured)
	}
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("grok voice: endpoint required")
	}
	return &GrokVoiceService{
		apiKey:     strings.TrimSpace(apiKey),
		endpoint:   endpoint,
		voicesDir:  voicesDir,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		log:        log,
	}, nil
}

func (s *GrokVoiceService) Name() string { return "grok-voice" }

type grokVoiceRequest struct {
	Model          string               `json:"model"`
	Input          string               `json:"input"`
	ResponseFormat string               `json:"response_format"`
	Instructions   string               `json:"instructions"`
	Voice          string               `json:"voice"`
	SamplingParams grokVoiceSamplingOpt `json:"sampling_params"`
}

type grokVoiceSamplingOpt struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
	MinP         float64 `json:"min_p"`
}

func (s *GrokVoiceService) Synthesize(ctx context.Context, persona, text string) (*Synthesis, error) {
	voice := "None"
	if sample, err := s.voiceSample(persona); err != nil {
		s.log.Warnf("Could not load voice sample for %s: %v", persona, err)
	} else if sample != "" {
		voice = sample
	}

	input := []rune(text)
	if len(input) > maxTTSInput {
		input = input[:maxTTSInput]
	}
	payload, err := json.Marshal(grokVoiceRequest{
		Model:          "grok-voice",
		Input:          string(input),
		ResponseFormat: "mp3",
		Instructions:   "audio",
		Voice:          voice,
		SamplingParams: grokVoiceSamplingOpt{MaxNewTokens: 512, Temperature: 1.0, MinP: 0.01},
	})
	if err != nil {
		return nil, fmt.Errorf("grok voice: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("grok voice: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grok voice request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("grok voice returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("grok voice: read audio: %w", err)
	}
	return &Synthesis{Audio: audio, Format: "mp3"}, nil
}

// voiceSample returns the base64 voice sample for persona, or "" when the
// voices directory has none.
func (s *GrokVoiceService) voiceSample(persona string) (string, error) {
	if s.voicesDir == "" {
		return "", nil
	}
	for _, name := range voiceFileCandidates(persona) {
		data, err := os.ReadFile(filepath.Join(s.voicesDir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		s.log.Debugf("Found voice file %s (%d bytes)", name, len(data))
		return base64.StdEncoding.EncodeToString(data), nil
	}
	return "", nil
}

func voiceFileCandidates(persona string) []string {
	dashed := normalizePersona(persona, "-")
	return []string{
		dashed + ".mp3",
		dashed + ".m4a",
		dashed + ".wav",
		normalizePersona(persona, "") + ".mp3",
		normalizePersona(persona, "_") + ".mp3",
	}
}

// normalizePersona lowercases a name and joins its words with sep.
func normalizePersona(name, sep string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), sep)
}
