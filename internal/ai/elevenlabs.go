package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"grokcast/internal/apikeys"
	"grokcast/internal/models"

	"github.com/sirupsen/logrus"
)

const elevenLabsAPIURL = "https://api.elevenlabs.io/v1"

type ElevenLabsService struct {
	keyManager   *apikeys.KeyManager
	modelID      string
	defaultVoice string
	baseURL      string
	httpClient   *http.Client
	voices       []models.Voice
	log          *logrus.Logger
}

type ElevenLabsOption func(*ElevenLabsService)

// WithElevenLabsBaseURL points the service at another API root (tests).
func WithElevenLabsBaseURL(url string) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

func NewElevenLabsService(keyManager *apikeys.KeyManager, modelID, defaultVoice, voicesFile string, log *logrus.Logger, opts ...ElevenLabsOption) (*ElevenLabsService, error) {
	if keyManager == nil {
		return nil, fmt.Errorf("elevenlabs: %w", ErrNotConfigured)
	}
	service := &ElevenLabsService{
		keyManager:   keyManager,
		modelID:      modelID,
		defaultVoice: defaultVoice,
		baseURL:      elevenLabsAPIURL,
		httpClient: &http.Client{
			Timeout: time.Minute * 2,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(service)
	}
	if voicesFile != "" {
		if err := service.loadVoicesFromFile(voicesFile); err != nil {
			log.Warnf("Could not load voices from %s: %v", voicesFile, err)
		}
	}
	if service.defaultVoice == "" && len(service.voices) == 0 {
		return nil, errors.New("elevenlabs: no default voice and no voices file")
	}
	return service, nil
}

func (s *ElevenLabsService) loadVoicesFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	var voicesFile models.VoicesFile
	if err := json.Unmarshal(data, &voicesFile); err != nil {
		return err
	}
	s.voices = voicesFile.Voices
	return nil
}

func (s *ElevenLabsService) Name() string { return "elevenlabs" }

func (s *ElevenLabsService) Voices() []models.Voice {
	return s.voices
}

// VoiceFor picks the voice named after the persona, then the configured
// default, then the first listed voice.
func (s *ElevenLabsService) VoiceFor(persona string) string {
	want := normalizePersona(persona, "")
	for _, v := range s.voices {
		if v.Name != "" && normalizePersona(v.Name, "") == want {
			return v.VoiceID
		}
	}
	if s.defaultVoice != "" {
		return s.defaultVoice
	}
	return s.voices[0].VoiceID
}

func (s *ElevenLabsService) Synthesize(ctx context.Context, persona, text string) (*Synthesis, error) {
	voiceID := s.VoiceFor(persona)
	url := fmt.Sprintf("%s/text-to-speech/%s", s.baseURL, voiceID)
	payload := map[string]interface{}{
		"text":     text,
		"model_id": s.modelID,
		"voice_settings": map[string]float32{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}

	for i := 0; i < s.keyManager.Len(); i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
		if err != nil {
			return nil, fmt.Errorf("elevenlabs: build request: %w", err)
		}
		req.Header.Set("xi-api-key", s.keyManager.CurrentKey())
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "audio/mpeg")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("elevenlabs request failed: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusUnauthorized {
			s.log.Warnf("Quota/Auth error with ElevenLabs key %d (%s), rotating key", i+1, resp.Status)
			resp.Body.Close()
			// The loop is bounded by Len, not by RotateKey's wrap signal:
			// a call that starts on a later key still has to try the
			// earlier ones after the wrap.
			_ = s.keyManager.RotateKey()
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("elevenlabs returned non-200 status: %s - %s", resp.Status, strings.TrimSpace(string(body)))
		}

		audioBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read audio response body: %w", err)
		}
		return &Synthesis{Audio: audioBytes, Format: "mp3"}, nil
	}

	return nil, apikeys.ErrAllKeysExhausted
}
