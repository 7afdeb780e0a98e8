package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"grokcast/internal/apikeys"

	"github.com/google/generative-ai-go/genai"
)

func writeVoices(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voices.json")
	data := `{"voices":[{"voice_id":"v-host","name":"Joe Rogan"},{"voice_id":"v-other","name":"Other"}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write voices: %v", err)
	}
	return path
}

func TestElevenLabsVoiceFor(t *testing.T) {
	km, _ := apikeys.NewManager([]string{"k"}, quietLogger())
	svc, err := NewElevenLabsService(km, "m", "", writeVoices(t), quietLogger())
	if err != nil {
		t.Fatalf("NewElevenLabsService: %v", err)
	}
	if got := svc.VoiceFor("joe  rogan"); got != "v-host" {
		t.Fatalf("expected persona voice, got %q", got)
	}
	if got := svc.VoiceFor("Nobody"); got != "v-host" {
		t.Fatalf("expected first voice fallback, got %q", got)
	}
}

func TestElevenLabsRequiresVoice(t *testing.T) {
	km, _ := apikeys.NewManager([]string{"k"}, quietLogger())
	if _, err := NewElevenLabsService(km, "m", "", filepath.Join(t.TempDir(), "none.json"), quietLogger()); err == nil {
		t.Fatal("expected error without any voice")
	}
}

func TestElevenLabsRotatesRejectedKey(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/text-to-speech/v-default" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") == "bad" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "hello" || body["model_id"] != "model-x" {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	km, _ := apikeys.NewManager([]string{"bad", "good"}, quietLogger())
	svc, err := NewElevenLabsService(km, "model-x", "v-default", "", quietLogger(), WithElevenLabsBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewElevenLabsService: %v", err)
	}
	out, err := svc.Synthesize(context.Background(), "Anyone", "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(out.Audio) != "mp3-bytes" || out.Format != "mp3" {
		t.Fatalf("unexpected synthesis %+v", out)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestElevenLabsAllKeysRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	km, _ := apikeys.NewManager([]string{"a", "b"}, quietLogger())
	svc, _ := NewElevenLabsService(km, "m", "v", "", quietLogger(), WithElevenLabsBaseURL(server.URL))
	if _, err := svc.Synthesize(context.Background(), "p", "t"); !errors.Is(err, apikeys.ErrAllKeysExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
}

func TestElevenLabsTriesEarlierKeysAfterWrap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "a" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	km, _ := apikeys.NewManager([]string{"a", "b"}, quietLogger())
	_ = km.RotateKey()
	svc, _ := NewElevenLabsService(km, "m", "v", "", quietLogger(), WithElevenLabsBaseURL(server.URL))
	got, err := svc.Synthesize(context.Background(), "p", "t")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(got.Audio) != "audio" || km.CurrentKey() != "a" {
		t.Fatalf("unexpected result %q with key %s", got.Audio, km.CurrentKey())
	}
}

func TestGrokVoiceUsesVoiceSample(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "joe-rogan.mp3"), []byte("sample"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		var body grokVoiceRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Voice != base64.StdEncoding.EncodeToString([]byte("sample")) {
			t.Errorf("expected cloned voice, got %q", body.Voice)
		}
		if body.Model != "grok-voice" || body.ResponseFormat != "mp3" {
			t.Errorf("unexpected request %+v", body)
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer server.Close()

	svc, err := NewGrokVoiceService("key", server.URL, dir, quietLogger())
	if err != nil {
		t.Fatalf("NewGrokVoiceService: %v", err)
	}
	out, err := svc.Synthesize(context.Background(), "Joe Rogan", "hi")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(out.Audio) != "audio" {
		t.Fatalf("unexpected audio %q", out.Audio)
	}
}

func TestGrokVoiceDefaultVoiceAndErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body grokVoiceRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Voice != "None" {
			t.Errorf("expected default voice, got %q", body.Voice)
		}
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc, _ := NewGrokVoiceService("key", server.URL, t.TempDir(), quietLogger())
	if _, err := svc.Synthesize(context.Background(), "Unknown Person", "hi"); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestVoiceFileCandidates(t *testing.T) {
	got := voiceFileCandidates("Joe  Rogan")
	want := []string{"joe-rogan.mp3", "joe-rogan.m4a", "joe-rogan.wav", "joerogan.mp3", "joe_rogan.mp3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidate %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractText(t *testing.T) {
	res := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("hello "), genai.Text("world")}},
		}},
	}
	got, err := extractText(res)
	if err != nil {
		t.Fatalf("extractText: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
	if _, err := extractText(&genai.GenerateContentResponse{}); err == nil {
		t.Fatal("expected error for empty response")
	}
}
