package config

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CHAT_PROVIDER", "")
	t.Setenv("SESSION_MAX_AGE_HOURS", "")
	t.Setenv("ELEVENLABS_API_KEYS", "")

	cfg := LoadConfig(quietLogger())
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.ChatProvider != "grok" {
		t.Fatalf("expected grok provider, got %q", cfg.ChatProvider)
	}
	if cfg.SessionMaxAge != 24*time.Hour {
		t.Fatalf("expected 24h max age, got %v", cfg.SessionMaxAge)
	}
	if len(cfg.ElevenLabsAPIKeys) != 0 {
		t.Fatalf("expected no keys, got %v", cfg.ElevenLabsAPIKeys)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CHAT_PROVIDER", "Gemini")
	t.Setenv("SESSION_MAX_AGE_HOURS", "2")
	t.Setenv("ELEVENLABS_API_KEYS", "k1, k2,,")
	t.Setenv("YTDLP_PROXIES", "http://p1:8080")

	cfg := LoadConfig(quietLogger())
	if cfg.Port != "9090" || cfg.ChatProvider != "gemini" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.SessionMaxAge != 2*time.Hour {
		t.Fatalf("expected 2h, got %v", cfg.SessionMaxAge)
	}
	if len(cfg.ElevenLabsAPIKeys) != 2 || cfg.ElevenLabsAPIKeys[1] != "k2" {
		t.Fatalf("unexpected keys %v", cfg.ElevenLabsAPIKeys)
	}
	if len(cfg.YtDlpProxies) != 1 {
		t.Fatalf("unexpected proxies %v", cfg.YtDlpProxies)
	}
}

func TestLoadConfigRejectsBadMaxAge(t *testing.T) {
	t.Setenv("SESSION_MAX_AGE_HOURS", "soon")
	if got := LoadConfig(quietLogger()).SessionMaxAge; got != 24*time.Hour {
		t.Fatalf("expected fallback to 24h, got %v", got)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	if got := NewLogger("debug").GetLevel(); got != logrus.DebugLevel {
		t.Fatalf("expected debug, got %v", got)
	}
	if got := NewLogger("nonsense").GetLevel(); got != logrus.InfoLevel {
		t.Fatalf("expected info fallback, got %v", got)
	}
}
