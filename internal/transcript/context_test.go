package transcript

import (
	"strings"
	"testing"
	"unicode/utf8"

	"grokcast/internal/models"
)

func ptr(f float64) *float64 { return &f }

func TestSelectContextMissingRecord(t *testing.T) {
	if got := NewStore().SelectContext("nope", ptr(10)); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
}

func TestSelectContextWindow(t *testing.T) {
	s := NewStore()
	s.Put("v", "full transcript", []models.Utterance{
		{Speaker: "A", Text: "at zero", Start: 0},
		{Speaker: "B", Text: "at twenty five", Start: 25_000},
		{Speaker: "A", Text: "at forty", Start: 40_000},
		{Speaker: "B", Text: "at ninety", Start: 90_000},
	}, "Host")

	tests := []struct {
		at   float64
		want string
	}{
		// 40s is 20s away from 20s, inside the window.
		{20, "A: at zero\nB: at twenty five\nA: at forty\n\nfull transcript"},
		{75, "B: at ninety\n\nfull transcript"},
		{100, "B: at ninety\n\nfull transcript"},
	}
	for _, tt := range tests {
		if got := s.SelectContext("v", ptr(tt.at)); got != tt.want {
			t.Errorf("at %vs: got %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestSelectContextWindowIsExclusive(t *testing.T) {
	s := NewStore()
	s.Put("v", "background", []models.Utterance{{Speaker: "A", Text: "edge", Start: 30_000}}, "")

	if got := s.SelectContext("v", ptr(0)); got != "background" {
		t.Fatalf("utterance exactly 30s away should be excluded, got %q", got)
	}
}

func TestSelectContextEndToEnd(t *testing.T) {
	transcript := "hello world " + strings.Repeat("z", 3000)
	s := NewStore()
	s.Put("abc123", transcript, []models.Utterance{{Speaker: "A", Text: "hi", Start: 0, End: 500}}, "Persona")

	got := s.SelectContext("abc123", ptr(0))
	if !strings.HasPrefix(got, "A: hi\n\n") {
		t.Fatalf("unexpected prefix: %q", got[:20])
	}
	background := strings.TrimPrefix(got, "A: hi\n\n")
	if background != transcript[:1000] {
		t.Fatalf("expected first 1000 chars of transcript, got %d chars", len(background))
	}
}

func TestSelectContextTruncatesWithoutTimestamp(t *testing.T) {
	s := NewStore()
	s.Put("v", strings.Repeat("a", 5000), nil, "")

	got := s.SelectContext("v", nil)
	if got != strings.Repeat("a", 2000)+"..." {
		t.Fatalf("unexpected context of length %d", len(got))
	}
	if len(got) > 2003 {
		t.Fatalf("context exceeds bound: %d", len(got))
	}
}

func TestSelectContextFallsBackWhenNothingNearby(t *testing.T) {
	s := NewStore()
	s.Put("v", strings.Repeat("b", 2500), []models.Utterance{{Speaker: "A", Text: "late", Start: 600_000}}, "")

	got := s.SelectContext("v", ptr(5))
	if got != strings.Repeat("b", 2000)+"..." {
		t.Fatalf("expected truncated fallback, got %d chars", len(got))
	}
}

func TestSelectContextShortTranscriptHasNoMarker(t *testing.T) {
	s := NewStore()
	s.Put("v", "short", nil, "")
	if got := s.SelectContext("v", nil); got != "short" {
		t.Fatalf("got %q", got)
	}
}

func TestSelectContextCountsRunes(t *testing.T) {
	s := NewStore()
	s.Put("v", strings.Repeat("é", 2100), nil, "")

	got := s.SelectContext("v", nil)
	if n := utf8.RuneCountInString(got); n != 2003 {
		t.Fatalf("expected 2003 runes, got %d", n)
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncation split a rune")
	}
}
