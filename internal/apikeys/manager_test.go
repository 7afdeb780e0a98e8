package apikeys

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestNewManagerRequiresKeys(t *testing.T) {
	for _, keys := range [][]string{nil, {""}, {"", ""}} {
		if _, err := NewManager(keys, quietLogger()); !errors.Is(err, ErrNoKeysAvailable) {
			t.Fatalf("keys %q: expected ErrNoKeysAvailable, got %v", keys, err)
		}
	}
}

func TestRotateKeyWraps(t *testing.T) {
	km, err := NewManager([]string{"a", "", "b"}, quietLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if km.Len() != 2 {
		t.Fatalf("expected empty key dropped, got %d keys", km.Len())
	}
	if km.CurrentKey() != "a" {
		t.Fatalf("expected first key, got %q", km.CurrentKey())
	}
	if err := km.RotateKey(); err != nil {
		t.Fatalf("unexpected error on first rotation: %v", err)
	}
	if km.CurrentKey() != "b" {
		t.Fatalf("expected second key, got %q", km.CurrentKey())
	}
	if err := km.RotateKey(); !errors.Is(err, ErrAllKeysExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if km.CurrentKey() != "a" {
		t.Fatalf("expected wrap to first key, got %q", km.CurrentKey())
	}
}
