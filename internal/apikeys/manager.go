package apikeys

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrNoKeysAvailable = errors.New("no API keys available")
var ErrAllKeysExhausted = errors.New("all available API keys have been exhausted")

// KeyManager hands out one provider key at a time and moves to the next
// one when the provider rejects it.
type KeyManager struct {
	keys         []string
	currentIndex int
	mutex        sync.Mutex
	log          *logrus.Logger
}

func NewManager(keys []string, log *logrus.Logger) (*KeyManager, error) {
	var usable []string
	for _, k := range keys {
		if k != "" {
			usable = append(usable, k)
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoKeysAvailable
	}
	return &KeyManager{keys: usable, log: log}, nil
}

func (km *KeyManager) CurrentKey() string {
	km.mutex.Lock()
	defer km.mutex.Unlock()
	return km.keys[km.currentIndex]
}

// RotateKey moves to the next key. After the last key it wraps to the first
// and reports ErrAllKeysExhausted.
func (km *KeyManager) RotateKey() error {
	km.mutex.Lock()
	defer km.mutex.Unlock()

	km.log.Warnf("API key %d was rejected, rotating", km.currentIndex+1)
	km.currentIndex++

	if km.currentIndex >= len(km.keys) {
		km.log.Warn("All API keys have been tried")
		km.currentIndex = 0
		return ErrAllKeysExhausted
	}
	return nil
}

func (km *KeyManager) Len() int {
	return len(km.keys)
}
