package state

import (
	"sync"

	"grokcast/internal/models"

	"github.com/sirupsen/logrus"
)

// Manager keeps the last committed video state for each session.
type Manager struct {
	sessionStates map[string]models.VideoState
	mu            sync.RWMutex
	log           *logrus.Logger
}

func NewManager(log *logrus.Logger) *Manager {
	return &Manager{
		sessionStates: make(map[string]models.VideoState),
		log:           log,
	}
}

// Machine returns a fresh machine positioned at the session's last state.
func (m *Manager) Machine(sessionID string) *Machine {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessionStates[sessionID]
	if !ok {
		// Unknown sessions start listening
		return NewDefault()
	}
	return New(s)
}

func (m *Manager) Commit(sessionID string, s models.VideoState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessionStates[sessionID] = s
	m.log.WithFields(logrus.Fields{"session_id": sessionID, "video_state": s}).Debug("video state committed")
}

func (m *Manager) Forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessionStates, sessionID)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessionStates)
}
