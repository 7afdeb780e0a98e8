// Package clips finds the video asset played for a visual state.
package clips

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"grokcast/internal/models"
	"grokcast/internal/state"

	"github.com/sirupsen/logrus"
)

var ErrClipNotFound = errors.New("clip not found")

var safeName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Royalty-free placeholder footage used until a clip exists on disk.
var stockVideos = map[models.VideoState]string{
	models.StateIdleListening:    "https://cdn.pixabay.com/video/2023/10/23/185693-877062389_large.mp4",
	models.StateSpeakingNeutral:  "https://cdn.pixabay.com/video/2023/05/22/163311-829058062_large.mp4",
	models.StateSpeakingEmphatic: "https://cdn.pixabay.com/video/2023/04/12/158567-817065933_large.mp4",
	models.StateReactSmile:       "https://cdn.pixabay.com/video/2023/09/15/180437-863822895_large.mp4",
	models.StateReactNod:         "https://cdn.pixabay.com/video/2023/06/19/168354-839378530_large.mp4",
	models.StateThinkingPause:    "https://cdn.pixabay.com/video/2023/07/11/171378-845485769_large.mp4",
}

type Manager struct {
	storageDir string
	publicDir  string
	log        *logrus.Logger
}

func NewManager(storageDir, publicDir string, log *logrus.Logger) *Manager {
	return &Manager{storageDir: storageDir, publicDir: publicDir, log: log}
}

// Clip resolves the asset for s: a pre-generated public clip first, then one
// stored for the session, then stock footage.
func (m *Manager) Clip(s models.VideoState, sessionID string) models.ClipInfo {
	cfg, ok := state.LookupConfig(s)
	if !ok {
		s = models.StateIdleListening
		cfg, _ = state.LookupConfig(s)
	}
	info := models.ClipInfo{Duration: cfg.Duration, State: s}
	name := string(s) + ".mp4"

	if fileExists(filepath.Join(m.publicDir, name)) {
		info.URL = "/clips/" + name
		return info
	}
	if safeName.MatchString(sessionID) && fileExists(filepath.Join(m.storageDir, sessionID, name)) {
		info.URL = fmt.Sprintf("/api/clips/%s/%s", sessionID, s)
		return info
	}

	m.log.WithFields(logrus.Fields{"video_state": s, "session_id": sessionID}).Debug("No clip on disk, using stock video")
	info.URL = stockVideos[s]
	info.WasGenerated = true
	return info
}

// SessionClip reads a clip stored for a session. Identifiers that could escape
// the storage directory are treated as missing.
func (m *Manager) SessionClip(sessionID, clipID string) ([]byte, error) {
	if !safeName.MatchString(sessionID) || !safeName.MatchString(clipID) {
		return nil, ErrClipNotFound
	}
	data, err := os.ReadFile(filepath.Join(m.storageDir, sessionID, clipID+".mp4"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrClipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read clip %s/%s: %w", sessionID, clipID, err)
	}
	return data, nil
}

// CleanupOldSessions removes session directories not modified within maxAge
// and returns how many were removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.storageDir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			m.log.Warnf("Could not stat session %s: %v", entry.Name(), err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.storageDir, entry.Name())); err != nil {
			m.log.Warnf("Could not remove session %s: %v", entry.Name(), err)
			continue
		}
		m.log.WithField("session_id", entry.Name()).Info("Cleaned up old session")
		removed++
	}
	return removed, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
