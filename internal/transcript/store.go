package transcript

import (
	"slices"
	"sync"
	"time"

	"grokcast/internal/models"
)

const (
	previewLength    = 500
	truncationMarker = "..."
)

// Store caches transcripts by video ID for the life of the process. Records
// are replaced whole; concurrent writers to one ID resolve as last write wins.
// There is no eviction.
type Store struct {
	records map[string]models.TranscriptRecord
	mu      sync.RWMutex
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		records: make(map[string]models.TranscriptRecord),
		now:     time.Now,
	}
}

// Put inserts or overwrites the record for videoID and returns what was stored.
func (s *Store) Put(videoID, transcript string, utterances []models.Utterance, speakerName string) models.TranscriptRecord {
	return s.PutRecord(models.TranscriptRecord{
		VideoID:     videoID,
		Transcript:  transcript,
		Utterances:  utterances,
		SpeakerName: speakerName,
	})
}

// PutRecord stores a built record, e.g. one loaded from the archive, filling
// in the preview and creation time when they are missing.
func (s *Store) PutRecord(rec models.TranscriptRecord) models.TranscriptRecord {
	if rec.Preview == "" {
		rec.Preview = truncate(rec.Transcript, previewLength)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.Utterances = slices.Clone(rec.Utterances)

	s.mu.Lock()
	s.records[rec.VideoID] = rec
	s.mu.Unlock()

	rec.Utterances = slices.Clone(rec.Utterances)
	return rec
}

func (s *Store) Get(videoID string) (models.TranscriptRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[videoID]
	if !ok {
		return models.TranscriptRecord{}, false
	}
	rec.Utterances = slices.Clone(rec.Utterances)
	return rec, true
}

func (s *Store) Has(videoID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[videoID]
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// truncate keeps the first n runes of text and appends the marker when
// anything was cut.
func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + truncationMarker
}

func prefix(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
