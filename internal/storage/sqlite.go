package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"grokcast/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

type Storage struct {
	db  *sql.DB
	log *logrus.Logger
}

func New(databasePath string, log *logrus.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite3", databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &Storage{db: db, log: log}
	if err := storage.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return storage, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initDB() error {
	query := `
    CREATE TABLE IF NOT EXISTS sessions (
        chat_id INTEGER PRIMARY KEY,
        step TEXT NOT NULL,
        persona_name TEXT,
        video_id TEXT,
        playback_timestamp REAL,
        video_state TEXT NOT NULL
    );
    CREATE TABLE IF NOT EXISTS transcripts (
        video_id TEXT PRIMARY KEY,
        transcript TEXT NOT NULL,
        preview TEXT,
        utterances TEXT,
        speaker_name TEXT,
        audio_path TEXT,
        created_at INTEGER NOT NULL
    );`
	_, err := s.db.Exec(query)
	return err
}

// GetSession loads the chat's session, creating a default one on first contact.
func (s *Storage) GetSession(chatID int64, defaultPersona string) (*models.SessionData, error) {
	var data models.SessionData
	query := `SELECT step, persona_name, video_id, playback_timestamp, video_state FROM sessions WHERE chat_id = ?`

	var personaName, videoID sql.NullString
	var timestamp sql.NullFloat64

	err := s.db.QueryRow(query, chatID).Scan(
		&data.Step,
		&personaName,
		&videoID,
		&timestamp,
		&data.VideoState,
	)

	if errors.Is(err, sql.ErrNoRows) {
		s.log.Debugf("Chat %d not found in DB, creating new session.", chatID)
		defaultData := models.NewDefaultSessionData(defaultPersona)
		if err := s.SetSession(chatID, defaultData); err != nil {
			return nil, err
		}
		return defaultData, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to query session for chat %d: %w", chatID, err)
	}

	data.PersonaName = personaName.String
	if data.PersonaName == "" {
		data.PersonaName = defaultPersona
	}
	data.VideoID = videoID.String
	if timestamp.Valid {
		ts := timestamp.Float64
		data.Timestamp = &ts
	}
	return &data, nil
}

func (s *Storage) SetSession(chatID int64, data *models.SessionData) error {
	query := `
    INSERT OR REPLACE INTO sessions (chat_id, step, persona_name, video_id, playback_timestamp, video_state)
    VALUES (?, ?, ?, ?, ?, ?);`

	var timestamp sql.NullFloat64
	if data.Timestamp != nil {
		timestamp = sql.NullFloat64{Float64: *data.Timestamp, Valid: true}
	}

	_, err := s.db.Exec(query,
		chatID,
		data.Step,
		data.PersonaName,
		data.VideoID,
		timestamp,
		data.VideoState,
	)
	if err != nil {
		return fmt.Errorf("failed to set session for chat %d: %w", chatID, err)
	}
	s.log.Debugf("Session for chat %d saved. Step: %s, state: %s", chatID, data.Step, data.VideoState)
	return nil
}

func (s *Storage) SaveTranscript(ctx context.Context, rec models.TranscriptRecord) error {
	utterances, err := json.Marshal(rec.Utterances)
	if err != nil {
		return fmt.Errorf("encode utterances for %s: %w", rec.VideoID, err)
	}
	query := `
    INSERT OR REPLACE INTO transcripts (video_id, transcript, preview, utterances, speaker_name, audio_path, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?);`

	_, err = s.db.ExecContext(ctx, query,
		rec.VideoID,
		rec.Transcript,
		rec.Preview,
		string(utterances),
		rec.SpeakerName,
		rec.AudioPath,
		rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save transcript %s: %w", rec.VideoID, err)
	}
	return nil
}

// LoadTranscripts returns every archived transcript, used to warm the
// in-memory store at start-up.
func (s *Storage) LoadTranscripts(ctx context.Context) ([]models.TranscriptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT video_id, transcript, preview, utterances, speaker_name, audio_path, created_at FROM transcripts`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var out []models.TranscriptRecord
	for rows.Next() {
		var rec models.TranscriptRecord
		var preview, utterances, speakerName, audioPath sql.NullString
		var createdAt int64
		if err := rows.Scan(&rec.VideoID, &rec.Transcript, &preview, &utterances, &speakerName, &audioPath, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		if utterances.Valid && utterances.String != "" {
			if err := json.Unmarshal([]byte(utterances.String), &rec.Utterances); err != nil {
				s.log.Warnf("Skipping utterances of %s: %v", rec.VideoID, err)
			}
		}
		rec.Preview = preview.String
		rec.SpeakerName = speakerName.String
		rec.AudioPath = audioPath.String
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}
