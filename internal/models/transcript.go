package models

import "time"

// Utterance is one speaker-attributed span. Start and End are milliseconds.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
}

type TranscriptRecord struct {
	VideoID     string      `json:"videoId"`
	Transcript  string      `json:"transcript"`
	Preview     string      `json:"transcriptPreview"`
	Utterances  []Utterance `json:"utterances"`
	SpeakerName string      `json:"speakerName"`
	AudioPath   string      `json:"-"`
	CreatedAt   time.Time   `json:"createdAt"`
}
