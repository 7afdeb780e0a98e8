package youtube

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"grokcast/internal/models"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"github.com/sirupsen/logrus"
)

const transcriptionTimeout = 10 * time.Minute

// Transcription is the speaker-labelled text of one audio file.
type Transcription struct {
	Text       string
	Utterances []models.Utterance
}

// AssemblyAITranscriber uploads audio and waits for a speaker-labelled
// transcript.
type AssemblyAITranscriber struct {
	client *aai.Client
	log    *logrus.Logger
}

func NewAssemblyAITranscriber(apiKey string, log *logrus.Logger) (*AssemblyAITranscriber, error) {
	if apiKey == "" {
		return nil, ErrTranscriptionDisabled
	}
	return &AssemblyAITranscriber{client: aai.NewClient(apiKey), log: log}, nil
}

func (t *AssemblyAITranscriber) Transcribe(ctx context.Context, audioPath string) (Transcription, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return Transcription{}, fmt.Errorf("open %s: %w", audioPath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, transcriptionTimeout)
	defer cancel()

	params := &aai.TranscriptOptionalParams{SpeakerLabels: aai.Bool(true)}
	t.log.WithField("audio_path", audioPath).Info("Transcribing audio")
	tr, err := t.client.Transcripts.TranscribeFromReader(ctx, f, params)
	if err != nil {
		return Transcription{}, fmt.Errorf("assemblyai transcribe: %w", err)
	}
	if tr.Status == aai.TranscriptStatusError {
		return Transcription{}, fmt.Errorf("assemblyai transcribe: %s", deref(tr.Error))
	}
	if tr.Status != aai.TranscriptStatusCompleted {
		return Transcription{}, errors.New("assemblyai transcribe: transcript did not complete")
	}

	out := Transcription{Text: deref(tr.Text)}
	for _, u := range tr.Utterances {
		speaker := deref(u.Speaker)
		if speaker == "" {
			speaker = "Unknown"
		}
		out.Utterances = append(out.Utterances, models.Utterance{
			Speaker: speaker,
			Text:    deref(u.Text),
			Start:   deref(u.Start),
			End:     deref(u.End),
		})
	}
	return out, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
