package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grokcast/internal/models"
	"grokcast/internal/transcript"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// processTimeout bounds one shared download and transcription job.
const processTimeout = 15 * time.Minute

var (
	ErrTranscriptionDisabled = errors.New("transcription is not configured")
	ErrDownloadFailed        = errors.New("failed to download YouTube audio")
	ErrTranscriptionFailed   = errors.New("transcription failed")
)

type AudioDownloader interface {
	Download(ctx context.Context, videoID string) (string, error)
}

type AudioTranscriber interface {
	Transcribe(ctx context.Context, audioPath string) (Transcription, error)
}

// Archive keeps transcripts beyond the process lifetime.
type Archive interface {
	SaveTranscript(ctx context.Context, rec models.TranscriptRecord) error
}

// Processor turns a YouTube URL into a cached transcript record. Concurrent
// requests for the same video share one download and transcription.
type Processor struct {
	store          *transcript.Store
	downloader     AudioDownloader
	transcriber    AudioTranscriber
	archive        Archive
	defaultSpeaker string
	group          singleflight.Group
	log            *logrus.Logger
}

// NewProcessor wires the pipeline. transcriber and archive may be nil.
// defaultSpeaker is recorded when a request names no speaker.
func NewProcessor(store *transcript.Store, downloader AudioDownloader, transcriber AudioTranscriber, archive Archive, defaultSpeaker string, log *logrus.Logger) *Processor {
	return &Processor{
		store:          store,
		downloader:     downloader,
		transcriber:    transcriber,
		archive:        archive,
		defaultSpeaker: defaultSpeaker,
		log:            log,
	}
}

// Process returns the transcript for youtubeURL, computing it only when the
// video is not cached yet. cached reports whether the store already had it.
func (p *Processor) Process(ctx context.Context, youtubeURL, speakerName string) (rec models.TranscriptRecord, cached bool, err error) {
	videoID, err := ExtractVideoID(youtubeURL)
	if err != nil {
		return models.TranscriptRecord{}, false, err
	}
	if rec, ok := p.store.Get(videoID); ok {
		return rec, true, nil
	}
	if p.transcriber == nil {
		return models.TranscriptRecord{}, false, ErrTranscriptionDisabled
	}

	if speakerName == "" {
		speakerName = p.defaultSpeaker
	}

	// The shared job outlives any single caller; a caller that gives up
	// stops waiting without failing the others.
	jobCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(videoID, func() (any, error) {
		ctx, cancel := context.WithTimeout(jobCtx, processTimeout)
		defer cancel()
		return p.process(ctx, videoID, speakerName)
	})
	select {
	case <-ctx.Done():
		return models.TranscriptRecord{}, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.TranscriptRecord{}, false, res.Err
		}
		return res.Val.(models.TranscriptRecord), false, nil
	}
}

func (p *Processor) process(ctx context.Context, videoID, speakerName string) (models.TranscriptRecord, error) {
	log := p.log.WithField("video_id", videoID)
	log.Info("Processing YouTube video")

	audioPath, err := p.downloader.Download(ctx, videoID)
	if err != nil {
		log.WithError(err).Error("Audio download failed")
		return models.TranscriptRecord{}, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	result, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		log.WithError(err).Error("Transcription failed")
		return models.TranscriptRecord{}, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	rec := p.store.PutRecord(models.TranscriptRecord{
		VideoID:     videoID,
		Transcript:  result.Text,
		Utterances:  result.Utterances,
		SpeakerName: speakerName,
		AudioPath:   audioPath,
	})
	log.WithField("utterances", len(rec.Utterances)).Info("Transcription complete")

	if p.archive != nil {
		if err := p.archive.SaveTranscript(ctx, rec); err != nil {
			log.WithError(err).Warn("Could not archive transcript")
		}
	}
	return rec, nil
}
