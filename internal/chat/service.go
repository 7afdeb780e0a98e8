// Package chat runs one conversational turn with the persona: it picks
// transcript context, asks the model for a reply, voices it, and moves the
// session's video state.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"grokcast/internal/ai"
	"grokcast/internal/models"
	"grokcast/internal/state"
	"grokcast/internal/transcript"

	"github.com/sirupsen/logrus"
)

const (
	chatTemperature    = 0.8
	chatMaxTokens      = 150
	respondTemperature = 0.7

	// MP3 at 128 kbps is roughly 16 KB per second.
	mp3BytesPerSecond = 16000
	wordsPerSecond    = 2.5
	minAudioSeconds   = 3
)

var ErrEmptyMessage = errors.New("message is required")

// ClipResolver maps a video state to the asset the client should play.
type ClipResolver interface {
	Clip(s models.VideoState, sessionID string) models.ClipInfo
}

type Options struct {
	Completer      ai.Completer
	Synthesizer    ai.Synthesizer
	Store          *transcript.Store
	States         *state.Manager
	Clips          ClipResolver
	ChatModel      string
	RespondModel   string
	DefaultPersona string
}

type Service struct {
	completer      ai.Completer
	fallback       ai.Completer
	synth          ai.Synthesizer
	store          *transcript.Store
	states         *state.Manager
	clips          ClipResolver
	chatModel      string
	respondModel   string
	defaultPersona string
	log            *logrus.Logger
}

func NewService(opts Options, log *logrus.Logger) *Service {
	fallback := ai.NewMockService()
	completer := opts.Completer
	if completer == nil {
		completer = fallback
	}
	return &Service{
		completer:      completer,
		fallback:       fallback,
		synth:          opts.Synthesizer,
		store:          opts.Store,
		states:         opts.States,
		clips:          opts.Clips,
		chatModel:      opts.ChatModel,
		respondModel:   opts.RespondModel,
		defaultPersona: opts.DefaultPersona,
		log:            log,
	}
}

type ChatRequest struct {
	Message     string
	VideoID     string
	Timestamp   *float64
	SessionID   string
	PersonaName string
}

type ChatResult struct {
	ReplyText     string
	Audio         []byte
	AudioFormat   string
	AudioDuration float64
}

// Chat answers free text in the persona's voice, grounded on the part of the
// video the user is watching.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	persona := s.persona(req.PersonaName)
	log := s.log.WithFields(logrus.Fields{"session_id": req.SessionID, "persona": persona})

	var transcriptContext string
	if req.VideoID != "" && s.store != nil {
		transcriptContext = s.store.SelectContext(req.VideoID, req.Timestamp)
		log.WithField("context_chars", len(transcriptContext)).Debug("Selected transcript context")
	}

	reply, err := s.complete(ctx, ai.CompletionRequest{
		Model: s.chatModel,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: buildSystemPrompt(persona, transcriptContext)},
			{Role: ai.RoleUser, Content: req.Message},
		},
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	result := &ChatResult{ReplyText: reply}
	result.Audio, result.AudioFormat, result.AudioDuration = s.Speak(ctx, persona, reply)
	return result, nil
}

// Speak voices text for persona. Without a synthesizer, or when synthesis
// fails, it returns no audio and an estimated duration.
func (s *Service) Speak(ctx context.Context, persona, text string) (audio []byte, format string, duration float64) {
	duration = EstimateAudioDuration(text)
	if s.synth == nil {
		return nil, "", duration
	}
	out, err := s.synth.Synthesize(ctx, s.persona(persona), text)
	if err != nil {
		s.log.WithError(err).Warnf("TTS via %s failed, returning text only", s.synth.Name())
		return nil, "", duration
	}
	if len(out.Audio) == 0 {
		return nil, "", duration
	}
	return out.Audio, out.Format, float64(len(out.Audio)) / mp3BytesPerSecond
}

type RespondRequest struct {
	Message      string
	History      []models.Message
	CurrentState string
	SessionID    string
	PersonaName  string
	VideoID      string
	Timestamp    *float64
}

type RespondResult struct {
	ReplyText       string
	VideoState      models.VideoState
	Transition      models.Transition
	Clip            models.ClipInfo
	NeedsGeneration bool
	Emotion         string
	PromptUsed      string
}

// Respond asks the persona for a reply plus a visual state, then moves the
// session's machine toward that state and resolves the clip to show.
func (s *Service) Respond(ctx context.Context, req RespondRequest) (*RespondResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	persona := s.persona(req.PersonaName)
	log := s.log.WithFields(logrus.Fields{"session_id": req.SessionID, "persona": persona})

	var transcriptContext string
	if req.VideoID != "" && s.store != nil {
		transcriptContext = s.store.SelectContext(req.VideoID, req.Timestamp)
	}

	messages := make([]ai.Message, 0, len(req.History)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: buildPersonaPrompt(persona, transcriptContext)})
	for _, m := range req.History {
		messages = append(messages, ai.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: req.Message})

	content, err := s.complete(ctx, ai.CompletionRequest{
		Model:       s.respondModel,
		Messages:    messages,
		JSON:        true,
		Temperature: respondTemperature,
	})
	if err != nil {
		return nil, err
	}

	reply, err := ai.DecodeReply(content)
	if err != nil {
		log.WithError(err).Warn("Persona reply was not valid JSON, using it as plain text")
		reply = models.ChatReply{ReplyText: content, VideoState: string(models.StateSpeakingNeutral), EmotionalTone: "neutral"}
	}
	if reply.EmotionalTone == "" {
		reply.EmotionalTone = "neutral"
	}

	target, err := models.ParseVideoState(reply.VideoState)
	if err != nil {
		log.WithError(err).Warn("Model chose an unknown video state, recovering to idle")
		target = models.StateIdleListening
	}

	machine := s.machine(req.SessionID, req.CurrentState, log)
	transition, err := machine.SelectTransition(target)
	if err != nil {
		return nil, fmt.Errorf("select transition: %w", err)
	}
	machine.SetState(transition.ToState)
	if s.states != nil {
		s.states.Commit(req.SessionID, transition.ToState)
	}

	result := &RespondResult{
		ReplyText:  reply.ReplyText,
		VideoState: target,
		Transition: transition,
		Emotion:    reply.EmotionalTone,
		PromptUsed: state.GenerateVideoPrompt(transition.ToState, reply.EmotionalTone),
	}
	if s.clips != nil {
		result.Clip = s.clips.Clip(transition.ToState, req.SessionID)
		result.NeedsGeneration = result.Clip.WasGenerated
	}

	log.WithFields(logrus.Fields{
		"video_state": target,
		"to_state":    transition.ToState,
		"transition":  transition.TransitionType,
		"tone":        reply.EmotionalTone,
	}).Info("Persona responded")
	return result, nil
}

// machine positions a machine at the client's reported state when it is
// valid, otherwise at the session's last committed state.
func (s *Service) machine(sessionID, current string, log *logrus.Entry) *state.Machine {
	var m *state.Machine
	if s.states != nil {
		m = s.states.Machine(sessionID)
	} else {
		m = state.NewDefault()
	}
	if current == "" {
		return m
	}
	cur, err := models.ParseVideoState(current)
	if err != nil {
		log.WithError(err).Warn("Ignoring client video state")
		return m
	}
	m.SetState(cur)
	return m
}

func (s *Service) complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	content, err := s.completer.Complete(ctx, req)
	if err == nil {
		return content, nil
	}
	if s.completer == s.fallback {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	s.log.WithError(err).Warnf("Chat via %s failed, using %s reply", s.completer.Name(), s.fallback.Name())
	content, err = s.fallback.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return content, nil
}

func (s *Service) persona(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return s.defaultPersona
}

// EstimateAudioDuration guesses how long text takes to speak at about 150
// words per minute, never less than three seconds.
func EstimateAudioDuration(text string) float64 {
	seconds := float64(len(strings.Fields(text))) / wordsPerSecond
	return max(minAudioSeconds, seconds)
}
