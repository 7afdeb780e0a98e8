package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"grokcast/internal/chat"
	"grokcast/internal/models"
	"grokcast/internal/youtube"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	replyTimeout = 2 * time.Minute
	videoTimeout = 15 * time.Minute
)

func (b *Bot) handleCommand(message *tgbotapi.Message, session *models.SessionData) {
	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		b.sendLocalized(chatID, "start_message", map[string]string{"Persona": session.PersonaName})
	case "help":
		b.sendLocalized(chatID, "help_message", nil)
	case "persona":
		if args == "" {
			session.Step = models.StepWaitingForPersona
			b.saveSession(chatID, session)
			b.sendLocalized(chatID, "persona_prompt", nil)
			return
		}
		b.setPersona(chatID, args, session)
	case "video":
		if args == "" {
			session.Step = models.StepWaitingForVideo
			b.saveSession(chatID, session)
			b.sendLocalized(chatID, "video_prompt", nil)
			return
		}
		b.startVideoProcessing(chatID, args, session)
	case "at":
		b.setTimestamp(chatID, args, session)
	case "state":
		b.sendLocalized(chatID, "current_state", map[string]string{"State": string(session.VideoState)})
	case "cancel":
		b.handleCancelCommand(chatID, session)
	default:
		b.log.Debugf("Received an unknown command: %s", message.Command())
	}
}

func (b *Bot) handleCancelCommand(chatID int64, session *models.SessionData) {
	b.cancelBackgroundTask(chatID)
	*session = *models.NewDefaultSessionData(b.cfg.DefaultPersona)
	b.saveSession(chatID, session)
	b.sendLocalized(chatID, "cancel_message", nil)
}

func (b *Bot) setPersona(chatID int64, name string, session *models.SessionData) {
	name = strings.TrimSpace(name)
	if name == "" {
		b.sendLocalized(chatID, "persona_prompt", nil)
		return
	}
	session.PersonaName = name
	session.Step = models.StepIdle
	session.VideoState = models.StateIdleListening
	b.saveSession(chatID, session)
	b.sendLocalized(chatID, "persona_set", map[string]string{"Persona": name})
}

func (b *Bot) setTimestamp(chatID int64, raw string, session *models.SessionData) {
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds < 0 {
		b.sendLocalized(chatID, "timestamp_usage", nil)
		return
	}
	session.Timestamp = &seconds
	b.saveSession(chatID, session)
	b.sendLocalized(chatID, "timestamp_set", map[string]string{"Seconds": strconv.FormatFloat(seconds, 'f', -1, 64)})
}

// startVideoProcessing validates the link, then downloads and transcribes in
// the background so the chat stays responsive.
func (b *Bot) startVideoProcessing(chatID int64, rawURL string, session *models.SessionData) {
	rawURL = strings.TrimSpace(rawURL)
	if _, err := youtube.ExtractVideoID(rawURL); err != nil {
		b.sendLocalized(chatID, "invalid_video_url", nil)
		return
	}

	session.Step = models.StepIdle
	b.saveSession(chatID, session)
	b.sendLocalized(chatID, "processing_video", nil)

	ctx, task := b.registerBackgroundTask(chatID)
	ctx, cancel := context.WithTimeout(ctx, videoTimeout)
	speaker := session.PersonaName

	b.tasks.Add(1)
	go func() {
		defer b.tasks.Done()
		defer cancel()
		defer b.clearBackgroundTask(chatID, task)
		b.processVideo(ctx, chatID, rawURL, speaker)
	}()
}

func (b *Bot) processVideo(ctx context.Context, chatID int64, rawURL, speaker string) {
	rec, cached, err := b.processor.Process(ctx, rawURL, speaker)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		b.log.WithError(err).Errorf("Video processing failed for chat %d", chatID)
		switch {
		case errors.Is(err, youtube.ErrInvalidURL):
			b.sendLocalized(chatID, "invalid_video_url", nil)
		case errors.Is(err, youtube.ErrTranscriptionDisabled):
			b.sendLocalized(chatID, "transcription_disabled", nil)
		default:
			b.sendLocalized(chatID, "video_error", nil)
		}
		return
	}

	unlock := b.lockChat(chatID)
	defer unlock()

	session, err := b.db.GetSession(chatID, b.cfg.DefaultPersona)
	if err != nil {
		b.log.WithError(err).Errorf("Could not load session for chat %d", chatID)
		b.sendLocalized(chatID, "database_error", nil)
		return
	}
	session.VideoID = rec.VideoID
	session.Timestamp = nil
	b.saveSession(chatID, session)

	b.log.WithFields(logrus.Fields{"chat_id": chatID, "video_id": rec.VideoID, "cached": cached}).Info("Video attached to chat")
	b.sendLocalized(chatID, "video_ready", map[string]string{"VideoID": rec.VideoID})
}

func (b *Bot) converse(chatID int64, text string, session *models.SessionData) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.log.Debugf("Could not send typing action: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	res, err := b.conversation.Respond(ctx, chat.RespondRequest{
		Message:      text,
		CurrentState: string(session.VideoState),
		SessionID:    sessionID(chatID),
		PersonaName:  session.PersonaName,
		VideoID:      session.VideoID,
		Timestamp:    session.Timestamp,
	})
	if err != nil {
		b.log.WithError(err).Errorf("Reply failed for chat %d", chatID)
		b.sendLocalized(chatID, "chat_error", nil)
		return
	}

	session.VideoState = res.Transition.ToState
	b.saveSession(chatID, session)

	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, res.ReplyText)); err != nil {
		b.log.WithError(err).Warnf("Could not send reply to chat %d", chatID)
		return
	}

	audio, format, _ := b.conversation.Speak(ctx, session.PersonaName, res.ReplyText)
	if len(audio) == 0 {
		return
	}
	if format == "" {
		format = "mp3"
	}
	voice := tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("reply_%d.%s", chatID, format),
		Bytes: audio,
	})
	voice.Title = session.PersonaName
	if _, err := b.api.Send(voice); err != nil {
		b.log.WithError(err).Warnf("Could not send audio to chat %d", chatID)
	}
}

func sessionID(chatID int64) string {
	return "tg-" + strconv.FormatInt(chatID, 10)
}
