// Package bot is a Telegram front-end for talking to the persona.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"grokcast/internal/chat"
	"grokcast/internal/config"
	"grokcast/internal/models"
	"grokcast/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"
)

type Conversation interface {
	Respond(ctx context.Context, req chat.RespondRequest) (*chat.RespondResult, error)
	Speak(ctx context.Context, persona, text string) ([]byte, string, float64)
}

type VideoProcessor interface {
	Process(ctx context.Context, youtubeURL, speakerName string) (models.TranscriptRecord, bool, error)
}

type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          *config.Config
	localizer    *i18n.Localizer
	db           *storage.Storage
	conversation Conversation
	processor    VideoProcessor
	log          *logrus.Logger
	activeTasks  sync.Map
	chatLocks    sync.Map
	tasks        sync.WaitGroup
}

func New(cfg *config.Config, localizer *i18n.Localizer, db *storage.Storage, conversation Conversation, processor VideoProcessor, log *logrus.Logger) (*Bot, error) {
	client := &http.Client{Timeout: 90 * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramBotToken, cfg.TelegramAPIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}

	api.Debug = false
	log.Infof("Authorized on account %s", api.Self.UserName)

	bot := &Bot{
		api:          api,
		cfg:          cfg,
		localizer:    localizer,
		db:           db,
		conversation: conversation,
		processor:    processor,
		log:          log,
	}

	if err := bot.setCommands(); err != nil {
		log.Warnf("Failed to set bot commands: %v", err)
	}

	return bot, nil
}

func (b *Bot) setCommands() error {
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Start talking"},
		{Command: "video", Description: "Load a YouTube video as context"},
		{Command: "at", Description: "Set your position in the video (seconds)"},
		{Command: "persona", Description: "Change who you are talking to"},
		{Command: "state", Description: "Show the current mood"},
		{Command: "cancel", Description: "Reset the conversation"},
		{Command: "help", Description: "Show help"},
	}
	_, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...))
	return err
}

// Start polls for updates until ctx is cancelled, then waits for running
// video jobs to stop.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.cancelAllTasks()
			b.tasks.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.HandleUpdate(update)
		}
	}
}

// HandleUpdate processes a single update. Updates for the same chat are
// serialised.
func (b *Bot) HandleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	chatID := upd.Message.Chat.ID

	unlock := b.lockChat(chatID)
	defer unlock()

	session, err := b.db.GetSession(chatID, b.cfg.DefaultPersona)
	if err != nil {
		b.log.WithError(err).Errorf("Could not get or create session for chat %d", chatID)
		b.sendLocalized(chatID, "database_error", nil)
		return
	}

	b.log.WithFields(logrus.Fields{"chat_id": chatID, "step": session.Step}).Debug("Received message")
	if upd.Message.IsCommand() {
		b.handleCommand(upd.Message, session)
		return
	}

	switch session.Step {
	case models.StepWaitingForVideo:
		b.startVideoProcessing(chatID, upd.Message.Text, session)
	case models.StepWaitingForPersona:
		b.setPersona(chatID, upd.Message.Text, session)
	default:
		b.converse(chatID, upd.Message.Text, session)
	}
}

// Wait blocks until background video jobs finish.
func (b *Bot) Wait() {
	b.tasks.Wait()
}

func (b *Bot) lockChat(chatID int64) func() {
	mu, _ := b.chatLocks.LoadOrStore(chatID, &sync.Mutex{})
	chatMutex := mu.(*sync.Mutex)
	chatMutex.Lock()
	return chatMutex.Unlock
}

func (b *Bot) localize(messageID string, data map[string]string) string {
	text, err := b.localizer.Localize(&i18n.LocalizeConfig{MessageID: messageID, TemplateData: data})
	if err != nil {
		b.log.Warnf("Missing translation %s: %v", messageID, err)
		return messageID
	}
	return text
}

func (b *Bot) sendLocalized(chatID int64, messageID string, data map[string]string) {
	msg := tgbotapi.NewMessage(chatID, b.localize(messageID, data))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).Warnf("Could not send %s to chat %d", messageID, chatID)
	}
}

func (b *Bot) saveSession(chatID int64, session *models.SessionData) {
	if err := b.db.SetSession(chatID, session); err != nil {
		b.log.WithError(err).Errorf("Could not save session for chat %d", chatID)
	}
}

type backgroundTask struct {
	cancel context.CancelFunc
}

func (b *Bot) registerBackgroundTask(chatID int64) (context.Context, *backgroundTask) {
	b.cancelBackgroundTask(chatID)

	ctx, cancel := context.WithCancel(context.Background())
	task := &backgroundTask{cancel: cancel}
	b.activeTasks.Store(chatID, task)
	return ctx, task
}

func (b *Bot) cancelBackgroundTask(chatID int64) {
	if task, ok := b.activeTasks.LoadAndDelete(chatID); ok {
		task.(*backgroundTask).cancel()
		b.log.Infof("Cancelled background task for chat %d", chatID)
	}
}

func (b *Bot) cancelAllTasks() {
	b.activeTasks.Range(func(key, value any) bool {
		value.(*backgroundTask).cancel()
		b.activeTasks.Delete(key)
		return true
	})
}

// clearBackgroundTask forgets task unless a newer one replaced it.
func (b *Bot) clearBackgroundTask(chatID int64, task *backgroundTask) {
	task.cancel()
	b.activeTasks.CompareAndDelete(chatID, task)
}
