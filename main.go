package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"grokcast/internal/ai"
	"grokcast/internal/apikeys"
	"grokcast/internal/bot"
	"grokcast/internal/chat"
	"grokcast/internal/clips"
	"grokcast/internal/config"
	"grokcast/internal/i18n"
	"grokcast/internal/proxy"
	"grokcast/internal/server"
	"grokcast/internal/state"
	"grokcast/internal/storage"
	"grokcast/internal/transcript"
	"grokcast/internal/youtube"

	"github.com/sirupsen/logrus"
)

const cleanupInterval = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig(config.NewLogger(os.Getenv("LOG_LEVEL")))
	log := config.NewLogger(cfg.LogLevel)

	db, err := storage.New(cfg.DatabasePath, log)
	if err != nil {
		log.Fatalf("Could not initialize database: %v", err)
	}
	defer db.Close()

	store := transcript.NewStore()
	warmStore(ctx, store, db, log)

	completer := newCompleter(ctx, cfg, log)
	if closer, ok := completer.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	synthesizer := newSynthesizer(cfg, log)

	clipManager := clips.NewManager(cfg.StorageDir, cfg.PublicClipsDir, log)
	chatService := chat.NewService(chat.Options{
		Completer:      completer,
		Synthesizer:    synthesizer,
		Store:          store,
		States:         state.NewManager(log),
		Clips:          clipManager,
		ChatModel:      cfg.XAIChatModel,
		RespondModel:   cfg.XAIRespondModel,
		DefaultPersona: cfg.DefaultPersona,
	}, log)

	processor := newProcessor(cfg, store, db, log)

	go runCleanup(ctx, clipManager, cfg.SessionMaxAge, log)

	if cfg.TelegramBotToken != "" {
		telegramBot, err := bot.New(cfg, i18n.NewLocalizer(cfg.DefaultLang, log), db, chatService, processor, log)
		if err != nil {
			log.Fatalf("Could not initialize Telegram bot: %v", err)
		}
		go telegramBot.Start(ctx)
	}

	app := server.New(server.NewHandler(chatService, processor, store, clipManager, log), cfg.PublicClipsDir)
	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	log.WithFields(logrus.Fields{
		"port":          cfg.Port,
		"chat_provider": completer.Name(),
		"transcripts":   store.Len(),
	}).Info("GrokCast listening")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func warmStore(ctx context.Context, store *transcript.Store, db *storage.Storage, log *logrus.Logger) {
	records, err := db.LoadTranscripts(ctx)
	if err != nil {
		log.WithError(err).Warn("Could not load archived transcripts")
		return
	}
	for _, rec := range records {
		store.PutRecord(rec)
	}
}

// newCompleter picks the chat provider. Anything misconfigured degrades to
// mock replies so the demo keeps working offline.
func newCompleter(ctx context.Context, cfg *config.Config, log *logrus.Logger) ai.Completer {
	switch cfg.ChatProvider {
	case "gemini":
		svc, err := ai.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err == nil {
			return svc
		}
		log.WithError(err).Warn("Gemini unavailable, using mock replies")
	case "grok":
		svc, err := ai.NewGrokService(cfg.XAIAPIKey, cfg.XAIBaseURL, cfg.XAIChatModel, log)
		if err == nil {
			return svc
		}
		log.WithError(err).Warn("Grok unavailable, using mock replies")
	case "mock":
	default:
		log.Warnf("Unknown CHAT_PROVIDER %q, using mock replies", cfg.ChatProvider)
	}
	return ai.NewMockService()
}

func newSynthesizer(cfg *config.Config, log *logrus.Logger) ai.Synthesizer {
	switch cfg.TTSProvider {
	case "grok":
		svc, err := ai.NewGrokVoiceService(cfg.XAIAPIKey, cfg.XAITTSURL, cfg.VoicesDir, log)
		if err == nil {
			return svc
		}
		log.WithError(err).Warn("Grok voice unavailable, replies will be text only")
	case "elevenlabs":
		keys, err := apikeys.NewManager(cfg.ElevenLabsAPIKeys, log)
		if err != nil {
			log.WithError(err).Warn("ElevenLabs keys missing, replies will be text only")
			return nil
		}
		svc, err := ai.NewElevenLabsService(keys, cfg.ElevenLabsModelID, cfg.ElevenLabsDefaultVoice, cfg.VoicesFile, log)
		if err == nil {
			return svc
		}
		log.WithError(err).Warn("ElevenLabs unavailable, replies will be text only")
	case "none":
	default:
		log.Warnf("Unknown TTS_PROVIDER %q, replies will be text only", cfg.TTSProvider)
	}
	return nil
}

func newProcessor(cfg *config.Config, store *transcript.Store, db *storage.Storage, log *logrus.Logger) *youtube.Processor {
	proxies, err := proxy.NewManager(cfg.YtDlpProxies, log)
	if err != nil && !errors.Is(err, proxy.ErrNoProxiesAvailable) {
		log.WithError(err).Warn("Ignoring proxy configuration")
	}
	downloader := youtube.NewDownloader(cfg.YtDlpPath, filepath.Join(os.TempDir(), "grokcast-audio"), proxies, log)

	var transcriber youtube.AudioTranscriber
	if t, err := youtube.NewAssemblyAITranscriber(cfg.AssemblyAIAPIKey, log); err == nil {
		transcriber = t
	}
	return youtube.NewProcessor(store, downloader, transcriber, db, cfg.DefaultPersona, log)
}

func runCleanup(ctx context.Context, clipManager *clips.Manager, maxAge time.Duration, log *logrus.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := clipManager.CleanupOldSessions(maxAge); err != nil {
				log.WithError(err).Warn("Session cleanup failed")
			} else if n > 0 {
				log.Infof("Removed %d old session directories", n)
			}
		}
	}
}
