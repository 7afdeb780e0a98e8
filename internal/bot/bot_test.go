package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"grokcast/internal/chat"
	"grokcast/internal/config"
	apptext "grokcast/internal/i18n"
	"grokcast/internal/models"
	"grokcast/internal/storage"
	"grokcast/internal/youtube"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

type sentRequest struct {
	method string
	chatID string
	text   string
}

// telegramServer imitates the Bot API closely enough for the client library.
type telegramServer struct {
	mu   sync.Mutex
	sent []sentRequest
}

func (s *telegramServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		_ = r.ParseMultipartForm(1 << 20)
	} else {
		_ = r.ParseForm()
	}

	s.mu.Lock()
	s.sent = append(s.sent, sentRequest{method: method, chatID: r.FormValue("chat_id"), text: r.FormValue("text")})
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"GrokCast","username":"grokcast_bot"}}`)
	case "sendMessage", "sendAudio":
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":%s,"type":"private"}}}`, r.FormValue("chat_id"))
	default:
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}
}

func (s *telegramServer) requests(method string) []sentRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentRequest
	for _, req := range s.sent {
		if req.method == method {
			out = append(out, req)
		}
	}
	return out
}

func (s *telegramServer) lastText(t *testing.T) string {
	t.Helper()
	msgs := s.requests("sendMessage")
	if len(msgs) == 0 {
		t.Fatal("no message sent")
	}
	return msgs[len(msgs)-1].text
}

type fakeConversation struct {
	mu   sync.Mutex
	reqs []chat.RespondRequest
}

func (f *fakeConversation) Respond(_ context.Context, req chat.RespondRequest) (*chat.RespondResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return &chat.RespondResult{
		ReplyText:  "Ha, love that.",
		VideoState: models.StateReactSmile,
		Transition: models.Transition{
			FromState:      models.VideoState(req.CurrentState),
			ToState:        models.StateReactSmile,
			TransitionType: models.TransitionCrossfade,
		},
	}, nil
}

func (f *fakeConversation) Speak(_ context.Context, persona, text string) ([]byte, string, float64) {
	return []byte("ID3-audio"), "mp3", 1
}

type fakeProcessor struct {
	err error
}

func (f *fakeProcessor) Process(_ context.Context, youtubeURL, speakerName string) (models.TranscriptRecord, bool, error) {
	if f.err != nil {
		return models.TranscriptRecord{}, false, f.err
	}
	id, err := youtube.ExtractVideoID(youtubeURL)
	if err != nil {
		return models.TranscriptRecord{}, false, err
	}
	return models.TranscriptRecord{VideoID: id, SpeakerName: speakerName}, false, nil
}

type testBot struct {
	bot          *Bot
	server       *telegramServer
	db           *storage.Storage
	conversation *fakeConversation
	processor    *fakeProcessor
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	tg := &telegramServer{}
	srv := httptest.NewServer(tg)
	t.Cleanup(srv.Close)

	db, err := storage.New(filepath.Join(t.TempDir(), "bot.db"), log)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		TelegramBotToken:    "TEST",
		TelegramAPIEndpoint: srv.URL + "/bot%s/%s",
		DefaultPersona:      "Host",
	}
	conversation := &fakeConversation{}
	processor := &fakeProcessor{}
	b, err := New(cfg, apptext.NewLocalizer("en", log), db, conversation, processor, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testBot{bot: b, server: tg, db: db, conversation: conversation, processor: processor}
}

func message(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: chatID, Type: "private"}}
	if strings.HasPrefix(text, "/") {
		length := len(text)
		if i := strings.Index(text, " "); i >= 0 {
			length = i
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	return tgbotapi.Update{Message: msg}
}

func (tb *testBot) session(t *testing.T, chatID int64) *models.SessionData {
	t.Helper()
	s, err := tb.db.GetSession(chatID, "Host")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	return s
}

func TestNewRegistersCommands(t *testing.T) {
	tb := newTestBot(t)
	if len(tb.server.requests("setMyCommands")) != 1 {
		t.Fatal("commands were not registered")
	}
}

func TestStartAndHelp(t *testing.T) {
	tb := newTestBot(t)
	tb.bot.HandleUpdate(message(5, "/start"))
	if got := tb.server.lastText(t); !strings.Contains(got, "I'm Host") {
		t.Fatalf("unexpected start message %q", got)
	}
	tb.bot.HandleUpdate(message(5, "/help"))
	if got := tb.server.lastText(t); !strings.Contains(got, "/video") {
		t.Fatalf("unexpected help message %q", got)
	}
}

func TestPersonaCommand(t *testing.T) {
	tb := newTestBot(t)
	tb.bot.HandleUpdate(message(5, "/persona Guest Star"))
	if got := tb.session(t, 5).PersonaName; got != "Guest Star" {
		t.Fatalf("persona = %q", got)
	}

	tb.bot.HandleUpdate(message(5, "/persona"))
	if tb.session(t, 5).Step != models.StepWaitingForPersona {
		t.Fatal("expected to wait for a persona")
	}
	tb.bot.HandleUpdate(message(5, "Another Host"))
	s := tb.session(t, 5)
	if s.PersonaName != "Another Host" || s.Step != models.StepIdle {
		t.Fatalf("unexpected session %+v", s)
	}
	if got := tb.server.lastText(t); got != "You are now talking to Another Host." {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestVideoCommand(t *testing.T) {
	tb := newTestBot(t)
	tb.bot.HandleUpdate(message(5, "/video https://youtu.be/dQw4w9WgXcQ"))
	tb.bot.Wait()

	if got := tb.session(t, 5).VideoID; got != "dQw4w9WgXcQ" {
		t.Fatalf("video id = %q", got)
	}
	if got := tb.server.lastText(t); !strings.Contains(got, "dQw4w9WgXcQ") {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestVideoPromptRejectsInvalidURL(t *testing.T) {
	tb := newTestBot(t)
	tb.bot.HandleUpdate(message(5, "/video"))
	tb.bot.HandleUpdate(message(5, "not a link"))
	if got := tb.server.lastText(t); got != "That doesn't look like a YouTube link." {
		t.Fatalf("unexpected reply %q", got)
	}
	if tb.session(t, 5).Step != models.StepWaitingForVideo {
		t.Fatal("should keep waiting for a valid link")
	}
}

func TestVideoProcessingDisabled(t *testing.T) {
	tb := newTestBot(t)
	tb.processor.err = youtube.ErrTranscriptionDisabled
	tb.bot.HandleUpdate(message(5, "/video https://youtu.be/dQw4w9WgXcQ"))
	tb.bot.Wait()
	if got := tb.server.lastText(t); got != "Video transcription is not configured on this server." {
		t.Fatalf("unexpected reply %q", got)
	}
	if tb.session(t, 5).VideoID != "" {
		t.Fatal("video should not be attached")
	}
}

func TestTimestampCommand(t *testing.T) {
	tb := newTestBot(t)
	tb.bot.HandleUpdate(message(5, "/at 42.5"))
	if ts := tb.session(t, 5).Timestamp; ts == nil || *ts != 42.5 {
		t.Fatalf("timestamp = %v", ts)
	}
	tb.bot.HandleUpdate(message(5, "/at -3"))
	if got := tb.server.lastText(t); !strings.HasPrefix(got, "Usage: /at") {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestConverse(t *testing.T) {
	tb := newTestBot(t)
	tb.bot.HandleUpdate(message(5, "/at 10"))
	tb.bot.HandleUpdate(message(5, "that was hilarious"))

	if len(tb.conversation.reqs) != 1 {
		t.Fatalf("expected one respond call, got %d", len(tb.conversation.reqs))
	}
	req := tb.conversation.reqs[0]
	if req.SessionID != "tg-5" || req.CurrentState != string(models.StateIdleListening) || req.PersonaName != "Host" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Timestamp == nil || *req.Timestamp != 10 {
		t.Fatalf("timestamp not forwarded: %v", req.Timestamp)
	}
	if got := tb.session(t, 5).VideoState; got != models.StateReactSmile {
		t.Fatalf("video state = %s", got)
	}
	if got := tb.server.lastText(t); got != "Ha, love that." {
		t.Fatalf("unexpected reply %q", got)
	}
	if len(tb.server.requests("sendAudio")) != 1 {
		t.Fatal("expected audio reply")
	}
	if len(tb.server.requests("sendChatAction")) != 1 {
		t.Fatal("expected typing action")
	}
}

func TestCancelResetsSession(t *testing.T) {
	tb := newTestBot(t)
	tb.bot.HandleUpdate(message(5, "/persona Guest"))
	tb.bot.HandleUpdate(message(5, "/at 12"))
	tb.bot.HandleUpdate(message(5, "/cancel"))

	s := tb.session(t, 5)
	if s.PersonaName != "Host" || s.Timestamp != nil || s.Step != models.StepIdle {
		t.Fatalf("session not reset: %+v", s)
	}
	if got := tb.server.lastText(t); got != "Conversation reset." {
		t.Fatalf("unexpected reply %q", got)
	}
}
