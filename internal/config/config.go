package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port     string
	LogLevel string

	ChatProvider    string
	XAIAPIKey       string
	XAIBaseURL      string
	XAIChatModel    string
	XAIRespondModel string
	XAITTSURL       string
	GeminiAPIKey    string
	GeminiModel     string

	TTSProvider            string
	ElevenLabsAPIKeys      []string
	ElevenLabsModelID      string
	ElevenLabsDefaultVoice string
	VoicesFile             string
	VoicesDir              string

	AssemblyAIAPIKey string
	YtDlpPath        string
	YtDlpProxies     []string

	StorageDir     string
	PublicClipsDir string
	DatabasePath   string
	SessionMaxAge  time.Duration
	DefaultPersona string

	TelegramBotToken    string
	TelegramAPIEndpoint string
	DefaultLang         string
}

// LoadConfig reads .env (if present) and the environment. Nothing is
// mandatory: missing provider keys switch the matching component to its
// offline fallback.
func LoadConfig(log *logrus.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	maxAgeHours, err := strconv.Atoi(getEnv("SESSION_MAX_AGE_HOURS", "24"))
	if err != nil || maxAgeHours <= 0 {
		log.Warnf("Invalid SESSION_MAX_AGE_HOURS, using 24: %v", err)
		maxAgeHours = 24
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ChatProvider:    strings.ToLower(getEnv("CHAT_PROVIDER", "grok")),
		XAIAPIKey:       getEnv("XAI_API_KEY", ""),
		XAIBaseURL:      getEnv("XAI_BASE_URL", "https://api.x.ai/v1"),
		XAIChatModel:    getEnv("XAI_CHAT_MODEL", "grok-2-latest"),
		XAIRespondModel: getEnv("XAI_RESPOND_MODEL", "grok-3"),
		XAITTSURL:       getEnv("XAI_TTS_URL", "https://us-east-4.api.x.ai/voice-staging/api/v1/text-to-speech/generate"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		TTSProvider:            strings.ToLower(getEnv("TTS_PROVIDER", "grok")),
		ElevenLabsAPIKeys:      splitList(getEnv("ELEVENLABS_API_KEYS", "")),
		ElevenLabsModelID:      getEnv("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2"),
		ElevenLabsDefaultVoice: getEnv("ELEVENLABS_DEFAULT_VOICE", ""),
		VoicesFile:             getEnv("VOICES_FILE", "voices.json"),
		VoicesDir:              getEnv("VOICES_DIR", "public/voices"),

		AssemblyAIAPIKey: getEnv("ASSEMBLYAI_API_KEY", ""),
		YtDlpPath:        getEnv("YTDLP_PATH", "yt-dlp"),
		YtDlpProxies:     splitList(getEnv("YTDLP_PROXIES", "")),

		StorageDir:     getEnv("STORAGE_DIR", "storage"),
		PublicClipsDir: getEnv("PUBLIC_CLIPS_DIR", "public/clips"),
		DatabasePath:   getEnv("DATABASE_PATH", "./grokcast.db"),
		SessionMaxAge:  time.Duration(maxAgeHours) * time.Hour,
		DefaultPersona: getEnv("DEFAULT_PERSONA", "Joe Rogan"),

		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIEndpoint: getEnv("TELEGRAM_API_ENDPOINT", "https://api.telegram.org/bot%s/%s"),
		DefaultLang:         getEnv("DEFAULT_LANG", "en"),
	}

	if cfg.XAIAPIKey == "" {
		log.Warn("XAI_API_KEY not set - chat falls back to mock replies and grok voice is disabled")
	}
	if cfg.AssemblyAIAPIKey == "" {
		log.Warn("ASSEMBLYAI_API_KEY not set - YouTube processing is disabled")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
