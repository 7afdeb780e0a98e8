// Package server exposes GrokCast over HTTP.
package server

import (
	"context"
	"reflect"
	"strings"

	"grokcast/internal/chat"
	"grokcast/internal/models"
	"grokcast/internal/transcript"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"
)

type Chatter interface {
	Chat(ctx context.Context, req chat.ChatRequest) (*chat.ChatResult, error)
	Respond(ctx context.Context, req chat.RespondRequest) (*chat.RespondResult, error)
}

type VideoProcessor interface {
	Process(ctx context.Context, youtubeURL, speakerName string) (models.TranscriptRecord, bool, error)
}

type ClipStore interface {
	SessionClip(sessionID, clipID string) ([]byte, error)
}

// Handler holds shared dependencies for the route handlers.
type Handler struct {
	Chat      Chatter
	Processor VideoProcessor
	Store     *transcript.Store
	Clips     ClipStore
	Log       *logrus.Logger
	validate  *validator.Validate
}

func NewHandler(chatter Chatter, processor VideoProcessor, store *transcript.Store, clipStore ClipStore, log *logrus.Logger) *Handler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		Chat:      chatter,
		Processor: processor,
		Store:     store,
		Clips:     clipStore,
		Log:       log,
		validate:  validate,
	}
}

// New builds the fiber app with every route registered. publicClipsDir is
// served under /clips when non-empty.
func New(h *Handler, publicClipsDir string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "grokcast",
		DisableStartupMessage: true,
		BodyLimit:             8 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return respondError(c, code, err.Error(), "")
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(RequestLogger(h.Log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	if publicClipsDir != "" {
		app.Static("/clips", publicClipsDir, fiber.Static{MaxAge: 3600})
	}

	api := app.Group("/api")
	api.Post("/youtube/process", h.ProcessVideo)
	api.Get("/youtube/process", h.GetTranscript)
	api.Post("/chat", h.ChatMessage)
	api.Post("/respond", h.Respond)
	api.Get("/clips/:sessionId/:clipId", h.ServeClip)
	api.Get("/states", h.ListStates)

	return app
}
