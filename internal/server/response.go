package server

import (
	"errors"
	"fmt"
	"strings"

	"grokcast/internal/chat"
	"grokcast/internal/clips"
	"grokcast/internal/youtube"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

func respondError(c *fiber.Ctx, status int, message string, details string) error {
	body := fiber.Map{"success": false, "error": message}
	if details != "" {
		body["details"] = details
	}
	return c.Status(status).JSON(body)
}

// respondWithErr maps domain errors to a status code.
func respondWithErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return respondError(c, fiber.StatusBadRequest, "Message is required", "")
	case errors.Is(err, youtube.ErrInvalidURL):
		return respondError(c, fiber.StatusBadRequest, "Invalid YouTube URL", err.Error())
	case errors.Is(err, youtube.ErrTranscriptionDisabled):
		return respondError(c, fiber.StatusServiceUnavailable, "AssemblyAI API key not configured", "")
	case errors.Is(err, youtube.ErrDownloadFailed):
		return respondError(c, fiber.StatusInternalServerError, "Failed to download YouTube video. Make sure yt-dlp is installed.", err.Error())
	case errors.Is(err, youtube.ErrTranscriptionFailed):
		return respondError(c, fiber.StatusInternalServerError, "Transcription failed", err.Error())
	case errors.Is(err, clips.ErrClipNotFound):
		return respondError(c, fiber.StatusNotFound, "Clip not found", "")
	default:
		return respondError(c, fiber.StatusInternalServerError, "Failed to process request", err.Error())
	}
}

func formatValidationErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("Field '%s' failed on the '%s' tag", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s (value: %s)", msg, fe.Param())
		}
		out = append(out, msg)
	}
	return strings.Join(out, "; ")
}
