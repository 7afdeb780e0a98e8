package server

import (
	"encoding/base64"

	"grokcast/internal/chat"
	"grokcast/internal/models"
	"grokcast/internal/state"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ProcessVideoPayload struct {
	YoutubeURL  string `json:"youtubeUrl" validate:"required"`
	SpeakerName string `json:"speakerName"`
}

type ChatPayload struct {
	Message     string   `json:"message" validate:"required"`
	VideoID     string   `json:"videoId"`
	Timestamp   *float64 `json:"timestamp" validate:"omitempty,gte=0"`
	SessionID   string   `json:"sessionId"`
	PersonaName string   `json:"personaName"`
}

type RespondPayload struct {
	Message             string           `json:"message" validate:"required"`
	ConversationHistory []models.Message `json:"conversationHistory" validate:"dive"`
	CurrentState        string           `json:"currentState"`
	SessionID           string           `json:"sessionId"`
	PersonaName         string           `json:"personaName"`
	VideoID             string           `json:"videoId"`
	Timestamp           *float64         `json:"timestamp" validate:"omitempty,gte=0"`
}

type transcriptResponse struct {
	Success           bool               `json:"success"`
	VideoID           string             `json:"videoId"`
	Transcript        string             `json:"transcript"`
	TranscriptPreview string             `json:"transcriptPreview"`
	Utterances        []models.Utterance `json:"utterances"`
	Cached            bool               `json:"cached"`
}

type chatResponse struct {
	ReplyText     string  `json:"replyText"`
	AudioBase64   string  `json:"audioBase64,omitempty"`
	AudioDuration float64 `json:"audioDuration"`
}

type respondMetadata struct {
	Emotion    string `json:"emotion"`
	PromptUsed string `json:"promptUsed"`
}

type respondResponse struct {
	ReplyText       string            `json:"replyText"`
	VideoState      models.VideoState `json:"videoState"`
	Transition      models.Transition `json:"transition"`
	ClipURL         string            `json:"clipUrl"`
	ClipDuration    float64           `json:"clipDuration"`
	NeedsGeneration bool              `json:"needsGeneration"`
	SessionID       string            `json:"sessionId"`
	Metadata        respondMetadata   `json:"metadata"`
}

func newTranscriptResponse(rec models.TranscriptRecord, cached bool) transcriptResponse {
	utterances := rec.Utterances
	if utterances == nil {
		utterances = []models.Utterance{}
	}
	return transcriptResponse{
		Success:           true,
		VideoID:           rec.VideoID,
		Transcript:        rec.Transcript,
		TranscriptPreview: rec.Preview,
		Utterances:        utterances,
		Cached:            cached,
	}
}

// ProcessVideo downloads and transcribes a YouTube video, or returns the
// cached transcript.
func (h *Handler) ProcessVideo(c *fiber.Ctx) error {
	var payload ProcessVideoPayload
	if err := c.BodyParser(&payload); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	if err := h.validate.Struct(payload); err != nil {
		return respondError(c, fiber.StatusBadRequest, "YouTube URL is required", formatValidationErrors(err))
	}

	rec, cached, err := h.Processor.Process(c.UserContext(), payload.YoutubeURL, payload.SpeakerName)
	if err != nil {
		requestLogger(c, h.Log).WithError(err).Error("YouTube processing failed")
		return respondWithErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(newTranscriptResponse(rec, cached))
}

func (h *Handler) GetTranscript(c *fiber.Ctx) error {
	videoID := c.Query("videoId")
	if videoID == "" {
		return respondError(c, fiber.StatusBadRequest, "videoId is required", "")
	}
	rec, ok := h.Store.Get(videoID)
	if !ok {
		return respondError(c, fiber.StatusNotFound, "Transcript not found", "")
	}
	return c.Status(fiber.StatusOK).JSON(newTranscriptResponse(rec, true))
}

func (h *Handler) ChatMessage(c *fiber.Ctx) error {
	var payload ChatPayload
	if err := c.BodyParser(&payload); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	if err := h.validate.Struct(payload); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Message is required", formatValidationErrors(err))
	}

	res, err := h.Chat.Chat(c.UserContext(), chat.ChatRequest{
		Message:     payload.Message,
		VideoID:     payload.VideoID,
		Timestamp:   payload.Timestamp,
		SessionID:   payload.SessionID,
		PersonaName: payload.PersonaName,
	})
	if err != nil {
		requestLogger(c, h.Log).WithError(err).Error("Chat failed")
		return respondWithErr(c, err)
	}

	out := chatResponse{ReplyText: res.ReplyText, AudioDuration: res.AudioDuration}
	if len(res.Audio) > 0 {
		out.AudioBase64 = base64.StdEncoding.EncodeToString(res.Audio)
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *Handler) Respond(c *fiber.Ctx) error {
	var payload RespondPayload
	if err := c.BodyParser(&payload); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	if err := h.validate.Struct(payload); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Missing required fields", formatValidationErrors(err))
	}
	if payload.SessionID == "" {
		payload.SessionID = uuid.NewString()
	}

	res, err := h.Chat.Respond(c.UserContext(), chat.RespondRequest{
		Message:      payload.Message,
		History:      payload.ConversationHistory,
		CurrentState: payload.CurrentState,
		SessionID:    payload.SessionID,
		PersonaName:  payload.PersonaName,
		VideoID:      payload.VideoID,
		Timestamp:    payload.Timestamp,
	})
	if err != nil {
		requestLogger(c, h.Log).WithError(err).Error("Respond failed")
		return respondWithErr(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(respondResponse{
		ReplyText:       res.ReplyText,
		VideoState:      res.VideoState,
		Transition:      res.Transition,
		ClipURL:         res.Clip.URL,
		ClipDuration:    res.Clip.Duration,
		NeedsGeneration: res.NeedsGeneration,
		SessionID:       payload.SessionID,
		Metadata: respondMetadata{
			Emotion:    res.Emotion,
			PromptUsed: res.PromptUsed,
		},
	})
}

func (h *Handler) ServeClip(c *fiber.Ctx) error {
	data, err := h.Clips.SessionClip(c.Params("sessionId"), c.Params("clipId"))
	if err != nil {
		return respondWithErr(c, err)
	}
	c.Set(fiber.HeaderContentType, "video/mp4")
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.Status(fiber.StatusOK).Send(data)
}

func (h *Handler) ListStates(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"states": state.Configs()})
}
