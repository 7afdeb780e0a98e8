package models

type ChatStep string

const (
	StepIdle              ChatStep = "idle"
	StepWaitingForVideo   ChatStep = "waiting_for_video"
	StepWaitingForPersona ChatStep = "waiting_for_persona"
)

// SessionData is what the Telegram front-end remembers per chat.
type SessionData struct {
	Step        ChatStep
	PersonaName string
	VideoID     string
	Timestamp   *float64
	VideoState  VideoState
}

// NewDefaultSessionData creates a session in the idle step, listening.
func NewDefaultSessionData(persona string) *SessionData {
	return &SessionData{
		Step:        StepIdle,
		PersonaName: persona,
		VideoState:  StateIdleListening,
	}
}

type Voice struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

type VoicesFile struct {
	Voices []Voice `json:"voices"`
}

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}
