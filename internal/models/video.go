package models

import (
	"errors"
	"fmt"
	"strings"
)

type VideoState string

const (
	StateIdleListening    VideoState = "idle_listening"
	StateSpeakingNeutral  VideoState = "speaking_neutral"
	StateSpeakingEmphatic VideoState = "speaking_emphatic"
	StateReactSmile       VideoState = "react_smile"
	StateReactNod         VideoState = "react_nod"
	StateThinkingPause    VideoState = "thinking_pause"
)

// AllVideoStates lists every state in declaration order.
var AllVideoStates = []VideoState{
	StateIdleListening,
	StateSpeakingNeutral,
	StateSpeakingEmphatic,
	StateReactSmile,
	StateReactNod,
	StateThinkingPause,
}

// ErrInvalidState matches any *InvalidStateError via errors.Is.
var ErrInvalidState = errors.New("invalid video state")

// InvalidStateError reports a value outside the VideoState set, usually coming
// from a malformed classifier reply.
type InvalidStateError struct {
	Value string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid video state %q", e.Value)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// Valid reports whether s is one of the six known states.
func (s VideoState) Valid() bool {
	for _, known := range AllVideoStates {
		if s == known {
			return true
		}
	}
	return false
}

// ParseVideoState validates a raw value. Surrounding whitespace and case are
// ignored; anything else unknown is rejected.
func ParseVideoState(raw string) (VideoState, error) {
	state := VideoState(strings.ToLower(strings.TrimSpace(raw)))
	if !state.Valid() {
		return "", &InvalidStateError{Value: raw}
	}
	return state, nil
}

// StateConfig is the static description of one visual mood.
type StateConfig struct {
	ID                 VideoState   `json:"id"`
	Duration           float64      `json:"duration"`
	Loop               bool         `json:"loop"`
	AllowedTransitions []VideoState `json:"allowedTransitions"`
	Priority           int          `json:"priority"`
	PromptTemplate     string       `json:"promptTemplate"`
}

type TransitionType string

const (
	TransitionCrossfade TransitionType = "crossfade"
	TransitionSnap      TransitionType = "snap"
	TransitionBridge    TransitionType = "bridge"
)

type Transition struct {
	FromState      VideoState     `json:"fromState"`
	ToState        VideoState     `json:"toState"`
	TransitionType TransitionType `json:"transitionType"`
}

// ChatReply is the structured payload the persona model is asked to return.
type ChatReply struct {
	ReplyText     string `json:"replyText"`
	VideoState    string `json:"videoState"`
	EmotionalTone string `json:"emotionalTone"`
}

// ClipInfo points at the asset played for a state.
type ClipInfo struct {
	URL          string     `json:"url"`
	Duration     float64    `json:"duration"`
	WasGenerated bool       `json:"wasGenerated"`
	State        VideoState `json:"state"`
}
