package state

import (
	"fmt"
	"slices"

	"grokcast/internal/models"
)

var stateConfigs = map[models.VideoState]models.StateConfig{
	models.StateIdleListening: {
		ID:       models.StateIdleListening,
		Duration: 3,
		Loop:     true,
		AllowedTransitions: []models.VideoState{
			models.StateSpeakingNeutral,
			models.StateReactSmile,
			models.StateThinkingPause,
			models.StateReactNod,
		},
		Priority:       1,
		PromptTemplate: "Photorealistic professional person listening attentively, subtle breathing, minimal movement, maintaining eye contact, neutral warm expression, professional lighting",
	},
	models.StateSpeakingNeutral: {
		ID:       models.StateSpeakingNeutral,
		Duration: 2,
		AllowedTransitions: []models.VideoState{
			models.StateIdleListening,
			models.StateSpeakingEmphatic,
			models.StateReactSmile,
		},
		Priority:       3,
		PromptTemplate: "Photorealistic professional person speaking calmly and clearly, natural mouth movements, slight head gestures, warm engaging expression, professional lighting",
	},
	models.StateSpeakingEmphatic: {
		ID:       models.StateSpeakingEmphatic,
		Duration: 2,
		AllowedTransitions: []models.VideoState{
			models.StateSpeakingNeutral,
			models.StateIdleListening,
		},
		Priority:       4,
		PromptTemplate: "Photorealistic professional person speaking with emphasis and confidence, expressive hand gestures, passionate engaged tone, animated facial expressions, professional lighting",
	},
	models.StateReactSmile: {
		ID:       models.StateReactSmile,
		Duration: 1.5,
		AllowedTransitions: []models.VideoState{
			models.StateIdleListening,
			models.StateSpeakingNeutral,
		},
		Priority:       2,
		PromptTemplate: "Photorealistic professional person smiling warmly and genuinely, eyes crinkling with joy, slight head tilt, friendly approachable expression, professional lighting",
	},
	models.StateReactNod: {
		ID:       models.StateReactNod,
		Duration: 1,
		AllowedTransitions: []models.VideoState{
			models.StateIdleListening,
			models.StateSpeakingNeutral,
		},
		Priority:       2,
		PromptTemplate: "Photorealistic professional person nodding in agreement, smooth natural head movement, affirming expression, engaged eye contact, professional lighting",
	},
	models.StateThinkingPause: {
		ID:       models.StateThinkingPause,
		Duration: 2,
		AllowedTransitions: []models.VideoState{
			models.StateSpeakingNeutral,
			models.StateIdleListening,
		},
		Priority:       2,
		PromptTemplate: "Photorealistic professional person pausing thoughtfully, eyes moving slightly upward, contemplative focused expression, considering carefully, professional lighting",
	},
}

// LookupConfig returns a copy of the configuration for s.
func LookupConfig(s models.VideoState) (models.StateConfig, bool) {
	cfg, ok := stateConfigs[s]
	if !ok {
		return models.StateConfig{}, false
	}
	cfg.AllowedTransitions = slices.Clone(cfg.AllowedTransitions)
	return cfg, true
}

// Configs returns every state's configuration in declaration order.
func Configs() []models.StateConfig {
	out := make([]models.StateConfig, 0, len(models.AllVideoStates))
	for _, s := range models.AllVideoStates {
		cfg, _ := LookupConfig(s)
		out = append(out, cfg)
	}
	return out
}

// Machine tracks the clip currently on screen and decides how to reach the
// next one. It is not safe for concurrent use; Manager hands out one per session.
type Machine struct {
	current models.VideoState
}

func New(initial models.VideoState) *Machine {
	return &Machine{current: initial}
}

// NewDefault starts in idle_listening.
func NewDefault() *Machine {
	return New(models.StateIdleListening)
}

func (m *Machine) CurrentState() models.VideoState {
	return m.current
}

// SetState overwrites the current state without checking allowed transitions.
func (m *Machine) SetState(s models.VideoState) {
	m.current = s
}

func (m *Machine) CanTransitionTo(target models.VideoState) bool {
	cfg, ok := stateConfigs[m.current]
	if !ok {
		return false
	}
	return slices.Contains(cfg.AllowedTransitions, target)
}

// SelectTransition picks the next clip for target. Direct edges crossfade, a
// state reachable from both ends is snapped to, and everything else falls
// back to idle_listening. It never commits; call SetState with the result.
func (m *Machine) SelectTransition(target models.VideoState) (models.Transition, error) {
	if !target.Valid() {
		return models.Transition{}, &models.InvalidStateError{Value: string(target)}
	}

	if m.CanTransitionTo(target) {
		return models.Transition{
			FromState:      m.current,
			ToState:        target,
			TransitionType: models.TransitionCrossfade,
		}, nil
	}

	if bridge, ok := findBridgeState(m.current, target); ok && bridge != models.StateIdleListening {
		return models.Transition{
			FromState:      m.current,
			ToState:        bridge,
			TransitionType: models.TransitionSnap,
		}, nil
	}

	return models.Transition{
		FromState:      m.current,
		ToState:        models.StateIdleListening,
		TransitionType: models.TransitionCrossfade,
	}, nil
}

// Config panics on a state outside the table: the set is closed, so a miss
// means the caller skipped validation.
func (m *Machine) Config(s models.VideoState) models.StateConfig {
	cfg, ok := LookupConfig(s)
	if !ok {
		panic(fmt.Sprintf("state: no config for video state %q", s))
	}
	return cfg
}

func findBridgeState(from, to models.VideoState) (models.VideoState, bool) {
	fromCfg, ok := stateConfigs[from]
	if !ok {
		return "", false
	}
	toCfg := stateConfigs[to]
	for _, s := range fromCfg.AllowedTransitions {
		if slices.Contains(toCfg.AllowedTransitions, s) {
			return s, true
		}
	}
	return "", false
}

// GenerateVideoPrompt builds the clip generation prompt for a state.
func GenerateVideoPrompt(s models.VideoState, emotionalTone string) string {
	cfg, ok := LookupConfig(s)
	if !ok {
		cfg, _ = LookupConfig(models.StateIdleListening)
	}
	return fmt.Sprintf("%s, %s tone, 16:9 aspect ratio, high quality, %g seconds", cfg.PromptTemplate, emotionalTone, cfg.Duration)
}
