package chat

import (
	"fmt"
	"strings"
)

func buildSystemPrompt(personaName, transcriptContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. Respond briefly in %s's voice and style.", personaName, personaName)

	if transcriptContext != "" {
		b.WriteString("\n\nPODCAST CONTEXT:\n")
		b.WriteString(transcriptContext)
	}

	b.WriteString(`

CRITICAL INSTRUCTIONS:
- Keep your response to 1-3 sentences MAX. This is a CONVERSATION, not a lecture.
- Be direct and casual, like you're chatting with a friend.
- Don't repeat the question back. Don't use filler phrases like "Great question!" or "That's interesting."
- If you don't know something, just say so briefly.
- Match the energy and tone of casual podcast banter.`)
	return b.String()
}

func buildPersonaPrompt(personaName, transcriptContext string) string {
	prompt := fmt.Sprintf(`You are roleplaying as %[1]s in a natural conversation with a user.

Your role is to:
1. Respond naturally and conversationally EXACTLY as %[1]s would
2. Match %[1]s's personality, speaking style, and mannerisms
3. Select the appropriate visual state based on context
4. Keep responses concise (1-3 sentences for demo purposes)

Visual State Selection Guidelines:
- User asks a question → "thinking_pause"
- User makes a joke or says something positive → "react_smile"
- User agrees or you acknowledge → "react_nod"
- You give a short informative answer → "speaking_neutral"
- You emphasize an important point → "speaking_emphatic"
- Default/waiting state → "idle_listening"

IMPORTANT: You MUST respond with valid JSON in this exact format:
{
  "replyText": "Your conversational response as %[1]s (1-3 sentences)",
  "videoState": "one of: idle_listening, speaking_neutral, speaking_emphatic, react_smile, react_nod, thinking_pause",
  "emotionalTone": "neutral, warm, thoughtful, emphatic, playful, etc."
}

Be authentic to %[1]s's character, natural, helpful, and engaging.`, personaName)

	if transcriptContext != "" {
		prompt += "\n\nPODCAST CONTEXT:\n" + transcriptContext
	}
	return prompt
}
