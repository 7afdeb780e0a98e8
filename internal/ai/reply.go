package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"grokcast/internal/models"
)

// DecodeReply parses the persona's structured reply. Models sometimes wrap
// JSON in a markdown fence or add prose around it; both are tolerated. The
// video state is returned as sent: callers validate it with
// models.ParseVideoState.
func DecodeReply(content string) (models.ChatReply, error) {
	var reply models.ChatReply
	payload := extractJSONObject(content)
	if payload == "" {
		return reply, errors.New("decode reply: no JSON object in content")
	}
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return reply, fmt.Errorf("decode reply: %w", err)
	}
	reply.ReplyText = strings.TrimSpace(reply.ReplyText)
	if reply.ReplyText == "" {
		return reply, errors.New("decode reply: replyText is empty")
	}
	return reply, nil
}

func extractJSONObject(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
