package transcript

import (
	"math"
	"strings"

	"grokcast/internal/models"
)

const (
	contextWindowSeconds = 30
	backgroundLength     = 1000
	fullContextLength    = 2000
)

// SelectContext returns the prompt context for videoID at the given playback
// position. With a timestamp, utterances starting within 30 seconds of it are
// listed first, followed by the opening of the transcript as background.
// Otherwise, or when nothing is that close, the transcript is returned cut to
// 2000 characters. A missing record yields "".
func (s *Store) SelectContext(videoID string, timestamp *float64) string {
	rec, ok := s.Get(videoID)
	if !ok {
		return ""
	}

	if timestamp != nil && len(rec.Utterances) > 0 {
		nearby := utterancesNear(rec.Utterances, *timestamp)
		if len(nearby) > 0 {
			lines := make([]string, 0, len(nearby))
			for _, u := range nearby {
				lines = append(lines, u.Speaker+": "+u.Text)
			}
			return strings.Join(lines, "\n") + "\n\n" + prefix(rec.Transcript, backgroundLength)
		}
	}

	return truncate(rec.Transcript, fullContextLength)
}

func utterancesNear(utterances []models.Utterance, timestamp float64) []models.Utterance {
	var out []models.Utterance
	for _, u := range utterances {
		if math.Abs(float64(u.Start)/1000-timestamp) < contextWindowSeconds {
			out = append(out, u)
		}
	}
	return out
}
