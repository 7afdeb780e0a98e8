package youtube

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var ErrInvalidURL = errors.New("invalid YouTube URL")

// YouTube IDs are eleven URL-safe base64 characters.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID pulls the video ID out of watch, short and embed URLs on a
// YouTube host. Anything else, including IDs that are not eleven URL-safe
// characters, is ErrInvalidURL.
func ExtractVideoID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}

	var id string
	switch strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.") {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.TrimPrefix(u.Path, "/embed/")
		}
	case "youtu.be":
		id = strings.TrimPrefix(u.Path, "/")
	}

	if !ValidVideoID(id) {
		return "", ErrInvalidURL
	}
	return id, nil
}

func ValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// WatchURL is the canonical page for a validated video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
