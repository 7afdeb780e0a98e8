package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"grokcast/internal/proxy"

	"github.com/sirupsen/logrus"
)

const downloadTimeout = 10 * time.Minute

// commandRunner runs an external program and returns its combined stderr.
type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// Downloader extracts the audio track of a video with yt-dlp.
type Downloader struct {
	binary  string
	dir     string
	proxies *proxy.Manager
	run     commandRunner
	log     *logrus.Logger
}

func NewDownloader(binary, dir string, proxies *proxy.Manager, log *logrus.Logger) *Downloader {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Downloader{binary: binary, dir: dir, proxies: proxies, run: runCommand, log: log}
}

// Download stores the audio as <dir>/<videoID>.mp3 and returns that path.
// Only the canonical watch URL of videoID is handed to yt-dlp.
func (d *Downloader) Download(ctx context.Context, videoID string) (string, error) {
	if !ValidVideoID(videoID) {
		return "", ErrInvalidURL
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	audioPath := filepath.Join(d.dir, videoID+".mp3")

	args := []string{"-x", "--audio-format", "mp3", "--audio-quality", "0", "-o", audioPath, "--no-playlist"}
	if p := d.proxies.Next(); p != nil {
		args = append(args, "--proxy", p.String())
	}
	args = append(args, WatchURL(videoID))

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	d.log.WithField("video_id", videoID).Info("Downloading audio")
	stderr, err := d.run(ctx, d.binary, args...)
	if err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w: %s", err, lastLine(stderr))
	}
	if _, err := os.Stat(audioPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("yt-dlp produced no audio file at %s", audioPath)
		}
		return "", fmt.Errorf("stat audio file: %w", err)
	}
	return audioPath, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
