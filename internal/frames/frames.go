// Package frames grabs still images from YouTube videos with yt-dlp and
// ffmpeg and caches them in a Store.
package frames

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/video"
)

// ExtractTimeout bounds a single ffmpeg run.
const ExtractTimeout = 30 * time.Second

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Extractor produces JPEG frames, serving cached copies when present.
type Extractor struct {
	store   Store
	run     Runner
	tmpDir  string
	timeout time.Duration
}

// NewExtractor returns an extractor. A nil run uses ExecRunner.
func NewExtractor(store Store, run Runner) *Extractor {
	if run == nil {
		run = ExecRunner
	}
	return &Extractor{store: store, run: run, tmpDir: os.TempDir(), timeout: ExtractTimeout}
}

// Key is the cache key of one frame.
func Key(videoID string, seconds int) string {
	return fmt.Sprintf("%s/%d.jpg", videoID, seconds)
}

// URL is the API path serving one frame.
func URL(videoID string, seconds int) string {
	return fmt.Sprintf("/api/video-frame/%s?timestamp=%d", videoID, seconds)
}

// Frame returns the JPEG bytes of the frame at seconds.
func (e *Extractor) Frame(ctx context.Context, videoID string, seconds int) ([]byte, error) {
	if !videoIDPattern.MatchString(videoID) {
		return nil, errors.NewValidation("invalid video id").WithDetail("videoId", videoID)
	}
	if seconds < 0 {
		return nil, errors.NewValidation("timestamp must not be negative")
	}

	key := Key(videoID, seconds)
	if data, found, err := e.store.Get(ctx, key); err != nil {
		slog.Warn("frame cache read failed", "key", key, "error", err)
	} else if found {
		return data, nil
	}

	streamURL, err := e.streamURL(ctx, videoID)
	if err != nil {
		return nil, err
	}

	out := filepath.Join(e.tmpDir, fmt.Sprintf("frame_%s_%d_%d.jpg", videoID, seconds, time.Now().UnixNano()))
	defer os.Remove(out)

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	output, err := e.run(runCtx, "ffmpeg",
		"-ss", fmt.Sprint(seconds),
		"-i", streamURL,
		"-vframes", "1",
		"-q:v", "2",
		"-y", out,
	)
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, errors.NewTimeout("frame extraction")
	}
	if err != nil {
		return nil, errors.NewUpstream("ffmpeg", fmt.Errorf("%v: %s", err, tail(output)))
	}

	data, err := os.ReadFile(out)
	if err != nil || len(data) == 0 {
		return nil, errors.NewUpstream("ffmpeg", fmt.Errorf("output file not created"))
	}

	if err := e.store.Put(ctx, key, data); err != nil {
		slog.Warn("frame cache write failed", "key", key, "error", err)
	}
	return data, nil
}

// Batch extracts several frames. Failures are reported per frame.
func (e *Extractor) Batch(ctx context.Context, videoID string, timestamps []int) []video.Frame {
	frames := make([]video.Frame, 0, len(timestamps))
	for _, ts := range timestamps {
		if _, err := e.Frame(ctx, videoID, ts); err != nil {
			frames = append(frames, video.Frame{Timestamp: ts, Error: errors.As(err).Message})
			continue
		}
		frames = append(frames, video.Frame{Timestamp: ts, Success: true, URL: URL(videoID, ts)})
	}
	return frames
}

func (e *Extractor) streamURL(ctx context.Context, videoID string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	output, err := e.run(runCtx, "yt-dlp",
		"--quiet", "--no-warnings",
		"--get-url", "-f", "best",
		"https://www.youtube.com/watch?v="+videoID,
	)
	if runCtx.Err() == context.DeadlineExceeded {
		return "", errors.NewTimeout("stream lookup")
	}
	if err != nil {
		return "", errors.NewUpstream("yt-dlp", fmt.Errorf("%v: %s", err, tail(output)))
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	if first == "" {
		return "", errors.NewUpstream("yt-dlp", fmt.Errorf("no stream url"))
	}
	return first, nil
}

func tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[len(s)-300:]
	}
	return s
}
