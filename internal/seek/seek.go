// Package seek moves the embedded video player to a timestamp, falling
// back from the player API to frame messages to reloading the frame.
package seek

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/video"
)

// NativePlayer is a handle on the player API.
type NativePlayer interface {
	SeekTo(seconds int, allowSeekAhead bool) error
	Playing() bool
	Play() error
}

// Message is a cross-frame player command envelope.
type Message struct {
	Event string `json:"event"`
	Func  string `json:"func"`
	Args  []any  `json:"args"`
}

// FrameMessenger posts messages to the player frame.
type FrameMessenger interface {
	PostMessage(m Message) error
}

// FrameSource reads and rewrites the player frame's URL.
type FrameSource interface {
	Source() string
	SetSource(u string) error
}

// Method names the mechanism that performed a seek.
type Method string

const (
	MethodNative  Method = "native"
	MethodMessage Method = "message"
	MethodReload  Method = "reload"
)

// Controller seeks through whichever ports are available. Any port may be nil.
type Controller struct {
	Player    NativePlayer
	Messenger FrameMessenger
	Frame     FrameSource
}

// SeekTo moves playback to seconds, clamped at 0.
func (c *Controller) SeekTo(seconds int) (Method, error) {
	if seconds < 0 {
		seconds = 0
	}

	if c.Player != nil {
		if err := c.Player.SeekTo(seconds, true); err == nil {
			if !c.Player.Playing() {
				_ = c.Player.Play()
			}
			return MethodNative, nil
		}
	}

	if c.Messenger != nil {
		err := c.Messenger.PostMessage(Message{Event: "command", Func: "seekTo", Args: []any{seconds, true}})
		if err == nil {
			_ = c.Messenger.PostMessage(Message{Event: "command", Func: "playVideo", Args: []any{}})
			return MethodMessage, nil
		}
	}

	if c.Frame != nil {
		u, err := WithStart(c.Frame.Source(), seconds)
		if err != nil {
			return "", err
		}
		if err := c.Frame.SetSource(u); err != nil {
			return "", errors.NewInternal(fmt.Errorf("reload player: %w", err))
		}
		return MethodReload, nil
	}

	return "", errors.NewNotFound("player", "embed")
}

// SeekToString seeks to an "MM:SS" or "HH:MM:SS" timestamp. Malformed
// strings seek to 0.
func (c *Controller) SeekToString(ts string) (Method, error) {
	return c.SeekTo(video.TimeStringToSeconds(ts))
}

// SeekToValue accepts a number or a string, as found in data attributes.
func (c *Controller) SeekToValue(v any) (Method, error) {
	return c.SeekTo(Seconds(v))
}

// Seconds normalizes a timestamp value to whole non-negative seconds.
// Strings with a colon use positional parsing; other strings parse as numbers.
func Seconds(v any) int {
	switch t := v.(type) {
	case int:
		return max(t, 0)
	case int64:
		return max(int(t), 0)
	case float64:
		return video.SecondsFromFloat(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return video.SecondsFromFloat(f)
	case string:
		s := strings.TrimSpace(t)
		if strings.Contains(s, ":") {
			return video.TimeStringToSeconds(s)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) {
			return 0
		}
		return video.SecondsFromFloat(f)
	default:
		return 0
	}
}

// WithStart sets start=<seconds>&autoplay=1 on an embed URL, keeping its
// other query parameters.
func WithStart(src string, seconds int) (string, error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", errors.NewValidation("invalid player url").WithDetail("url", src)
	}
	q := u.Query()
	q.Set("start", strconv.Itoa(seconds))
	q.Set("autoplay", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// EmbedURL is the player frame URL for a video.
func EmbedURL(videoID string) string {
	return "https://www.youtube.com/embed/" + url.PathEscape(videoID) + "?enablejsapi=1"
}
