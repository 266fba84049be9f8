package youtube

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vidpage/vidpage/internal/video"
)

// chapterLine matches description lines like "01:23 Intro", "1:02:03 - Q&A"
// or "(12:00) Demo".
var chapterLine = regexp.MustCompile(`^\(?((?:\d{1,2}:)?\d{1,2}:\d{2})\)?\s*[-–:|]?\s*(.+)$`)

// ParseChapters extracts chapter markers from a video description.
// thumbnailURL builds the per-chapter image link; it may be nil.
func ParseChapters(description string, thumbnailURL func(seconds int) string) []video.Chapter {
	chapters := []video.Chapter{}
	for _, line := range strings.Split(description, "\n") {
		m := chapterLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		title := strings.TrimSpace(m[2])
		if title == "" {
			continue
		}
		secs := video.TimeStringToSeconds(m[1])
		ch := video.Chapter{Timestamp: secs, Title: title}
		if thumbnailURL != nil {
			ch.ThumbnailURL = thumbnailURL(secs)
		}
		chapters = append(chapters, ch)
	}
	return chapters
}

// FrameURL is the default chapter thumbnail: a frame grabbed at the
// chapter start through the frame endpoint.
func FrameURL(videoID string) func(int) string {
	return func(seconds int) string {
		return fmt.Sprintf("/api/video-frame/%s?timestamp=%d", videoID, seconds)
	}
}
