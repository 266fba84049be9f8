package ops

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/vidpage/vidpage/internal/db"
	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/video"
)

// GetProgress returns the stored playback position, or zero when none.
func GetProgress(ctx context.Context, database *sql.DB, videoID string) (*video.Progress, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, errors.NewValidation("video id is required")
	}
	pos, updated, found, err := db.GetProgress(ctx, database, videoID)
	if err != nil {
		return nil, err
	}
	p := &video.Progress{Timestamp: pos}
	if found {
		p.UpdatedAt = formatMillis(updated)
	}
	return p, nil
}

// SetProgress stores the playback position in seconds.
func SetProgress(ctx context.Context, database *sql.DB, videoID string, seconds float64) (*video.Progress, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, errors.NewValidation("video id is required")
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return nil, errors.NewValidation("timestamp must be a non-negative number")
	}
	updated, err := db.PutProgress(ctx, database, videoID, seconds)
	if err != nil {
		return nil, err
	}
	return &video.Progress{Timestamp: seconds, UpdatedAt: formatMillis(updated)}, nil
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}
