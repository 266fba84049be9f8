package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/vidpage/vidpage/internal/db"
	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/video"
)

// Comment limits
const (
	DefaultCommentLimit = 20
	MaxCommentLimit     = 100
	MaxCommentChars     = 5000
	DefaultAuthor       = "Anonymous"
)

// CommentSource supplies remote comments (the YouTube Data API).
type CommentSource interface {
	Configured() bool
	Comments(ctx context.Context, videoID string, maxResults int) ([]video.Comment, error)
}

// PostCommentInput contains parameters for the PostComment operation.
type PostCommentInput struct {
	VideoID string
	Text    string
	Author  string // default: "Anonymous"
}

// PostComment stores a comment and returns it.
func PostComment(ctx context.Context, database *sql.DB, input PostCommentInput) (*video.Comment, error) {
	videoID := strings.TrimSpace(input.VideoID)
	if videoID == "" {
		return nil, errors.NewValidation("video id is required")
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, errors.NewValidation("comment is required")
	}
	if n := utf8.RuneCountInString(text); n > MaxCommentChars {
		return nil, errors.NewValidation("comment is too long").
			WithDetail("max_chars", MaxCommentChars).
			WithDetail("actual_chars", n)
	}
	author := strings.TrimSpace(input.Author)
	if author == "" {
		author = DefaultAuthor
	}

	now := time.Now()
	id, err := generateULID(now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	row := db.CommentRow{
		ID:        id,
		VideoID:   videoID,
		Author:    author,
		Body:      text,
		CreatedAt: now.UnixMilli(),
	}
	if err := db.InsertComment(ctx, database, row); err != nil {
		return nil, err
	}
	c := row.Comment()
	return &c, nil
}

// ListCommentsInput contains parameters for the ListComments operation.
type ListCommentsInput struct {
	VideoID    string
	MaxResults int // default: 20, max: 100
}

// ListCommentsOutput contains the result of the ListComments operation.
type ListCommentsOutput struct {
	VideoID  string          `json:"videoId"`
	Comments []video.Comment `json:"comments"`
	Total    int             `json:"total"`
}

// ListComments returns locally posted comments followed by remote ones,
// up to MaxResults in total. A nil or unconfigured source serves local
// comments only.
func ListComments(ctx context.Context, database *sql.DB, source CommentSource, input ListCommentsInput) (*ListCommentsOutput, error) {
	videoID := strings.TrimSpace(input.VideoID)
	if videoID == "" {
		return nil, errors.NewValidation("video id is required")
	}
	limit := ClampCommentLimit(input.MaxResults)

	rows, err := db.ListComments(ctx, database, videoID, limit)
	if err != nil {
		return nil, err
	}
	comments := make([]video.Comment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, r.Comment())
	}

	if remaining := limit - len(comments); remaining > 0 && source != nil && source.Configured() {
		remote, err := source.Comments(ctx, videoID, remaining)
		if err != nil {
			return nil, err
		}
		comments = append(comments, remote...)
	}

	return &ListCommentsOutput{VideoID: videoID, Comments: comments, Total: len(comments)}, nil
}

// ClampCommentLimit applies the default and the upper bound.
func ClampCommentLimit(n int) int {
	if n <= 0 {
		return DefaultCommentLimit
	}
	if n > MaxCommentLimit {
		return MaxCommentLimit
	}
	return n
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// generateULID generates a new ULID. IDs minted in the same millisecond
// sort in creation order.
func generateULID(at time.Time) (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(at), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
