package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/video"
)

// CommentRow is a locally stored comment.
type CommentRow struct {
	ID        string
	VideoID   string
	Author    string
	Body      string
	CreatedAt int64 // unix milliseconds
}

// Comment converts the row to the API shape.
func (r CommentRow) Comment() video.Comment {
	return video.Comment{
		ID:        r.ID,
		VideoID:   r.VideoID,
		Author:    r.Author,
		Text:      r.Body,
		Timestamp: time.UnixMilli(r.CreatedAt).UTC().Format(time.RFC3339Nano),
		Source:    "local",
	}
}

// InsertComment stores a new comment.
func InsertComment(ctx context.Context, db *sql.DB, c CommentRow) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO comments (id, video_id, author, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.VideoID, c.Author, c.Body, c.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListComments returns a video's comments, oldest first.
// A limit of 0 or less returns all of them.
func ListComments(ctx context.Context, db *sql.DB, videoID string, limit int) ([]CommentRow, error) {
	query := `
		SELECT id, video_id, author, body, created_at
		FROM comments
		WHERE video_id = ?
		ORDER BY created_at ASC, id ASC
	`
	args := []any{videoID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := []CommentRow{}
	for rows.Next() {
		var c CommentRow
		if err := rows.Scan(&c.ID, &c.VideoID, &c.Author, &c.Body, &c.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// GetProgress returns the stored playback position.
// found is false when nothing has been stored for the video.
func GetProgress(ctx context.Context, db *sql.DB, videoID string) (position float64, updatedAt int64, found bool, err error) {
	err = db.QueryRowContext(ctx,
		`SELECT position, updated_at FROM progress WHERE video_id = ?`, videoID,
	).Scan(&position, &updatedAt)
	if err == sql.ErrNoRows {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, errors.NewInternal(err)
	}
	return position, updatedAt, true, nil
}

// PutProgress upserts the playback position and returns the stored timestamp.
func PutProgress(ctx context.Context, db *sql.DB, videoID string, position float64) (int64, error) {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `
		INSERT INTO progress (video_id, position, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET position = excluded.position, updated_at = excluded.updated_at
	`, videoID, position, now)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return now, nil
}

// GetKV returns the value stored under key.
func GetKV(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewInternal(err)
	}
	return value, true, nil
}

// PutKV upserts a key-value pair.
func PutKV(ctx context.Context, db *sql.DB, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteKV removes key. Deleting a missing key is not an error.
func DeleteKV(ctx context.Context, db *sql.DB, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
