package ops

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"github.com/vidpage/vidpage/internal/db"
	"github.com/vidpage/vidpage/internal/errors"
)

// MaxNoteChars bounds a single section note.
const MaxNoteChars = 20000

const notePrefix = "notes."

// GetNote returns the note saved for a section, or "" when there is none.
func GetNote(ctx context.Context, database *sql.DB, sectionID string) (string, error) {
	key, err := noteKey(sectionID)
	if err != nil {
		return "", err
	}
	text, _, err := db.GetKV(ctx, database, key)
	return text, err
}

// PutNote saves a section note. Blank text removes the note.
func PutNote(ctx context.Context, database *sql.DB, sectionID, text string) error {
	key, err := noteKey(sectionID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return db.DeleteKV(ctx, database, key)
	}
	if n := utf8.RuneCountInString(text); n > MaxNoteChars {
		return errors.NewValidation("note is too long").
			WithDetail("max_chars", MaxNoteChars).
			WithDetail("actual_chars", n)
	}
	return db.PutKV(ctx, database, key, text)
}

func noteKey(sectionID string) (string, error) {
	sectionID = strings.TrimSpace(sectionID)
	if sectionID == "" {
		return "", errors.NewValidation("section id is required")
	}
	return notePrefix + sectionID, nil
}
