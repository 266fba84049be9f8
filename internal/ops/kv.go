package ops

import (
	"context"
	"database/sql"

	"github.com/vidpage/vidpage/internal/db"
)

// KVStore exposes the sqlite kv table as a plain key-value store.
type KVStore struct {
	db *sql.DB
}

// NewKVStore wraps database.
func NewKVStore(database *sql.DB) *KVStore {
	return &KVStore{db: database}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	return db.GetKV(ctx, s.db, key)
}

func (s *KVStore) Put(ctx context.Context, key, value string) error {
	return db.PutKV(ctx, s.db, key, value)
}

// GetNote returns the note saved for sectionID.
func (s *KVStore) GetNote(ctx context.Context, sectionID string) (string, error) {
	return GetNote(ctx, s.db, sectionID)
}

// PutNote saves or clears the note for sectionID.
func (s *KVStore) PutNote(ctx context.Context, sectionID, text string) error {
	return PutNote(ctx, s.db, sectionID, text)
}
