package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ProfileStoreRepository persists per-profile key/value blobs. It satisfies
// store.KV.
type ProfileStoreRepository struct {
	db *DB
}

// NewProfileStoreRepository creates a new profile store repository.
func NewProfileStoreRepository(db *DB) *ProfileStoreRepository {
	return &ProfileStoreRepository{db: db}
}

// Get returns the stored value, or nil if the key was never written.
func (r *ProfileStoreRepository) Get(ctx context.Context, profileID, key string) ([]byte, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `
		SELECT value FROM profile_store WHERE profile_id = $1 AND key = $2
	`, profileID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile value %s: %w", key, err)
	}
	return []byte(value), nil
}

// Put upserts the value for key. Last write wins.
func (r *ProfileStoreRepository) Put(ctx context.Context, profileID, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profile_store (profile_id, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (profile_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, profileID, key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put profile value %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection.
func (r *ProfileStoreRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
