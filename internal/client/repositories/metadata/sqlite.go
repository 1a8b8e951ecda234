// Package metadata is a small key/value table for client state that is not
// a record: the stored access token and the sync signals shown by the UI.
package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/dbx"
	"github.com/dmitrijs2005/playkeeper/internal/timex"
)

const (
	KeyAccessToken = "access_token"
	KeyIdentity    = "identity"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns (nil, nil) for an absent key.
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := dbx.From(ctx, r.db).QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := dbx.From(ctx, r.db).ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := dbx.From(ctx, r.db).ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

func lastSyncKey(identity, domain string) string {
	return "last_sync:" + identity + ":" + domain
}

func lastFailedKey(identity, domain string) string {
	return "last_failed:" + identity + ":" + domain
}

// LastSuccessfulSync returns when a sync of domain last completed for
// identity, or the zero time.
func (r *SQLiteRepository) LastSuccessfulSync(ctx context.Context, identity, domain string) (time.Time, error) {
	v, err := r.Get(ctx, lastSyncKey(identity, domain))
	if err != nil || v == nil {
		return time.Time{}, err
	}
	us, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last sync of %s: %w", domain, err)
	}
	return timex.FromMicros(us), nil
}

// RecordRun stores the outcome of a sync run. A successful run also moves
// the last-successful-sync timestamp.
func (r *SQLiteRepository) RecordRun(ctx context.Context, identity, domain string, at time.Time, runErr error) error {
	if runErr != nil {
		return r.Set(ctx, lastFailedKey(identity, domain), []byte(runErr.Error()))
	}
	if err := r.Set(ctx, lastSyncKey(identity, domain), []byte(strconv.FormatInt(timex.ToMicros(at), 10))); err != nil {
		return err
	}
	return r.Delete(ctx, lastFailedKey(identity, domain))
}

// LastRunFailed reports whether the latest run of domain for identity did
// not complete.
func (r *SQLiteRepository) LastRunFailed(ctx context.Context, identity, domain string) (bool, error) {
	v, err := r.Get(ctx, lastFailedKey(identity, domain))
	if err != nil {
		return false, err
	}
	return v != nil, nil
}
