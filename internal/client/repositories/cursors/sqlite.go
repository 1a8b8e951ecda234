// Package cursors persists the pull cursor of every (identity, domain,
// partition): the timestamp of the newest remote change applied locally.
package cursors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/dbx"
	"github.com/dmitrijs2005/playkeeper/internal/timex"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the stored cursor, or the zero time when none was stored yet.
func (r *SQLiteRepository) Get(ctx context.Context, key models.CursorKey) (time.Time, error) {
	var us int64
	err := dbx.From(ctx, r.db).QueryRowContext(ctx,
		`SELECT cursor FROM sync_cursors WHERE identity = ? AND domain = ? AND partition = ?`,
		key.Identity, string(key.Domain), key.Partition).Scan(&us)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get cursor %s/%s/%s: %w", key.Identity, key.Domain, key.Partition, err)
	}
	return timex.FromMicros(us), nil
}

// Advance moves the cursor forward to at. It never moves a cursor back: a
// value not greater than the stored one is ignored.
func (r *SQLiteRepository) Advance(ctx context.Context, key models.CursorKey, at time.Time) error {
	if at.IsZero() {
		return nil
	}
	_, err := dbx.From(ctx, r.db).ExecContext(ctx, `
		INSERT INTO sync_cursors (identity, domain, partition, cursor) VALUES (?, ?, ?, ?)
		ON CONFLICT(identity, domain, partition) DO UPDATE SET cursor = excluded.cursor
		WHERE excluded.cursor > sync_cursors.cursor
	`, key.Identity, string(key.Domain), key.Partition, timex.ToMicros(at))
	if err != nil {
		return fmt.Errorf("failed to advance cursor %s/%s/%s: %w", key.Identity, key.Domain, key.Partition, err)
	}
	return nil
}

// Reset drops every cursor of identity, forcing the next sync to pull from
// the beginning.
func (r *SQLiteRepository) Reset(ctx context.Context, identity string) error {
	_, err := dbx.From(ctx, r.db).ExecContext(ctx, `DELETE FROM sync_cursors WHERE identity = ?`, identity)
	if err != nil {
		return fmt.Errorf("failed to reset cursors of %s: %w", identity, err)
	}
	return nil
}
