package metadata

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestSetGetDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	v, err := r.Get(ctx, "absent")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))
	v, err = r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)

	require.NoError(t, r.Delete(ctx, "k"))
	require.NoError(t, r.Delete(ctx, "k"))
	v, err = r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRecordRun_Signals(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	last, err := r.LastSuccessfulSync(ctx, "u1", "sessions")
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.RecordRun(ctx, "u1", "sessions", at, nil))

	last, err = r.LastSuccessfulSync(ctx, "u1", "sessions")
	require.NoError(t, err)
	assert.Equal(t, at, last)

	require.NoError(t, r.RecordRun(ctx, "u1", "sessions", at.Add(time.Hour), errors.New("offline")))
	failed, err := r.LastRunFailed(ctx, "u1", "sessions")
	require.NoError(t, err)
	assert.True(t, failed)

	last, err = r.LastSuccessfulSync(ctx, "u1", "sessions")
	require.NoError(t, err)
	assert.Equal(t, at, last, "a failed run keeps the previous timestamp")

	require.NoError(t, r.RecordRun(ctx, "u1", "sessions", at.Add(2*time.Hour), nil))
	failed, err = r.LastRunFailed(ctx, "u1", "sessions")
	require.NoError(t, err)
	assert.False(t, failed)

	other, err := r.LastSuccessfulSync(ctx, "u1", "library_items")
	require.NoError(t, err)
	assert.True(t, other.IsZero())
}

func TestLastSuccessfulSync_Corrupt(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, lastSyncKey("u1", "sessions"), []byte("yesterday")))
	_, err := r.LastSuccessfulSync(ctx, "u1", "sessions")
	require.Error(t, err)
}

func TestGet_DBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	require.NoError(t, db.Close())

	_, err := r.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get metadata[k]")

	err = r.Set(context.Background(), "k", []byte("v"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set metadata[k]")
}
