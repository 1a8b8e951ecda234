package records

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/pressly/goose/v3"
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

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, "."))
	return db
}

func ts(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func seed(t *testing.T, r *SQLiteRepository, recs ...models.Record) {
	t.Helper()
	for i := range recs {
		if recs[i].Payload == nil {
			recs[i].Payload = []byte("p-" + recs[i].ID)
		}
		require.NoError(t, r.Upsert(context.Background(), &recs[i]))
	}
}

func TestNewSQLiteRepository_UnknownDomainPanics(t *testing.T) {
	assert.Panics(t, func() { NewSQLiteRepository(nil, models.Domain("entries; DROP TABLE x")) })
}

func TestUpsertAndGet_RoundTrip(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, models.DomainSessions)
	ctx := context.Background()

	del := ts(50)
	in := models.Record{
		ID: "s1", OwnerID: "u1", Scope: models.ScopePersonal, Payload: []byte{1, 2},
		CreatedAt: ts(10), UpdatedAt: ts(20), IsDeleted: true, DeletedAt: &del,
		SyncStatus: models.StatusDeleted,
	}
	require.NoError(t, r.Upsert(ctx, &in))

	got, err := r.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, in, *got)

	_, err = r.Get(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpsert_ScopeCheckEnforced(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, models.DomainLibraryItems)
	ctx := context.Background()

	bad := models.Record{ID: "x", OwnerID: "u1", Scope: models.ScopeGroup, GroupID: "g1",
		Payload: []byte{1}, SyncStatus: models.StatusPending}
	require.Error(t, r.Upsert(ctx, &bad))

	noGroup := models.Record{ID: "y", Scope: models.ScopeGroup, Payload: []byte{1}, SyncStatus: models.StatusPending}
	require.Error(t, r.Upsert(ctx, &noGroup))
}

func TestGetPending_OwnerAndGroupRows(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, models.DomainSessions)
	ctx := context.Background()

	seed(t, r,
		models.Record{ID: "p1", OwnerID: "u1", Scope: models.ScopePersonal, UpdatedAt: ts(2), SyncStatus: models.StatusPending},
		models.Record{ID: "d1", OwnerID: "u1", Scope: models.ScopePersonal, UpdatedAt: ts(1), SyncStatus: models.StatusDeleted},
		models.Record{ID: "c1", OwnerID: "u1", Scope: models.ScopePersonal, UpdatedAt: ts(3), SyncStatus: models.StatusClean},
		models.Record{ID: "x1", OwnerID: "u1", Scope: models.ScopePersonal, UpdatedAt: ts(3), SyncStatus: models.StatusConflict},
		models.Record{ID: "o1", OwnerID: "u2", Scope: models.ScopePersonal, UpdatedAt: ts(3), SyncStatus: models.StatusPending},
		models.Record{ID: "n1", Scope: models.ScopePersonal, UpdatedAt: ts(3), SyncStatus: models.StatusPending},
		models.Record{ID: "g1", Scope: models.ScopeGroup, GroupID: "grp", UpdatedAt: ts(4), SyncStatus: models.StatusPending},
	)

	got, err := r.GetPending(ctx, "u1")
	require.NoError(t, err)

	var ids []string
	for _, rec := range got {
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"d1", "p1", "g1"}, ids)

	n, err := r.CountPending(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, n, "orphan n1 counts, it will be adopted")
}

func TestStreamByOwner_StopsEarlyAndSkipsDeleted(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, models.DomainSessions)
	ctx := context.Background()

	seed(t, r,
		models.Record{ID: "a", OwnerID: "u1", CreatedAt: ts(1), SyncStatus: models.StatusClean},
		models.Record{ID: "b", OwnerID: "u1", CreatedAt: ts(2), SyncStatus: models.StatusPending},
		models.Record{ID: "c", OwnerID: "u1", CreatedAt: ts(3), SyncStatus: models.StatusDeleted},
		models.Record{ID: "d", CreatedAt: ts(4), SyncStatus: models.StatusPending},
	)

	var ids []string
	for rec, err := range r.StreamByOwner(ctx, "u1") {
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)

	ids = nil
	for rec, err := range r.StreamByOwner(ctx, "") {
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"d"}, ids)

	count := 0
	for range r.StreamByOwner(ctx, "u1") {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestAdoptOrphans(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, models.DomainSessions)
	ctx := context.Background()

	seed(t, r,
		models.Record{ID: "o1", SyncStatus: models.StatusPending},
		models.Record{ID: "o2", SyncStatus: models.StatusClean},
		models.Record{ID: "mine", OwnerID: "u9", SyncStatus: models.StatusClean},
	)

	n, err := r.AdoptOrphans(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	o2, err := r.Get(ctx, "o2")
	require.NoError(t, err)
	assert.Equal(t, "u1", o2.OwnerID)
	assert.Equal(t, models.StatusPending, o2.SyncStatus)

	mine, err := r.Get(ctx, "mine")
	require.NoError(t, err)
	assert.Equal(t, "u9", mine.OwnerID)

	n, err = r.AdoptOrphans(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarkDeleted(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, models.DomainLibraryItems)
	r.now = func() time.Time { return ts(77) }
	ctx := context.Background()

	seed(t, r,
		models.Record{ID: "c", OwnerID: "u1", SyncStatus: models.StatusClean},
		models.Record{ID: "x", OwnerID: "u1", SyncStatus: models.StatusConflict},
		models.Record{ID: "d", OwnerID: "u1", SyncStatus: models.StatusDeleted},
	)

	require.NoError(t, r.MarkDeleted(ctx, "c"))
	c, err := r.Get(ctx, "c")
	require.NoError(t, err)
	assert.True(t, c.IsDeleted)
	assert.Equal(t, models.StatusDeleted, c.SyncStatus)
	assert.Equal(t, ts(77), c.UpdatedAt)
	require.NotNil(t, c.DeletedAt)

	assert.ErrorIs(t, r.MarkDeleted(ctx, "x"), common.ErrRecordInConflict)
	assert.ErrorIs(t, r.MarkDeleted(ctx, "d"), common.ErrRecordDeleted)
	assert.ErrorIs(t, r.MarkDeleted(ctx, "missing"), common.ErrorNotFound)
}

func TestMarkPushed(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, models.DomainSessions)
	ctx := context.Background()

	seed(t, r,
		models.Record{ID: "p", OwnerID: "u1", UpdatedAt: ts(10), SyncStatus: models.StatusPending},
		models.Record{ID: "d", OwnerID: "u1", UpdatedAt: ts(10), SyncStatus: models.StatusDeleted, IsDeleted: true},
		models.Record{ID: "edited", OwnerID: "u1", UpdatedAt: ts(15), SyncStatus: models.StatusPending},
	)

	require.NoError(t, r.MarkPushed(ctx, models.Record{ID: "p", UpdatedAt: ts(10), SyncStatus: models.StatusPending}, ts(11)))
	p, err := r.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, models.StatusClean, p.SyncStatus)
	assert.Equal(t, ts(11), p.UpdatedAt)

	require.NoError(t, r.MarkPushed(ctx, models.Record{ID: "d", SyncStatus: models.StatusDeleted}, ts(11)))
	_, err = r.Get(ctx, "d")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// pushed copy was read at t=10; the user edited again at t=15
	require.NoError(t, r.MarkPushed(ctx, models.Record{ID: "edited", UpdatedAt: ts(10), SyncStatus: models.StatusPending}, ts(11)))
	e, err := r.Get(ctx, "edited")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, e.SyncStatus)
	assert.Equal(t, ts(15), e.UpdatedAt)
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, models.DomainSessions)
	ctx := context.Background()

	seed(t, r, models.Record{ID: "a", OwnerID: "u1", Payload: []byte("v1"), SyncStatus: models.StatusClean})

	boom := errors.New("boom")
	_, err := r.Update(ctx, "a", func(rec *models.Record) error {
		rec.Payload = []byte("v2")
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got.Payload)

	out, err := r.Update(ctx, "a", func(rec *models.Record) error {
		rec.Payload = []byte("v3")
		rec.SyncStatus = models.StatusPending
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("v3"), out.Payload)

	_, err = r.Update(ctx, "missing", func(*models.Record) error { return nil })
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestApplyRemote_Actions(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, models.DomainSessions)
	ctx := context.Background()

	seed(t, r,
		models.Record{ID: "ow", OwnerID: "u1", Payload: []byte("old"), UpdatedAt: ts(1), SyncStatus: models.StatusClean},
		models.Record{ID: "cf", OwnerID: "u1", Payload: []byte("mine"), UpdatedAt: ts(1), SyncStatus: models.StatusPending},
		models.Record{ID: "hd", OwnerID: "u1", UpdatedAt: ts(1), SyncStatus: models.StatusClean},
	)

	fixed := func(a models.PullAction) func(*models.Record, models.Record) models.PullAction {
		return func(*models.Record, models.Record) models.PullAction { return a }
	}

	remote := models.Record{ID: "new", OwnerID: "u1", Scope: models.ScopePersonal, Payload: []byte("r"), UpdatedAt: ts(5)}
	var seenLocal *models.Record
	act, err := r.ApplyRemote(ctx, remote, func(local *models.Record, _ models.Record) models.PullAction {
		seenLocal = local
		return models.PullInsert
	})
	require.NoError(t, err)
	assert.Equal(t, models.PullInsert, act)
	assert.Nil(t, seenLocal)
	got, err := r.Get(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, models.StatusClean, got.SyncStatus)

	_, err = r.ApplyRemote(ctx, models.Record{ID: "ow", OwnerID: "u1", Scope: models.ScopePersonal, Payload: []byte("new"), UpdatedAt: ts(5)}, fixed(models.PullOverwrite))
	require.NoError(t, err)
	got, err = r.Get(ctx, "ow")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got.Payload)
	assert.Equal(t, ts(5), got.UpdatedAt)

	_, err = r.ApplyRemote(ctx, models.Record{ID: "cf", OwnerID: "u1", Scope: models.ScopePersonal, Payload: []byte("theirs"), UpdatedAt: ts(5)}, fixed(models.PullMarkConflict))
	require.NoError(t, err)
	got, err = r.Get(ctx, "cf")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, got.SyncStatus)
	assert.Equal(t, []byte("mine"), got.Payload)
	assert.Equal(t, []byte("theirs"), got.ConflictPayload)
	assert.Equal(t, ts(5), got.ConflictUpdatedAt)
	assert.Equal(t, ts(1), got.UpdatedAt)

	_, err = r.ApplyRemote(ctx, models.Record{ID: "hd", IsDeleted: true}, fixed(models.PullHardDelete))
	require.NoError(t, err)
	_, err = r.Get(ctx, "hd")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	act, err = r.ApplyRemote(ctx, models.Record{ID: "cf", Payload: []byte("again")}, fixed(models.PullSkip))
	require.NoError(t, err)
	assert.Equal(t, models.PullSkip, act)
}

func TestApplyRemote_JoinsOuterTransaction(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, models.DomainSessions)
	ctx := context.Background()

	boom := errors.New("boom")
	err := r.Atomically(ctx, func(ctx context.Context) error {
		_, err := r.ApplyRemote(ctx, models.Record{ID: "n", OwnerID: "u1", Scope: models.ScopePersonal, Payload: []byte("x")},
			func(*models.Record, models.Record) models.PullAction { return models.PullInsert })
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = r.Get(ctx, "n")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTyped(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db, models.DomainLibraryItems)
	ctx := context.Background()

	p, err := models.EncodePayload(models.LibraryItem{Title: "Azul", Owned: true, Plays: 3})
	require.NoError(t, err)
	seed(t, repo, models.Record{ID: "li", OwnerID: "u1", Payload: p, SyncStatus: models.StatusClean})

	typed := NewTyped[models.LibraryItem](repo)
	item, err := typed.Get(ctx, "li")
	require.NoError(t, err)
	assert.Equal(t, "Azul", item.Value.Title)
	assert.Equal(t, "li", item.ID)

	items, err := typed.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Value.Plays)
}

func TestGet_DBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, models.DomainSessions)
	require.NoError(t, db.Close())

	_, err := r.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get sessions record k")
}
