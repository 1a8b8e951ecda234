package syncer

import (
	"context"
	"iter"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
)

// LocalStore is the local record store of one domain. The reconciler writes
// only through ApplyRemote and MarkPushed, the same conditional paths the UI
// edits go through.
type LocalStore interface {
	Get(ctx context.Context, id string) (*models.Record, error)
	GetPending(ctx context.Context, ownerID string) ([]models.Record, error)
	Upsert(ctx context.Context, rec *models.Record) error
	HardDelete(ctx context.Context, id string) error
	MarkDeleted(ctx context.Context, id string) error
	StreamByOwner(ctx context.Context, ownerID string) iter.Seq2[models.Record, error]
	CountPending(ctx context.Context, ownerID string) (int, error)

	AdoptOrphans(ctx context.Context, ownerID string) (int, error)
	ApplyRemote(ctx context.Context, remote models.Record,
		decide func(local *models.Record, remote models.Record) models.PullAction) (models.PullAction, error)
	MarkPushed(ctx context.Context, pushed models.Record, serverUpdatedAt time.Time) error
}

// RemoteStore is the authoritative store. Errors are classified with the
// common sync taxonomy (transient, rejected, version conflict).
type RemoteStore interface {
	// Upsert writes the full record and returns the timestamp the server
	// stored. It fails with common.ErrVersionConflict when the server holds a
	// newer version than rec.UpdatedAt.
	Upsert(ctx context.Context, domain models.Domain, rec models.Record) (time.Time, error)
	SoftDelete(ctx context.Context, domain models.Domain, id string) (time.Time, error)
	// FetchChangedSince returns at most limit records of the partition
	// positioned after from, ascending by (UpdatedAt, ID).
	FetchChangedSince(ctx context.Context, domain models.Domain, partition models.Partition,
		from models.Keyset, limit int) ([]models.Record, error)
}

// GroupMembership lists the groups an identity currently belongs to.
type GroupMembership interface {
	GroupIDsFor(ctx context.Context, identity string) ([]string, error)
}

type CursorStore interface {
	Get(ctx context.Context, key models.CursorKey) (time.Time, error)
	Advance(ctx context.Context, key models.CursorKey, at time.Time) error
}

// RunRecorder keeps the signals the UI shows after a run.
type RunRecorder interface {
	RecordRun(ctx context.Context, identity, domain string, at time.Time, runErr error) error
}
