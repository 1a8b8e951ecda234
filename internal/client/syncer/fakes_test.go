package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/common"
)

type remoteRecord struct {
	rec             models.Record
	clientUpdatedAt time.Time
}

// fakeRemote mimics the server: a conditional upsert keyed on the client's
// edit timestamp and keyset-paged change feeds per partition.
type fakeRemote struct {
	mu      sync.Mutex
	now     time.Time
	records map[string]remoteRecord
	groups  map[string][]string

	failUpsert  map[string]error
	failFetchAt int
	groupsErr   error

	upserts int
	fetches int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		records:    map[string]remoteRecord{},
		groups:     map[string][]string{},
		failUpsert: map[string]error{},
	}
}

func (f *fakeRemote) stamp(client time.Time) time.Time {
	if client.After(f.now) {
		return client
	}
	return f.now
}

// put stores rec as if another device had pushed it.
func (f *fakeRemote) put(rec models.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.SyncStatus = ""
	f.records[rec.ID] = remoteRecord{rec: rec, clientUpdatedAt: rec.UpdatedAt}
}

func (f *fakeRemote) get(id string) (models.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	return r.rec, ok
}

func (f *fakeRemote) Upsert(_ context.Context, _ models.Domain, rec models.Record) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++

	if err := f.failUpsert[rec.ID]; err != nil {
		return time.Time{}, err
	}
	stored, ok := f.records[rec.ID]
	if ok && stored.clientUpdatedAt.After(rec.UpdatedAt) {
		return time.Time{}, fmt.Errorf("%w: %w", common.ErrRemoteRejected, common.ErrVersionConflict)
	}

	client := rec.UpdatedAt
	rec.UpdatedAt = f.stamp(client)
	rec.SyncStatus = ""
	rec.ConflictPayload = nil
	rec.ConflictUpdatedAt = time.Time{}
	f.records[rec.ID] = remoteRecord{rec: rec, clientUpdatedAt: client}
	return rec.UpdatedAt, nil
}

func (f *fakeRemote) SoftDelete(_ context.Context, _ models.Domain, id string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failUpsert[id]; err != nil {
		return time.Time{}, err
	}
	stored, ok := f.records[id]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %w", common.ErrRemoteRejected, common.ErrorNotFound)
	}
	at := f.stamp(stored.rec.UpdatedAt.Add(time.Microsecond))
	stored.rec.IsDeleted = true
	stored.rec.DeletedAt = &at
	stored.rec.UpdatedAt = at
	stored.clientUpdatedAt = at
	f.records[id] = stored
	return at, nil
}

func (f *fakeRemote) FetchChangedSince(_ context.Context, _ models.Domain, p models.Partition,
	from models.Keyset, limit int) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches++
	if f.failFetchAt > 0 && f.fetches == f.failFetchAt {
		return nil, fmt.Errorf("%w: connection reset", common.ErrTransientNetwork)
	}

	var out []models.Record
	for _, r := range f.records {
		rec := r.rec
		if rec.Scope != p.Scope || rec.Anchor() != p.ID {
			continue
		}
		after := rec.UpdatedAt.After(from.After) ||
			(rec.UpdatedAt.Equal(from.After) && from.AfterID != "" && rec.ID > from.AfterID)
		if after {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b models.Record) int {
		if c := a.UpdatedAt.Compare(b.UpdatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRemote) GroupIDsFor(_ context.Context, identity string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.groupsErr != nil {
		return nil, f.groupsErr
	}
	return f.groups[identity], nil
}

// flakyLocal injects local store failures.
type flakyLocal struct {
	LocalStore

	markPushedErr error
	applyFailAt   int
	applied       int
}

var errDiskFull = errors.New("disk full")

func (f *flakyLocal) MarkPushed(ctx context.Context, pushed models.Record, serverUpdatedAt time.Time) error {
	if err := f.markPushedErr; err != nil {
		f.markPushedErr = nil
		return err
	}
	return f.LocalStore.MarkPushed(ctx, pushed, serverUpdatedAt)
}

func (f *flakyLocal) ApplyRemote(ctx context.Context, remote models.Record,
	decide func(local *models.Record, remote models.Record) models.PullAction) (models.PullAction, error) {
	f.applied++
	if f.applyFailAt > 0 && f.applied == f.applyFailAt {
		return models.PullSkip, errDiskFull
	}
	return f.LocalStore.ApplyRemote(ctx, remote, decide)
}
