package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/playkeeper/internal/client/repositories/records"
	"github.com/dmitrijs2005/playkeeper/internal/client/syncer"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/google/uuid"
)

// RecordService edits the records of one batch domain on behalf of the UI.
// Every write goes to the local store only and leaves the record PENDING
// (or DELETED) for the next sync.
type RecordService[T models.Payload] struct {
	repo  *records.SQLiteRepository
	typed records.Typed[T]
	meta  *metadata.SQLiteRepository
	now   func() time.Time
}

func NewRecordService[T models.Payload](repo *records.SQLiteRepository, meta *metadata.SQLiteRepository) *RecordService[T] {
	return &RecordService[T]{
		repo:  repo,
		typed: records.NewTyped[T](repo),
		meta:  meta,
		now:   time.Now,
	}
}

func (s *RecordService[T]) identity(ctx context.Context) (string, error) {
	v, err := s.meta.Get(ctx, metadata.KeyIdentity)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// Create stores a new record. With an empty groupID the record is personal
// and owned by the signed-in identity, or unowned until the next login when
// nobody is signed in. Group records need a signed-in identity.
func (s *RecordService[T]) Create(ctx context.Context, v T, groupID string) (*models.Record, error) {
	identity, err := s.identity(ctx)
	if err != nil {
		return nil, err
	}
	if groupID != "" && identity == "" {
		return nil, fmt.Errorf("%w: group records need a signed-in identity", common.ErrorUnauthorized)
	}

	payload, err := models.EncodePayload(v)
	if err != nil {
		return nil, err
	}

	at := syncer.NextUpdatedAt(time.Time{}, s.now())
	rec := &models.Record{
		ID:         uuid.NewString(),
		Scope:      models.ScopePersonal,
		Payload:    payload,
		CreatedAt:  at,
		UpdatedAt:  at,
		SyncStatus: models.StatusPending,
	}
	if groupID != "" {
		rec.Scope = models.ScopeGroup
		rec.GroupID = groupID
	} else {
		rec.OwnerID = identity
	}

	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Edit replaces the payload of a record. Deleted and conflicted records are
// refused with common.ErrRecordDeleted and common.ErrRecordInConflict.
func (s *RecordService[T]) Edit(ctx context.Context, id string, v T) (*models.Record, error) {
	payload, err := models.EncodePayload(v)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, func(rec *models.Record) error {
		next, err := syncer.OnLocalEdit(rec.SyncStatus)
		if err != nil {
			return err
		}
		rec.Payload = payload
		rec.UpdatedAt = syncer.NextUpdatedAt(rec.UpdatedAt, s.now())
		rec.SyncStatus = next
		return nil
	})
}

// Delete tombstones a record for the next push.
func (s *RecordService[T]) Delete(ctx context.Context, id string) error {
	return s.repo.MarkDeleted(ctx, id)
}

// Resolve settles a CONFLICT record. Keeping the remote side of a record
// that was deleted remotely removes it locally.
func (s *RecordService[T]) Resolve(ctx context.Context, id string, how syncer.Resolution) error {
	return s.repo.Atomically(ctx, func(ctx context.Context) error {
		rec, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		remove, err := syncer.Resolve(rec, how, s.now())
		if err != nil {
			return err
		}
		if remove {
			return s.repo.HardDelete(ctx, id)
		}
		return s.repo.Upsert(ctx, rec)
	})
}

func (s *RecordService[T]) Get(ctx context.Context, id string) (*records.Item[T], error) {
	return s.typed.Get(ctx, id)
}

// List returns the personal records of the signed-in identity, or the
// unowned ones when nobody is signed in.
func (s *RecordService[T]) List(ctx context.Context) ([]records.Item[T], error) {
	identity, err := s.identity(ctx)
	if err != nil {
		return nil, err
	}
	return s.typed.ListByOwner(ctx, identity)
}

// ListGroup returns the records of a group the signed-in identity belongs
// to, as mirrored by the last sync.
func (s *RecordService[T]) ListGroup(ctx context.Context, groupID string) ([]records.Item[T], error) {
	if groupID == "" {
		return nil, fmt.Errorf("%w: group id is required", common.ErrInvalidArgument)
	}
	identity, err := s.identity(ctx)
	if err != nil {
		return nil, err
	}
	if identity == "" {
		return nil, fmt.Errorf("%w: group records need a signed-in identity", common.ErrorUnauthorized)
	}
	return s.typed.ListByGroup(ctx, groupID)
}
