package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/dbx"
	"github.com/dmitrijs2005/playkeeper/internal/logging"
	"github.com/dmitrijs2005/playkeeper/internal/server/models"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/repomanager"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

// RecordService stores batch domain records. A personal record is visible
// to its owner only, a group record to the group's members.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *RecordService {
	return &RecordService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "records"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *RecordService) authorize(ctx context.Context, tx dbx.DBTX, userID, scope, anchor string) error {
	switch scope {
	case models.ScopePersonal:
		if anchor != userID {
			return fmt.Errorf("%w: personal records belong to their owner", common.ErrInvalidArgument)
		}
		return nil
	case models.ScopeGroup:
		if anchor == "" {
			return fmt.Errorf("%w: group record without group", common.ErrInvalidArgument)
		}
		ok, err := s.repomanager.Social(tx).IsMember(ctx, anchor, userID)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrNotMember
		}
		return nil
	default:
		return fmt.Errorf("%w: scope %q", common.ErrInvalidArgument, scope)
	}
}

func validate(rec *models.Record) error {
	if !models.ValidDomain(rec.Domain) {
		return fmt.Errorf("%w: domain %q", common.ErrInvalidArgument, rec.Domain)
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: record id is required", common.ErrInvalidArgument)
	}
	if rec.ClientUpdatedAt.IsZero() {
		return fmt.Errorf("%w: record %s has no edit time", common.ErrInvalidArgument, rec.ID)
	}
	if (rec.Scope == models.ScopePersonal && rec.GroupID != "") || (rec.Scope == models.ScopeGroup && rec.OwnerID != "") {
		return fmt.Errorf("%w: record %s has both anchors", common.ErrInvalidArgument, rec.ID)
	}
	return nil
}

// Upsert writes rec unless the stored copy carries a newer edit, in which
// case it fails with common.ErrVersionConflict. A record never moves to a
// different partition.
func (s *RecordService) Upsert(ctx context.Context, userID string, rec *models.Record) (time.Time, error) {
	if err := validate(rec); err != nil {
		return time.Time{}, err
	}

	var stamped time.Time
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.authorize(ctx, tx, userID, rec.Scope, rec.Anchor()); err != nil {
			return err
		}

		repo := s.repomanager.Records(tx)
		if err := repo.LockPartition(ctx, rec.Domain, rec.Scope, rec.Anchor()); err != nil {
			return err
		}
		stored, err := repo.Get(ctx, rec.Domain, rec.ID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
		case err != nil:
			return err
		case stored.Scope != rec.Scope || stored.Anchor() != rec.Anchor():
			return fmt.Errorf("%w: record %s belongs to another partition", common.ErrInvalidArgument, rec.ID)
		}

		stamped, err = repo.Upsert(ctx, rec)
		return err
	})
	if err != nil {
		return time.Time{}, err
	}
	return stamped, nil
}

// Delete tombstones a record. Deleting a record the server never saw
// succeeds, so a client can retire records that were created and deleted
// offline.
func (s *RecordService) Delete(ctx context.Context, userID, domain, id string) (time.Time, error) {
	if !models.ValidDomain(domain) {
		return time.Time{}, fmt.Errorf("%w: domain %q", common.ErrInvalidArgument, domain)
	}

	var stamped time.Time
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)
		stored, err := repo.Get(ctx, domain, id)
		if errors.Is(err, common.ErrorNotFound) {
			stamped = s.now()
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, userID, stored.Scope, stored.Anchor()); err != nil {
			return err
		}
		if err := repo.LockPartition(ctx, domain, stored.Scope, stored.Anchor()); err != nil {
			return err
		}
		stamped, err = repo.SoftDelete(ctx, domain, id)
		return err
	})
	if err != nil {
		return time.Time{}, err
	}
	return stamped, nil
}

// ChangedSince returns one page of the partition's change feed.
func (s *RecordService) ChangedSince(ctx context.Context, userID string, feed records.Feed) ([]models.Record, error) {
	if !models.ValidDomain(feed.Domain) {
		return nil, fmt.Errorf("%w: domain %q", common.ErrInvalidArgument, feed.Domain)
	}
	if err := s.authorize(ctx, s.db, userID, feed.Scope, feed.AnchorID); err != nil {
		return nil, err
	}

	switch {
	case feed.Limit <= 0:
		feed.Limit = DefaultPageSize
	case feed.Limit > MaxPageSize:
		feed.Limit = MaxPageSize
	}
	return s.repomanager.Records(s.db).ChangedSince(ctx, feed)
}
