package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/server/models"
)

// Feed selects one partition of a domain's change feed and the keyset
// position to continue after.
type Feed struct {
	Domain   string
	Scope    string
	AnchorID string
	After    time.Time
	AfterID  string
	Limit    int
}

type Repository interface {
	Get(ctx context.Context, domain, id string) (*models.Record, error)
	// LockPartition serialises writers of one partition until the enclosing
	// transaction ends, so rows become visible in the order of their
	// updated_at.
	LockPartition(ctx context.Context, domain, scope, anchorID string) error
	// Upsert stores rec unless the stored copy carries a newer
	// ClientUpdatedAt, in which case it fails with common.ErrVersionConflict.
	// It returns the server timestamp the row was stamped with.
	Upsert(ctx context.Context, rec *models.Record) (time.Time, error)
	// SoftDelete tombstones a record and returns its new timestamp, or
	// common.ErrorNotFound when it does not exist.
	SoftDelete(ctx context.Context, domain, id string) (time.Time, error)
	ChangedSince(ctx context.Context, feed Feed) ([]models.Record, error)
}
