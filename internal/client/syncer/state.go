package syncer

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/common"
)

// OnLocalEdit returns the status of a record after the user edits it.
// Deleted records cannot be edited and conflicts must be resolved first.
func OnLocalEdit(s models.SyncStatus) (models.SyncStatus, error) {
	switch s {
	case models.StatusDeleted:
		return s, common.ErrRecordDeleted
	case models.StatusConflict:
		return s, common.ErrRecordInConflict
	default:
		return models.StatusPending, nil
	}
}

// OnLocalDelete returns the status of a record after the user deletes it.
func OnLocalDelete(s models.SyncStatus) (models.SyncStatus, error) {
	switch s {
	case models.StatusDeleted:
		return s, common.ErrRecordDeleted
	case models.StatusConflict:
		return s, common.ErrRecordInConflict
	default:
		return models.StatusDeleted, nil
	}
}

// OnPushSuccess returns the status after the server acknowledged a push.
// remove is true when the acknowledged push was a deletion.
func OnPushSuccess(s models.SyncStatus) (next models.SyncStatus, remove bool) {
	switch s {
	case models.StatusPending:
		return models.StatusClean, false
	case models.StatusDeleted:
		return "", true
	default:
		return s, false
	}
}

// DecidePull picks what a pull does with remote given the local copy (nil
// when the record is not cached). A local PENDING record is never
// overwritten: a newer remote flags it CONFLICT, an older one is skipped
// because the pending edit will win on the next push. A CONFLICT record only
// has its remote side refreshed.
func DecidePull(local *models.Record, remote models.Record) models.PullAction {
	if local == nil {
		if remote.IsDeleted {
			return models.PullSkip
		}
		return models.PullInsert
	}

	switch local.SyncStatus {
	case models.StatusPending:
		if remote.UpdatedAt.After(local.UpdatedAt) {
			return models.PullMarkConflict
		}
		return models.PullSkip
	case models.StatusConflict:
		if remote.UpdatedAt.After(local.ConflictUpdatedAt) {
			return models.PullMarkConflict
		}
		return models.PullSkip
	case models.StatusDeleted:
		if remote.IsDeleted {
			return models.PullHardDelete
		}
		return models.PullSkip
	default:
		if remote.IsDeleted {
			return models.PullHardDelete
		}
		return models.PullOverwrite
	}
}

// Resolution is the user's choice for a conflicted record.
type Resolution int

const (
	// KeepLocal re-issues the local payload as a fresh edit on top of the
	// remote version.
	KeepLocal Resolution = iota
	// KeepRemote adopts the remote payload.
	KeepRemote
)

// Resolve applies a resolution to a CONFLICT record in place. remove is true
// when keeping the remote side means the record was deleted remotely.
func Resolve(rec *models.Record, how Resolution, now time.Time) (remove bool, err error) {
	if rec.SyncStatus != models.StatusConflict {
		return false, fmt.Errorf("%w: record %s is %s", common.ErrInvalidArgument, rec.ID, rec.SyncStatus)
	}

	switch how {
	case KeepRemote:
		if rec.ConflictPayload == nil {
			return true, nil
		}
		rec.Payload = rec.ConflictPayload
		rec.UpdatedAt = rec.ConflictUpdatedAt
		rec.SyncStatus = models.StatusClean
	case KeepLocal:
		prev := rec.UpdatedAt
		if rec.ConflictUpdatedAt.After(prev) {
			prev = rec.ConflictUpdatedAt
		}
		rec.UpdatedAt = NextUpdatedAt(prev, now)
		rec.IsDeleted = false
		rec.DeletedAt = nil
		rec.SyncStatus = models.StatusPending
	default:
		return false, fmt.Errorf("%w: unknown resolution %d", common.ErrInvalidArgument, how)
	}
	rec.ConflictPayload = nil
	rec.ConflictUpdatedAt = time.Time{}
	return false, nil
}

// NextUpdatedAt returns the timestamp for a local write to a record last
// stamped prev. It never goes back, even when the local clock is behind the
// server that stamped prev.
func NextUpdatedAt(prev, now time.Time) time.Time {
	at := now.UTC().Truncate(time.Microsecond)
	if !at.After(prev) {
		at = prev.Add(time.Microsecond)
	}
	return at
}
