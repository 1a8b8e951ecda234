package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/dbx"
	"github.com/dmitrijs2005/playkeeper/internal/timex"
)

const columns = `id, owner_id, scope, group_id, payload, created_at, updated_at,
	is_deleted, deleted_at, sync_status, conflict_payload, conflict_updated_at`

// SQLiteRepository stores the records of one batch domain. The table name is
// the domain name.
type SQLiteRepository struct {
	db     *sql.DB
	domain models.Domain
	now    func() time.Time
}

// NewSQLiteRepository returns a repository over the domain's table. It panics
// on an unknown domain, since the table name is interpolated into queries.
func NewSQLiteRepository(db *sql.DB, domain models.Domain) *SQLiteRepository {
	if !domain.Valid() {
		panic(fmt.Sprintf("records: unknown domain %q", domain))
	}
	return &SQLiteRepository{db: db, domain: domain, now: time.Now}
}

func (r *SQLiteRepository) Domain() models.Domain { return r.domain }

func (r *SQLiteRepository) conn(ctx context.Context) dbx.DBTX {
	return dbx.From(ctx, r.db)
}

// Atomically runs fn in one transaction. Repository calls made with the ctx
// handed to fn join it.
func (r *SQLiteRepository) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, _ dbx.DBTX) error {
		return fn(ctx)
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		rec              models.Record
		ownerID, groupID sql.NullString
		createdAt        sql.NullInt64
		updatedAt        sql.NullInt64
		deletedAt        sql.NullInt64
		confAt           sql.NullInt64
		isDeleted        int
		scope, status    string
		conflictPayload  []byte
	)
	err := s.Scan(&rec.ID, &ownerID, &scope, &groupID, &rec.Payload, &createdAt, &updatedAt,
		&isDeleted, &deletedAt, &status, &conflictPayload, &confAt)
	if err != nil {
		return nil, err
	}
	rec.OwnerID = ownerID.String
	rec.GroupID = groupID.String
	rec.Scope = models.Scope(scope)
	rec.SyncStatus = models.SyncStatus(status)
	rec.CreatedAt = timex.FromMicros(createdAt.Int64)
	rec.UpdatedAt = timex.FromMicros(updatedAt.Int64)
	rec.IsDeleted = isDeleted != 0
	if deletedAt.Valid {
		t := timex.FromMicros(deletedAt.Int64)
		rec.DeletedAt = &t
	}
	rec.ConflictPayload = conflictPayload
	rec.ConflictUpdatedAt = timex.FromMicros(confAt.Int64)
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullMicros(t time.Time) sql.NullInt64 {
	return sql.NullInt64{Int64: timex.ToMicros(t), Valid: !t.IsZero()}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Get returns the record with the given id, or common.ErrorNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	query := `SELECT ` + columns + ` FROM ` + string(r.domain) + ` WHERE id = ?`
	rec, err := scanRecord(r.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s record %s: %w", r.domain, id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) list(ctx context.Context, what, query string, args ...any) ([]models.Record, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s %s: %w", what, r.domain, err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.domain, err)
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", r.domain, err)
	}
	return result, nil
}

// GetPending returns records waiting to be pushed: the owner's personal
// PENDING/DELETED rows and every pending group row. The local database
// belongs to a single user, so group rows need no owner filter.
func (r *SQLiteRepository) GetPending(ctx context.Context, ownerID string) ([]models.Record, error) {
	query := `SELECT ` + columns + ` FROM ` + string(r.domain) + `
		WHERE sync_status IN ('PENDING', 'DELETED')
		  AND ((scope = 'PERSONAL' AND owner_id = ?) OR scope = 'GROUP')
		ORDER BY updated_at, id`
	return r.list(ctx, "pending", query, ownerID)
}

// ListByGroup returns the visible records of one group.
func (r *SQLiteRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Record, error) {
	query := `SELECT ` + columns + ` FROM ` + string(r.domain) + `
		WHERE scope = 'GROUP' AND group_id = ? AND sync_status <> 'DELETED'
		ORDER BY created_at, id`
	return r.list(ctx, "group", query, groupID)
}

// StreamByOwner yields the owner's visible personal records ordered by
// creation time. An empty ownerID selects records created before login.
func (r *SQLiteRepository) StreamByOwner(ctx context.Context, ownerID string) iter.Seq2[models.Record, error] {
	return func(yield func(models.Record, error) bool) {
		query := `SELECT ` + columns + ` FROM ` + string(r.domain) + `
			WHERE scope = 'PERSONAL' AND owner_id IS ? AND sync_status <> 'DELETED'
			ORDER BY created_at, id`
		rows, err := r.conn(ctx).QueryContext(ctx, query, nullString(ownerID))
		if err != nil {
			yield(models.Record{}, fmt.Errorf("failed to stream %s: %w", r.domain, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				yield(models.Record{}, fmt.Errorf("failed to scan %s row: %w", r.domain, err))
				return
			}
			if !yield(*rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.Record{}, fmt.Errorf("failed to iterate %s rows: %w", r.domain, err))
		}
	}
}

// CountPending counts the records the next sync will push for ownerID,
// including rows created before login that adoption will hand to it.
func (r *SQLiteRepository) CountPending(ctx context.Context, ownerID string) (int, error) {
	query := `SELECT COUNT(*) FROM ` + string(r.domain) + `
		WHERE sync_status IN ('PENDING', 'DELETED')
		  AND ((scope = 'PERSONAL' AND (owner_id = ? OR owner_id IS NULL)) OR scope = 'GROUP')`
	var n int
	if err := r.conn(ctx).QueryRowContext(ctx, query, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending %s: %w", r.domain, err)
	}
	return n, nil
}

// Upsert writes every column of rec, inserting or replacing by id.
func (r *SQLiteRepository) Upsert(ctx context.Context, rec *models.Record) error {
	query := `INSERT INTO ` + string(r.domain) + ` (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			scope = excluded.scope,
			group_id = excluded.group_id,
			payload = excluded.payload,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			is_deleted = excluded.is_deleted,
			deleted_at = excluded.deleted_at,
			sync_status = excluded.sync_status,
			conflict_payload = excluded.conflict_payload,
			conflict_updated_at = excluded.conflict_updated_at`

	var deletedAt sql.NullInt64
	if rec.DeletedAt != nil {
		deletedAt = nullMicros(*rec.DeletedAt)
	}
	scope := rec.Scope
	if scope == "" {
		scope = models.ScopePersonal
	}
	payload := rec.Payload
	if payload == nil {
		payload = []byte{}
	}
	_, err := r.conn(ctx).ExecContext(ctx, query,
		rec.ID, nullString(rec.OwnerID), string(scope), nullString(rec.GroupID), payload,
		nullMicros(rec.CreatedAt), nullMicros(rec.UpdatedAt), boolInt(rec.IsDeleted), deletedAt,
		string(rec.SyncStatus), rec.ConflictPayload, nullMicros(rec.ConflictUpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert %s record %s: %w", r.domain, rec.ID, err)
	}
	return nil
}

// Update loads the record, lets fn mutate it and writes it back, all in one
// transaction. fn sees the status as currently stored, so a concurrent pull
// cannot slip between the check and the write.
func (r *SQLiteRepository) Update(ctx context.Context, id string, fn func(rec *models.Record) error) (*models.Record, error) {
	var out *models.Record
	err := r.Atomically(ctx, func(ctx context.Context) error {
		rec, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		if err := r.Upsert(ctx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HardDelete removes the row. Deleting an absent row is not an error.
func (r *SQLiteRepository) HardDelete(ctx context.Context, id string) error {
	_, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM `+string(r.domain)+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s record %s: %w", r.domain, id, err)
	}
	return nil
}

// MarkDeleted tombstones a CLEAN or PENDING record for the next push.
func (r *SQLiteRepository) MarkDeleted(ctx context.Context, id string) error {
	now := timex.ToMicros(r.now())
	query := `UPDATE ` + string(r.domain) + `
		SET is_deleted = 1, deleted_at = ?, updated_at = ?, sync_status = 'DELETED'
		WHERE id = ? AND sync_status IN ('CLEAN', 'PENDING')`
	res, err := r.conn(ctx).ExecContext(ctx, query, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark %s record %s deleted: %w", r.domain, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		rec, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		switch rec.SyncStatus {
		case models.StatusConflict:
			return common.ErrRecordInConflict
		case models.StatusDeleted:
			return common.ErrRecordDeleted
		}
	}
	return nil
}

// AdoptOrphans hands every personal record created before login to ownerID.
func (r *SQLiteRepository) AdoptOrphans(ctx context.Context, ownerID string) (int, error) {
	query := `UPDATE ` + string(r.domain) + `
		SET owner_id = ?,
		    sync_status = CASE sync_status WHEN 'CLEAN' THEN 'PENDING' ELSE sync_status END
		WHERE owner_id IS NULL AND scope = 'PERSONAL'`
	res, err := r.conn(ctx).ExecContext(ctx, query, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to adopt %s orphans: %w", r.domain, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// MarkPushed records a push acknowledged by the server. A DELETED record is
// removed. A PENDING record becomes CLEAN with the server timestamp, unless
// it was edited again after pushed was read.
func (r *SQLiteRepository) MarkPushed(ctx context.Context, pushed models.Record, serverUpdatedAt time.Time) error {
	if pushed.SyncStatus == models.StatusDeleted {
		query := `DELETE FROM ` + string(r.domain) + ` WHERE id = ? AND sync_status = 'DELETED'`
		if _, err := r.conn(ctx).ExecContext(ctx, query, pushed.ID); err != nil {
			return fmt.Errorf("failed to remove pushed %s record %s: %w", r.domain, pushed.ID, err)
		}
		return nil
	}

	query := `UPDATE ` + string(r.domain) + `
		SET sync_status = 'CLEAN', updated_at = ?
		WHERE id = ? AND sync_status = 'PENDING' AND updated_at IS ?`
	_, err := r.conn(ctx).ExecContext(ctx, query,
		timex.ToMicros(serverUpdatedAt), pushed.ID, nullMicros(pushed.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to mark %s record %s pushed: %w", r.domain, pushed.ID, err)
	}
	return nil
}

// ApplyRemote applies one pulled record. decide is called inside the
// transaction with the local copy as stored right now (nil when absent), and
// the action it returns is carried out before the transaction commits.
func (r *SQLiteRepository) ApplyRemote(ctx context.Context, remote models.Record,
	decide func(local *models.Record, remote models.Record) models.PullAction) (models.PullAction, error) {

	var action models.PullAction
	err := r.Atomically(ctx, func(ctx context.Context) error {
		local, err := r.Get(ctx, remote.ID)
		if errors.Is(err, common.ErrorNotFound) {
			local = nil
		} else if err != nil {
			return err
		}

		action = decide(local, remote)
		switch action {
		case models.PullInsert, models.PullOverwrite:
			rec := remote
			rec.SyncStatus = models.StatusClean
			rec.ConflictPayload = nil
			rec.ConflictUpdatedAt = time.Time{}
			return r.Upsert(ctx, &rec)
		case models.PullMarkConflict:
			rec := *local
			rec.SyncStatus = models.StatusConflict
			if remote.IsDeleted {
				rec.ConflictPayload = nil
			} else {
				rec.ConflictPayload = remote.Payload
			}
			rec.ConflictUpdatedAt = remote.UpdatedAt
			return r.Upsert(ctx, &rec)
		case models.PullHardDelete:
			return r.HardDelete(ctx, remote.ID)
		default:
			return nil
		}
	})
	if err != nil {
		return models.PullSkip, err
	}
	return action, nil
}
