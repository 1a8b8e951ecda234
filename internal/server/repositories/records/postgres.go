// Package records stores the batch domain records on the server.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/dbx"
	"github.com/dmitrijs2005/playkeeper/internal/server/models"
)

const columns = `domain, id, COALESCE(owner_id::text, ''), scope, COALESCE(group_id::text, ''), payload,
	created_at, updated_at, client_updated_at, is_deleted, deleted_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	rec := &models.Record{}
	var deletedAt sql.NullTime
	err := s.Scan(&rec.Domain, &rec.ID, &rec.OwnerID, &rec.Scope, &rec.GroupID, &rec.Payload,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.ClientUpdatedAt, &rec.IsDeleted, &deletedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		rec.DeletedAt = &t
	}
	return rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *PostgresRepository) Get(ctx context.Context, domain, id string) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM records WHERE domain = $1 AND id = $2`, domain, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// partitionKey names the advisory lock of one change feed partition.
func partitionKey(domain, scope, anchorID string) string {
	return domain + "/" + scope + "/" + anchorID
}

// LockPartition takes a transaction scoped advisory lock. Called outside a
// transaction the lock is released at once.
func (r *PostgresRepository) LockPartition(ctx context.Context, domain, scope, anchorID string) error {
	_, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, partitionKey(domain, scope, anchorID))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Upsert writes rec when no stored copy exists or the stored copy's
// client_updated_at is not newer. The stored updated_at never goes back and
// is taken from the wall clock at write time, so under LockPartition it
// follows commit order.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.Record) (time.Time, error) {
	query :=
		`INSERT INTO records (domain, id, owner_id, scope, group_id, payload,
		                      created_at, updated_at, client_updated_at, is_deleted, deleted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, GREATEST(clock_timestamp(), $8), $8, false, NULL)
		 ON CONFLICT (domain, id) DO UPDATE SET
		   payload = EXCLUDED.payload,
		   updated_at = GREATEST(EXCLUDED.updated_at, records.updated_at),
		   client_updated_at = EXCLUDED.client_updated_at,
		   is_deleted = false,
		   deleted_at = NULL
		 WHERE records.client_updated_at <= EXCLUDED.client_updated_at
		 RETURNING updated_at`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = rec.ClientUpdatedAt
	}

	var stamped time.Time
	err := r.db.QueryRowContext(ctx, query,
		rec.Domain, rec.ID, nullable(rec.OwnerID), rec.Scope, nullable(rec.GroupID), rec.Payload,
		createdAt, rec.ClientUpdatedAt,
	).Scan(&stamped)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, fmt.Errorf("%w: record %s", common.ErrVersionConflict, rec.ID)
		}
		return time.Time{}, fmt.Errorf("db error: %w", err)
	}
	return stamped, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, domain, id string) (time.Time, error) {
	query :=
		`UPDATE records
		 SET is_deleted = true,
		     deleted_at = COALESCE(deleted_at, clock_timestamp()),
		     updated_at = GREATEST(clock_timestamp(), updated_at)
		 WHERE domain = $1 AND id = $2
		 RETURNING updated_at`

	var stamped time.Time
	err := r.db.QueryRowContext(ctx, query, domain, id).Scan(&stamped)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, common.ErrorNotFound
		}
		return time.Time{}, fmt.Errorf("db error: %w", err)
	}
	return stamped, nil
}

// ChangedSince returns up to feed.Limit records of the partition ordered by
// (updated_at, id) and positioned strictly after the keyset. Tombstones are
// included.
func (r *PostgresRepository) ChangedSince(ctx context.Context, feed Feed) ([]models.Record, error) {
	anchor := "owner_id"
	if feed.Scope == models.ScopeGroup {
		anchor = "group_id"
	}

	query := `SELECT ` + columns + ` FROM records
		 WHERE domain = $1 AND scope = $2 AND ` + anchor + ` = $3
		   AND (updated_at > $4 OR ($5 <> '' AND updated_at = $4 AND id > $5))
		 ORDER BY updated_at, id
		 LIMIT $6`

	rows, err := r.db.QueryContext(ctx, query, feed.Domain, feed.Scope, feed.AnchorID, feed.After, feed.AfterID, feed.Limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
