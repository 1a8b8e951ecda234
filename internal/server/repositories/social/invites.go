package social

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/server/models"
)

const inviteColumns = `i.id, i.group_id::text, g.name, i.from_id::text, i.to_id::text, i.status,
	i.created_at, i.responded_at`

const inviteFrom = `FROM group_invites i JOIN groups g ON g.id = i.group_id`

func scanInvite(s interface{ Scan(...any) error }) (*models.GroupInvite, error) {
	inv := &models.GroupInvite{}
	var responded sql.NullTime
	err := s.Scan(&inv.ID, &inv.GroupID, &inv.GroupName, &inv.FromID, &inv.ToID, &inv.Status, &inv.CreatedAt, &responded)
	if err != nil {
		return nil, err
	}
	if responded.Valid {
		t := responded.Time
		inv.RespondedAt = &t
	}
	return inv, nil
}

// UpsertInvite stores a pending invite. An answered invite with the same id
// is reopened; a pending one is left as it is.
func (r *PostgresRepository) UpsertInvite(ctx context.Context, inv *models.GroupInvite) error {
	query :=
		`INSERT INTO group_invites (id, group_id, from_id, to_id, status, created_at)
		 VALUES ($1, $2, $3, $4, 'PENDING', $5)
		 ON CONFLICT (id) DO UPDATE SET
		   from_id = EXCLUDED.from_id,
		   status = 'PENDING',
		   created_at = EXCLUDED.created_at,
		   responded_at = NULL
		 WHERE group_invites.status <> 'PENDING'`

	if _, err := r.db.ExecContext(ctx, query, inv.ID, inv.GroupID, inv.FromID, inv.ToID, inv.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetInvite(ctx context.Context, inviteID string) (*models.GroupInvite, error) {
	query := `SELECT ` + inviteColumns + ` ` + inviteFrom + ` WHERE i.id = $1`

	inv, err := scanInvite(r.db.QueryRowContext(ctx, query, inviteID))
	if err != nil {
		return nil, notFound(err)
	}
	return inv, nil
}

func (r *PostgresRepository) SetInviteStatus(ctx context.Context, inviteID, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE group_invites SET status = $2, responded_at = now() WHERE id = $1`, inviteID, status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) listInvites(ctx context.Context, column, userID string) ([]models.GroupInvite, error) {
	query := `SELECT ` + inviteColumns + ` ` + inviteFrom + `
		 WHERE i.` + column + ` = $1 AND i.status = 'PENDING'
		 ORDER BY i.created_at, i.id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.GroupInvite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// ListInvitesTo returns the pending invites addressed to userID.
func (r *PostgresRepository) ListInvitesTo(ctx context.Context, userID string) ([]models.GroupInvite, error) {
	return r.listInvites(ctx, "to_id", userID)
}

func (r *PostgresRepository) ListInvitesFrom(ctx context.Context, userID string) ([]models.GroupInvite, error) {
	return r.listInvites(ctx, "from_id", userID)
}
