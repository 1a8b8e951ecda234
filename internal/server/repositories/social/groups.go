package social

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/server/models"
)

const groupColumns = `g.id::text, g.name, g.owner_id::text, g.created_at, g.updated_at`

func scanGroup(s interface{ Scan(...any) error }) (*models.Group, error) {
	g := &models.Group{}
	err := s.Scan(&g.ID, &g.Name, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// CreateGroup inserts the group and its owner membership. Run it inside a
// transaction.
func (r *PostgresRepository) CreateGroup(ctx context.Context, name, ownerID string) (*models.Group, error) {
	query :=
		`INSERT INTO groups AS g (name, owner_id)
		 VALUES ($1, $2)
		 RETURNING ` + groupColumns

	g, err := scanGroup(r.db.QueryRowContext(ctx, query, name, ownerID))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := r.AddMember(ctx, g.ID, ownerID, models.RoleOwner); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *PostgresRepository) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups g WHERE g.id = $1`

	g, err := scanGroup(r.db.QueryRowContext(ctx, query, groupID))
	if err != nil {
		return nil, notFound(err)
	}
	return g, nil
}

func (r *PostgresRepository) ListGroupsFor(ctx context.Context, userID string) ([]models.Group, error) {
	query :=
		`SELECT ` + groupColumns + ` FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = $1
		 ORDER BY g.created_at, g.id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	query :=
		`SELECT m.group_id::text, m.user_id::text, p.nickname, m.role, m.joined_at
		 FROM group_members m JOIN profiles p ON p.user_id = m.user_id
		 WHERE m.group_id = $1
		 ORDER BY m.joined_at, m.user_id`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Nickname, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`,
		groupID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// AddMember is a no-op when userID already belongs to the group.
func (r *PostgresRepository) AddMember(ctx context.Context, groupID, userID, role string) error {
	query :=
		`INSERT INTO group_members (group_id, user_id, role)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (group_id, user_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, groupID, userID, role); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// SetOwner hands the group to userID, who must already be a member.
func (r *PostgresRepository) SetOwner(ctx context.Context, groupID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE groups SET owner_id = $2, updated_at = now() WHERE id = $1`, groupID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE group_members SET role = CASE WHEN user_id = $2 THEN 'OWNER' ELSE 'MEMBER' END
		 WHERE group_id = $1`, groupID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
