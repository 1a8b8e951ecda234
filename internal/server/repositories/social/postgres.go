package social

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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("db error: %w", err)
}

const relationColumns = `r.user_id::text, r.friend_id::text, COALESCE(p.friend_code, ''), p.nickname,
	r.status, r.created_at, r.updated_at`

const relationFrom = `FROM friend_relations r JOIN profiles p ON p.user_id = r.friend_id`

func scanRelation(s interface{ Scan(...any) error }) (*models.FriendRelation, error) {
	rel := &models.FriendRelation{}
	err := s.Scan(&rel.UserID, &rel.FriendID, &rel.Code, &rel.Nickname, &rel.Status, &rel.CreatedAt, &rel.UpdatedAt)
	return rel, err
}

func (r *PostgresRepository) GetRelation(ctx context.Context, userID, friendID string) (*models.FriendRelation, error) {
	query := `SELECT ` + relationColumns + ` ` + relationFrom + ` WHERE r.user_id = $1 AND r.friend_id = $2`

	rel, err := scanRelation(r.db.QueryRowContext(ctx, query, userID, friendID))
	if err != nil {
		return nil, notFound(err)
	}
	return rel, nil
}

// InsertRelationPair stores a pending relation: outgoing on fromID's side,
// incoming on toID's side.
func (r *PostgresRepository) InsertRelationPair(ctx context.Context, fromID, toID string, createdAt time.Time) error {
	query :=
		`INSERT INTO friend_relations (user_id, friend_id, status, created_at, updated_at)
		 VALUES ($1, $2, 'PENDING_OUTGOING', $3, now()),
		        ($2, $1, 'PENDING_INCOMING', $3, now())`

	if _, err := r.db.ExecContext(ctx, query, fromID, toID, createdAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetRelationPairStatus(ctx context.Context, userID, friendID, status string) error {
	query :=
		`UPDATE friend_relations SET status = $3, updated_at = now()
		 WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)`

	res, err := r.db.ExecContext(ctx, query, userID, friendID, status)
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

func (r *PostgresRepository) DeleteRelationPair(ctx context.Context, userID, friendID string) (bool, error) {
	query :=
		`DELETE FROM friend_relations
		 WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)`

	res, err := r.db.ExecContext(ctx, query, userID, friendID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) ListFriends(ctx context.Context, userID string) ([]models.FriendRelation, error) {
	query := `SELECT ` + relationColumns + ` ` + relationFrom + ` WHERE r.user_id = $1 ORDER BY r.created_at, r.friend_id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.FriendRelation
	for rows.Next() {
		rel, err := scanRelation(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// FindOutgoingByCode returns userID's relation with the owner of code, in
// any status.
func (r *PostgresRepository) FindOutgoingByCode(ctx context.Context, userID, code string) (*models.FriendRelation, error) {
	query := `SELECT ` + relationColumns + ` ` + relationFrom + ` WHERE r.user_id = $1 AND p.friend_code = $2`

	rel, err := scanRelation(r.db.QueryRowContext(ctx, query, userID, code))
	if err != nil {
		return nil, notFound(err)
	}
	return rel, nil
}
