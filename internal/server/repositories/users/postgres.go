package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/dbx"
	"github.com/dmitrijs2005/playkeeper/internal/server/models"
	"github.com/dmitrijs2005/playkeeper/internal/server/shared/db"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, user.UserName, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "users_username_key") {
			return nil, fmt.Errorf("%w: username %q", common.ErrAlreadyExists, user.UserName)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO profiles (user_id, nickname) VALUES ($1, $2)`, user.ID, user.UserName)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	query :=
		`SELECT id, username, password_hash, created_at FROM users
		 WHERE username = $1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userName).Scan(&user.ID, &user.UserName, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) getProfile(ctx context.Context, where string, arg any) (*models.Profile, error) {
	query := `SELECT user_id, nickname, COALESCE(friend_code, '') FROM profiles WHERE ` + where + ` = $1`

	p := &models.Profile{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&p.UserID, &p.Nickname, &p.FriendCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return r.getProfile(ctx, "user_id", userID)
}

func (r *PostgresRepository) GetProfileByCode(ctx context.Context, code string) (*models.Profile, error) {
	return r.getProfile(ctx, "friend_code", code)
}
