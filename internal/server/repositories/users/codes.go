package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/dbx"
	"github.com/dmitrijs2005/playkeeper/internal/server/shared/db"
)

// PostgresCodeIndex claims friend codes in the unique_codes table. The
// claim and the profile update commit together.
type PostgresCodeIndex struct {
	db *sql.DB
}

func NewPostgresCodeIndex(db *sql.DB) *PostgresCodeIndex {
	return &PostgresCodeIndex{db: db}
}

func (c *PostgresCodeIndex) Claim(ctx context.Context, code, ownerID string) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO unique_codes (code, owner_id) VALUES ($1, $2)
			 ON CONFLICT (code) DO NOTHING`, code, ownerID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n == 0 {
			return common.ErrCodeTaken
		}

		res, err = tx.ExecContext(ctx, `UPDATE profiles SET friend_code = $1 WHERE user_id = $2`, code, ownerID)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return common.ErrCodeTaken
			}
			return fmt.Errorf("db error: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: profile of %s", common.ErrorNotFound, ownerID)
		}
		return nil
	})
}
