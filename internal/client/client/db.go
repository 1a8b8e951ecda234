package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/playkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/client/repositories/cursors"
	"github.com/dmitrijs2005/playkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/playkeeper/internal/client/repositories/records"
	"github.com/dmitrijs2005/playkeeper/internal/client/repositories/social"
	"github.com/dmitrijs2005/playkeeper/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repositories are the local stores of one client database.
type Repositories struct {
	Records  map[models.Domain]*records.SQLiteRepository
	Cursors  *cursors.SQLiteRepository
	Metadata *metadata.SQLiteRepository
	Social   *social.SQLiteRepository
}

func NewRepositories(db *sql.DB) *Repositories {
	r := &Repositories{
		Records:  make(map[models.Domain]*records.SQLiteRepository, len(models.Domains)),
		Cursors:  cursors.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
		Social:   social.NewSQLiteRepository(db),
	}
	for _, d := range models.Domains {
		r.Records[d] = records.NewSQLiteRepository(db, d)
	}
	return r
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the SQLite database at dsn and migrates it. SQLite
// allows one writer, so the pool is limited to a single connection.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if err := filex.EnsureParentDir(dsn); err != nil {
		return nil, fmt.Errorf("failed to prepare database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA foreign_keys = ON`, `PRAGMA busy_timeout = 5000`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure database: %w", err)
		}
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}
