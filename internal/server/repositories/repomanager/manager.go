package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/playkeeper/internal/codes"
	"github.com/dmitrijs2005/playkeeper/internal/dbx"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/social"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Records(db dbx.DBTX) records.Repository
	Social(db dbx.DBTX) social.Repository
	CodeIndex(db *sql.DB) codes.Index
}
