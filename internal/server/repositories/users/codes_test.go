package users

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

const (
	claimQ = `(?s)^INSERT\s+INTO\s+unique_codes\s*\(code,\s*owner_id\)\s*VALUES\s*\(\$1,\s*\$2\)\s*ON\s+CONFLICT\s*\(code\)\s*DO\s+NOTHING$`
	stampQ = `(?s)^UPDATE\s+profiles\s+SET\s+friend_code\s*=\s*\$1\s+WHERE\s+user_id\s*=\s*\$2$`
)

func newIndexWithMock(t *testing.T) (*PostgresCodeIndex, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresCodeIndex(db), mock
}

func TestClaim_Success(t *testing.T) {
	idx, mock := newIndexWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(claimQ).WithArgs("ABCD1234", "u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stampQ).WithArgs("ABCD1234", "u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, idx.Claim(context.Background(), "ABCD1234", "u-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaim_CollisionRollsBack(t *testing.T) {
	idx, mock := newIndexWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(claimQ).WithArgs("ABCD1234", "u-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := idx.Claim(context.Background(), "ABCD1234", "u-1")
	require.ErrorIs(t, err, common.ErrCodeTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaim_ProfileCodeCollision(t *testing.T) {
	idx, mock := newIndexWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(claimQ).WithArgs("ABCD1234", "u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stampQ).WithArgs("ABCD1234", "u-1").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "profiles_friend_code_key"})
	mock.ExpectRollback()

	err := idx.Claim(context.Background(), "ABCD1234", "u-1")
	require.ErrorIs(t, err, common.ErrCodeTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaim_DBError(t *testing.T) {
	idx, mock := newIndexWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(claimQ).WithArgs("ABCD1234", "u-1").WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	err := idx.Claim(context.Background(), "ABCD1234", "u-1")
	require.Error(t, err)
	require.NotErrorIs(t, err, common.ErrCodeTaken)
}
