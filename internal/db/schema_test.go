package db_test

import (
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/carrypal/carrypal-backend/internal/db"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return gdb, mock
}

func TestEnsureSchema(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "market"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.EnsureSchema(gdb, "market"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_Error(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "geo"`)).
		WillReturnError(errors.New("permission denied"))

	assert.Error(t, db.EnsureSchema(gdb, "geo"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureUUIDExtension(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.EnsureUUIDExtension(gdb))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, db.IsUniqueViolation(unique))
	assert.True(t, db.IsUniqueViolation(fmt.Errorf("insert claim: %w", unique)))
	assert.True(t, db.IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, db.IsUniqueViolation(fk))
	assert.False(t, db.IsUniqueViolation(errors.New("boom")))
	assert.False(t, db.IsUniqueViolation(nil))
}

func TestIsLockConflict(t *testing.T) {
	assert.True(t, db.IsLockConflict(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, db.IsLockConflict(fmt.Errorf("approve: %w", &pgconn.PgError{Code: "40001"})))
	assert.False(t, db.IsLockConflict(&pgconn.PgError{Code: "23505"}))
	assert.False(t, db.IsLockConflict(errors.New("boom")))
	assert.False(t, db.IsLockConflict(nil))
}
