package ddl

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*Runner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunner(db), mock
}

func TestApplyRunsAllStatementsInOneTransaction(t *testing.T) {
	runner, mock := newMockDB(t)

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS "a" ();`,
		`CREATE INDEX IF NOT EXISTS "idx_a_x" ON "a" ("x");`,
	}

	mock.ExpectBegin()
	for _, stmt := range stmts {
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, runner.Apply(context.Background(), stmts))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	runner, mock := newMockDB(t)

	stmt := "CREATE TABLE bad ();"
	mock.ExpectBegin()
	mock.ExpectExec(stmt).WillReturnError(fmt.Errorf("syntax error"))
	mock.ExpectRollback()

	err := runner.Apply(context.Background(), []string{stmt})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyNothingIsNoop(t *testing.T) {
	runner, mock := newMockDB(t)
	require.NoError(t, runner.Apply(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
