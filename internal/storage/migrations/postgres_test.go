package migrations

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	statements []string
	fail       error
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	return pgconn.CommandTag{}, r.fail
}

func TestRunPostgresMigrations_AppliesEmbeddedFiles(t *testing.T) {
	files, err := PostgresFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_init.sql", files[0])

	db := &recordingExecer{}
	require.NoError(t, RunPostgresMigrations(context.Background(), db))
	require.Len(t, db.statements, len(files))
	assert.Contains(t, db.statements[0], "CREATE TABLE IF NOT EXISTS trades")
}

func TestRunPostgresMigrations_WrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	err := RunPostgresMigrations(context.Background(), &recordingExecer{fail: boom})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "apply migration 001_init.sql")
}
