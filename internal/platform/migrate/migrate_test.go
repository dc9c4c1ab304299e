package migrate

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLoad_SortsAndSkipsUnknownFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_add_index.sql":    {Data: []byte("CREATE INDEX i ON t (a);")},
		"m/001_create_table.sql": {Data: []byte("CREATE TABLE t (a TEXT);")},
		"m/README.md":            {Data: []byte("notes")},
	}

	got, err := Load(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Version)
	assert.Equal(t, "create table", got[0].Description)
	assert.Equal(t, 2, got[1].Version)
}

func TestLoad_RejectsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/001_a.sql": {Data: []byte("SELECT 1;")},
		"m/001_b.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := Load(fsys, "m")
	assert.Error(t, err)
}

func TestRunner_UpIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	fsys := fstest.MapFS{
		"m/001_create_table.sql": {Data: []byte("CREATE TABLE t (a TEXT);")},
		"m/002_add_index.sql":    {Data: []byte("CREATE INDEX i ON t (a);")},
	}

	r, err := New(db, fsys, "m", Question)
	require.NoError(t, err)

	applied, err := r.Up(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 2)

	applied, err = r.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	status, err := r.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.True(t, status[0].Applied)
	assert.NotEmpty(t, status[1].AppliedAt)
}

func TestRunner_FailedMigrationIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	fsys := fstest.MapFS{
		"m/001_ok.sql":     {Data: []byte("CREATE TABLE t (a TEXT);")},
		"m/002_broken.sql": {Data: []byte("CREATE TABLE;")},
	}

	r, err := New(db, fsys, "m", Question)
	require.NoError(t, err)

	applied, err := r.Up(ctx)
	require.Error(t, err)
	assert.Len(t, applied, 1)

	status, err := r.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status[0].Applied)
	assert.False(t, status[1].Applied)
}
