package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/jbradberry/universe/internal/sim/tuning"
)

func TestSQLiteIndex_RecordTurn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	require.NoError(t, err)

	idx.RecordTurn(TurnRow{Turn: 2501, RunID: "run-a", Digest: "d1", Entities: 4, Applied: 1, Path: "/snap/2501.json"})
	idx.RecordTurn(TurnRow{Turn: 2501, RunID: "run-b", Digest: "d2", Entities: 5, Dropped: 2, Fulfilled: 1, Path: "/snap/2501.json"})

	got, ok, err := idx.LookupTurn(context.Background(), 2501)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-b", got.RunID)
	assert.Equal(t, "d2", got.Digest)
	assert.Equal(t, 5, got.Entities)
	assert.Equal(t, 2, got.Dropped)
	assert.Equal(t, 1, got.Fulfilled)
	assert.NotEmpty(t, got.RecordedAt)

	_, ok, err = idx.LookupTurn(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, idx.Close())
	_, _, err = idx.LookupTurn(context.Background(), 2501)
	assert.ErrorIs(t, err, ErrClosed)
	idx.RecordTurn(TurnRow{Turn: 9})

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM turns`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLiteIndex_CloseFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.db")
	idx, err := OpenSQLite(path)
	require.NoError(t, err)
	for turn := int64(1); turn <= 10; turn++ {
		idx.RecordTurn(TurnRow{Turn: turn, RunID: "r", Digest: "x"})
	}
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM turns WHERE run_id='r'`).Scan(&n))
	assert.Equal(t, 10, n)
}

func TestSQLiteIndex_UpsertTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, idx.UpsertTuning(tuning.Default()))
	require.NoError(t, idx.UpsertTuning(tuning.Default()))
	require.NoError(t, idx.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var digest, raw string
	require.NoError(t, db.QueryRow(`SELECT digest,json FROM config WHERE name='tuning'`).Scan(&digest, &raw))
	assert.Len(t, digest, 64)
	assert.Contains(t, raw, `"Substeps":1000`)
}

func TestOpenSQLiteEmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}
