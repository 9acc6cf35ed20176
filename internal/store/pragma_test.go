package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserVersion_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(ctx, Options{Path: path})
	require.NoError(t, err)

	v, err := db.UserVersion(ctx)
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, db.SetUserVersion(ctx, 7))
	v, err = db.UserVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	require.NoError(t, db.Close())

	db = openTestDB(t, path)
	v, err = db.UserVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestSetUserVersion_Range(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	require.NoError(t, db.SetUserVersion(ctx, -3))
	v, err := db.UserVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, -3, v)

	assert.Error(t, db.SetUserVersion(ctx, math.MaxInt32+1))
	assert.Error(t, db.SetUserVersion(ctx, math.MinInt32-1))
}

func TestIntQuery(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)
	mustExec(t, db, "CREATE TABLE t(v INTEGER); INSERT INTO t VALUES (5); INSERT INTO t VALUES (6)")

	n, err := db.IntQuery(ctx, "SELECT v FROM t ORDER BY v")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = db.IntQuery(ctx, "SELECT '42abc'")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	for query, want := range map[string]int64{
		"SELECT 1e300":    math.MaxInt64,
		"SELECT -1e300":   math.MinInt64,
		"SELECT '1e300'":  math.MaxInt64,
		"SELECT 2.9":      2,
		"SELECT '-12.7x'": -12,
	} {
		n, err = db.IntQuery(ctx, query)
		require.NoError(t, err, query)
		assert.Equal(t, want, n, query)
	}

	_, err = db.IntQuery(ctx, "SELECT v FROM t WHERE v > 100")
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = db.IntQuery(ctx, "SELEC 1")
	assert.Error(t, err)
}
