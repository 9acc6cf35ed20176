package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/litedb/internal/stmt"
)

// openTestDB opens a database in path, or in a fresh temp file when path
// is empty, and closes it at test end.
func openTestDB(t *testing.T, path string) *Database {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "test.db")
	}
	db, err := Open(context.Background(), Options{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() {
		if db.eng.IsOpen() {
			_ = db.Close()
		}
	})
	return db
}

// openMemoryDB opens a private in-memory database.
func openMemoryDB(t *testing.T) *Database {
	t.Helper()
	return openTestDB(t, MemoryPath)
}

func mustExec(t *testing.T, db *Database, query string) {
	t.Helper()
	require.NoError(t, db.Execute(context.Background(), query))
}

func countRows(t *testing.T, db *Database, table string) int64 {
	t.Helper()
	n, err := db.IntQuery(context.Background(), "SELECT count(*) FROM "+table)
	require.NoError(t, err)
	return n
}

// idNameBinder binds (i, "n<i>") for iteration i.
var idNameBinder = stmt.BindFunc(func(i int, p *stmt.Params) error {
	if err := p.BindInt(1, i); err != nil {
		return err
	}
	return p.BindText(2, fmt.Sprintf("n%d", i))
})
