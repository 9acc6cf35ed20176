// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/litedb/internal/engine"
)

// OpenEngine opens an engine for a test and closes it at cleanup. An
// empty path selects a fresh file in t.TempDir(); engine.MemoryPath
// selects an in-memory database. A nil logger discards output.
func OpenEngine(t *testing.T, path string, logger *slog.Logger) *engine.Engine {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "test.db")
	}
	eng, err := engine.Open(context.Background(), engine.Config{Path: path, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() {
		if eng.IsOpen() {
			_ = eng.Close()
		}
	})
	return eng
}
