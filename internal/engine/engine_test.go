package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T, path string) *Engine {
	t.Helper()
	e, err := Open(context.Background(), Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() {
		if e.IsOpen() {
			_ = e.Close()
		}
	})
	return e
}

func execSQL(ctx context.Context, e *Engine, query string) error {
	return e.Do(ctx, func(ctx context.Context, c Conn) error {
		_, err := c.ExecContext(ctx, query, nil)
		return err
	})
}

func TestOpen_CreatesFileAndDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	e := openTestEngine(t, path)

	require.NoError(t, execSQL(context.Background(), e, "CREATE TABLE t (id INTEGER)"))

	info, err := os.Stat(path)
	require.NoError(t, err, "database file was not created")
	assert.False(t, info.IsDir())
	assert.Equal(t, path, e.Path())
}

func TestOpen_DefaultsToMemory(t *testing.T) {
	e := openTestEngine(t, "")
	assert.Equal(t, MemoryPath, e.Path())
	assert.Equal(t, DefaultBusyTimeout, e.BusyTimeout())
}

func TestOpen_FailureIsOpenKind(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	// The parent "directory" is a regular file.
	_, err := Open(context.Background(), Config{Path: filepath.Join(blocker, "sub", "test.db")})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindOpen), "got %v", err)
}

func TestOpen_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, Config{})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindOpen))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfig_DSN(t *testing.T) {
	dsn := Config{Path: "/tmp/a?b#c.db", BusyTimeout: 1500 * time.Millisecond}.DSN()
	assert.Equal(t, "file:/tmp/a%3fb%23c.db?mode=rwc&_mutex=full&_busy_timeout=1500", dsn)

	dsn = Config{}.DSN()
	assert.Equal(t, "file::memory:?mode=rwc&_mutex=full&_busy_timeout=60000", dsn)
}

func TestClose_Twice(t *testing.T) {
	e := openTestEngine(t, "")

	require.NoError(t, e.Close())
	assert.False(t, e.IsOpen())

	err := e.Close()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindClose))
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.NotEmpty(t, e.LastError())
}

func TestDo_AfterClose(t *testing.T) {
	e := openTestEngine(t, "")
	require.NoError(t, e.Close())

	err := execSQL(context.Background(), e, "SELECT 1")
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestClose_RefusesWhileInFlight(t *testing.T) {
	e := openTestEngine(t, "")

	entered := make(chan struct{})
	release := make(chan struct{})
	doErr := make(chan error, 1)
	go func() {
		doErr <- e.Do(context.Background(), func(context.Context, Conn) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	err := e.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutstanding)
	assert.True(t, e.IsOpen(), "failed close must not change state")

	close(release)
	require.NoError(t, <-doErr)
	require.NoError(t, e.Close())
}

func TestLastError_RecordsEngineMessage(t *testing.T) {
	e := openTestEngine(t, "")
	assert.Empty(t, e.LastError())

	err := execSQL(context.Background(), e, "SELECT * FROM missing")
	require.Error(t, err)
	assert.Contains(t, e.LastError(), "no such table: missing")
}

func TestAutoCommit(t *testing.T) {
	e := openTestEngine(t, "")
	ctx := context.Background()

	on, err := e.AutoCommit(ctx)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, execSQL(ctx, e, "BEGIN"))
	on, err = e.AutoCommit(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, execSQL(ctx, e, "ROLLBACK"))
	on, err = e.AutoCommit(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestInterrupt_AbortsRunningStatement(t *testing.T) {
	e := openTestEngine(t, "")

	started := make(chan struct{})
	doErr := make(chan error, 1)
	go func() {
		doErr <- e.Do(context.Background(), func(ctx context.Context, c Conn) error {
			close(started)
			_, err := c.ExecContext(ctx,
				"WITH RECURSIVE n(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM n) SELECT count(*) FROM n", nil)
			return err
		})
	}()

	<-started
	// Give the statement a moment to begin stepping.
	time.Sleep(50 * time.Millisecond)
	e.Interrupt()

	select {
	case err := <-doErr:
		require.Error(t, err)
		assert.True(t, IsInterrupted(err), "got %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("interrupt did not abort the statement")
	}

	// The connection stays usable after an interrupt.
	require.NoError(t, execSQL(context.Background(), e, "SELECT 1"))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(KindStep, "exec", "SELECT 1", nil))

	base := sqlite3.Error{Code: sqlite3.ErrConstraint}
	err := Wrap(KindStep, "update", "INSERT INTO t VALUES (1)", base)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, KindStep, e.Kind)
	assert.Equal(t, sqlite3.ErrConstraint, e.Code)
	assert.Equal(t, sqlite3.ErrConstraint, Code(err))
	assert.Contains(t, err.Error(), "update step failed")
	assert.Contains(t, err.Error(), "(INSERT INTO t VALUES (1))")

	// The innermost category wins when wrapping twice.
	again := Wrap(KindTransaction, "commit", "", err)
	assert.True(t, IsKind(again, KindStep))
}

func TestIsBusy(t *testing.T) {
	assert.True(t, IsBusy(Wrap(KindStep, "exec", "", sqlite3.Error{Code: sqlite3.ErrBusy})))
	assert.True(t, IsBusy(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.False(t, IsBusy(errors.New("other")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "prepare", KindPrepare.String())
	assert.Equal(t, "finalize", KindFinalize.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}
