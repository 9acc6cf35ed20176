package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/litedb/internal/txguard"
)

func TestTransaction_RollbackLeavesCountUnchanged(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)
	mustExec(t, db, "CREATE TABLE t(id INTEGER, name TEXT); INSERT INTO t VALUES (1, 'a')")
	before := countRows(t, db, "t")

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	mustExec(t, db, "INSERT INTO t VALUES (2, 'b')")

	on, err := db.AutoCommit(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, tx.Rollback(ctx))
	assert.Equal(t, before, countRows(t, db, "t"))

	on, err = db.AutoCommit(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestTransaction_CommitIsConsumedOnce(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	tx, err := db.BeginMode(ctx, txguard.Immediate)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.ErrorIs(t, tx.Commit(ctx), txguard.ErrTxDone)
	assert.ErrorIs(t, tx.Rollback(ctx), txguard.ErrTxDone)
}

func TestTransaction_BeginWaitsForRelease(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)
	mustExec(t, db, "CREATE TABLE t(id INTEGER)")

	first, err := db.Begin(ctx)
	require.NoError(t, err)

	var (
		holders    atomic.Int32
		maxHolders atomic.Int32
		acquired   atomic.Int32
		mu         sync.Mutex
		order      []string
	)
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	const waiters = 2
	done := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func(id int) {
			tx, err := db.Begin(ctx)
			if err != nil {
				done <- err
				return
			}
			acquired.Add(1)
			n := holders.Add(1)
			for {
				m := maxHolders.Load()
				if n <= m || maxHolders.CompareAndSwap(m, n) {
					break
				}
			}
			record("waiter begin")
			err = db.Execute(ctx, fmt.Sprintf("INSERT INTO t VALUES (%d)", id))
			time.Sleep(20 * time.Millisecond)
			holders.Add(-1)
			if cerr := tx.Commit(ctx); err == nil {
				err = cerr
			}
			done <- err
		}(i)
	}

	// Neither waiter gets in while the first transaction is open.
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, acquired.Load())

	record("first commit")
	require.NoError(t, first.Commit(ctx))

	for i := 0; i < waiters; i++ {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("waiter never acquired the guard")
		}
	}

	assert.Equal(t, int32(1), maxHolders.Load(), "two waiters held the guard at once")
	assert.Equal(t, []string{"first commit", "waiter begin", "waiter begin"}, order)
	assert.Equal(t, int64(waiters), countRows(t, db, "t"))
}

func TestTransaction_BeginHonorsContext(t *testing.T) {
	db := openMemoryDB(t)

	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback(context.Background()) //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = db.Begin(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInTransaction(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)
	mustExec(t, db, "CREATE TABLE t(id INTEGER)")

	require.NoError(t, db.InTransaction(ctx, func(*txguard.Tx) error {
		return db.Execute(ctx, "INSERT INTO t VALUES (1)")
	}))
	assert.Equal(t, int64(1), countRows(t, db, "t"))

	boom := errors.New("boom")
	err := db.InTransaction(ctx, func(*txguard.Tx) error {
		require.NoError(t, db.Execute(ctx, "INSERT INTO t VALUES (2)"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), countRows(t, db, "t"))
}

func TestSavepoint_NestedRollback(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)
	mustExec(t, db, "CREATE TABLE t(id INTEGER)")

	require.NoError(t, db.Savepoint(ctx, "outer"))
	mustExec(t, db, "INSERT INTO t VALUES (1)")
	require.NoError(t, db.Savepoint(ctx, "inner"))
	mustExec(t, db, "INSERT INTO t VALUES (2)")

	require.NoError(t, db.RollbackToSavepoint(ctx, "inner"))
	require.NoError(t, db.ReleaseSavepoint(ctx, "outer"))

	assert.Equal(t, int64(1), countRows(t, db, "t"))
	on, err := db.AutoCommit(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestSavepoint_RejectsInvalidName(t *testing.T) {
	db := openMemoryDB(t)

	err := db.Savepoint(context.Background(), `x"; DROP TABLE t; --`)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	assert.Empty(t, db.LastError())
}

func TestWithSavepoint(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)
	mustExec(t, db, "CREATE TABLE t(id INTEGER)")

	tx, err := db.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, db.WithSavepoint(ctx, func(ctx context.Context) error {
		return db.Execute(ctx, "INSERT INTO t VALUES (1)")
	}))

	boom := errors.New("boom")
	err = db.WithSavepoint(ctx, func(ctx context.Context) error {
		require.NoError(t, db.Execute(ctx, "INSERT INTO t VALUES (2)"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Panics(t, func() {
		_ = db.WithSavepoint(ctx, func(ctx context.Context) error {
			require.NoError(t, db.Execute(ctx, "INSERT INTO t VALUES (3)"))
			panic("kaboom")
		})
	})

	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, int64(1), countRows(t, db, "t"))
}
