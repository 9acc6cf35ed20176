package txguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/roach88/litedb/internal/engine"
	"github.com/roach88/litedb/internal/logging"
)

// ErrTxDone is returned when Commit or Rollback is called on a
// transaction that has already been committed or rolled back.
var ErrTxDone = errors.New("transaction has already been committed or rolled back")

// Mode selects the locking behavior of BEGIN.
type Mode int

const (
	// Deferred takes locks on first use; other connections may read and
	// write until then.
	Deferred Mode = iota

	// Immediate takes the RESERVED lock at once; other connections may
	// still read but cannot write or start IMMEDIATE/EXCLUSIVE
	// transactions.
	Immediate

	// Exclusive takes an EXCLUSIVE lock; other connections are limited to
	// read-uncommitted access.
	Exclusive
)

// String returns the BEGIN keyword for the mode.
func (m Mode) String() string {
	switch m {
	case Immediate:
		return "IMMEDIATE"
	case Exclusive:
		return "EXCLUSIVE"
	default:
		return "DEFERRED"
	}
}

// ParseMode converts "deferred", "immediate" or "exclusive" (any case)
// to a Mode. An empty string selects Deferred.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "deferred":
		return Deferred, nil
	case "immediate":
		return Immediate, nil
	case "exclusive":
		return Exclusive, nil
	default:
		return Deferred, fmt.Errorf("unknown transaction mode %q", s)
	}
}

func (m Mode) beginSQL() string {
	return "BEGIN " + m.String()
}

// Execer is the statement capability the guard needs: running a plain
// statement and reading the connection's autocommit flag.
type Execer interface {
	Execute(ctx context.Context, query string) error
	AutoCommit(ctx context.Context) (bool, error)
}

// Guard admits one transaction at a time on a connection.
//
// Thread Safety:
//   - All methods are safe for concurrent use. A Tx may be finished from
//     any goroutine, but only once.
type Guard struct {
	sem    *semaphore.Weighted
	exec   Execer
	logger *slog.Logger
}

// New creates a guard that issues transaction statements through exec.
// A nil logger discards logs.
func New(exec Execer, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Guard{
		sem:    semaphore.NewWeighted(1),
		exec:   exec,
		logger: logger,
	}
}

// Begin waits until no other transaction is open on the connection, then
// issues BEGIN in the given mode.
//
// If ctx ends while waiting, Begin returns ctx.Err() without touching the
// database. If BEGIN fails the guard is released before returning. A
// goroutine that already holds a Tx and calls Begin again waits until ctx
// ends; use savepoints for nesting.
func (g *Guard) Begin(ctx context.Context, mode Mode) (*Tx, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for transaction guard: %w", err)
	}

	query := mode.beginSQL()
	if err := g.exec.Execute(ctx, query); err != nil {
		g.sem.Release(1)
		g.logger.Warn("begin failed", "mode", mode.String(), "error", err)
		return nil, engine.Recategorize(engine.KindTransaction, "begin", query, err)
	}

	g.logger.Debug("transaction started", "mode", mode.String())
	return &Tx{guard: g, mode: mode}, nil
}

// Do runs fn inside a transaction. It commits when fn returns nil and
// rolls back when fn returns an error, panics, or the commit fails.
func (g *Guard) Do(ctx context.Context, mode Mode, fn func(tx *Tx) error) (err error) {
	tx, err := g.Begin(ctx, mode)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck // Re-panicking
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if !tx.Done() {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				return errors.Join(err, rbErr)
			}
		}
		return err
	}
	return nil
}

// Tx is an open transaction. It holds the guard until Commit or
// Rollback succeeds.
type Tx struct {
	guard *Guard
	mode  Mode

	mu   sync.Mutex
	done bool
}

// Mode returns the mode the transaction was started with.
func (tx *Tx) Mode() Mode {
	return tx.mode
}

// Done reports whether the transaction has been committed or rolled back.
func (tx *Tx) Done() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.done
}

// Commit issues COMMIT. On failure the transaction stays open and the
// guard stays held, so the caller can still roll back.
func (tx *Tx) Commit(ctx context.Context) error {
	return tx.finish(ctx, "commit", "COMMIT")
}

// Rollback issues ROLLBACK. On failure the guard stays held.
func (tx *Tx) Rollback(ctx context.Context) error {
	return tx.finish(ctx, "rollback", "ROLLBACK")
}

// finish ends the transaction and releases the guard exactly once.
//
// When the statement fails but the connection is back in autocommit mode,
// SQLite has already ended the transaction itself (for example after an
// I/O error), so the guard is released anyway and the error returned.
func (tx *Tx) finish(ctx context.Context, op, query string) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return ErrTxDone
	}

	err := tx.guard.exec.Execute(ctx, query)
	if err != nil {
		err = engine.Recategorize(engine.KindTransaction, op, query, err)
		tx.guard.logger.Warn("transaction end failed", "op", op, "error", err)
		if on, acErr := tx.guard.exec.AutoCommit(context.WithoutCancel(ctx)); acErr != nil || !on {
			return err
		}
	}

	tx.done = true
	tx.guard.sem.Release(1)
	tx.guard.logger.Debug("transaction ended", "op", op)
	return err
}
