package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/litedb/internal/txguard"
)

// Begin starts a deferred transaction, waiting while another goroutine
// holds one. The returned Tx must be finished with Commit or Rollback.
func (db *Database) Begin(ctx context.Context) (*txguard.Tx, error) {
	return db.guard.Begin(ctx, txguard.Deferred)
}

// BeginMode starts a transaction with the given locking mode.
func (db *Database) BeginMode(ctx context.Context, mode txguard.Mode) (*txguard.Tx, error) {
	return db.guard.Begin(ctx, mode)
}

// InTransaction runs fn in a deferred transaction, committing when it
// returns nil and rolling back otherwise.
func (db *Database) InTransaction(ctx context.Context, fn func(tx *txguard.Tx) error) error {
	return db.guard.Do(ctx, txguard.Deferred, fn)
}

// InTransactionMode is InTransaction with an explicit locking mode.
func (db *Database) InTransactionMode(ctx context.Context, mode txguard.Mode, fn func(tx *txguard.Tx) error) error {
	return db.guard.Do(ctx, mode, fn)
}

// Savepoint opens a named savepoint. Outside a transaction it starts one
// that the matching ReleaseSavepoint commits. Savepoints nest and are not
// tracked by the transaction guard.
func (db *Database) Savepoint(ctx context.Context, name string) error {
	return db.savepointSQL(ctx, "SAVEPOINT", name)
}

// ReleaseSavepoint releases the named savepoint and every savepoint
// opened after it.
func (db *Database) ReleaseSavepoint(ctx context.Context, name string) error {
	return db.savepointSQL(ctx, "RELEASE SAVEPOINT", name)
}

// RollbackToSavepoint undoes changes made since the named savepoint. The
// savepoint itself stays open.
func (db *Database) RollbackToSavepoint(ctx context.Context, name string) error {
	return db.savepointSQL(ctx, "ROLLBACK TO SAVEPOINT", name)
}

func (db *Database) savepointSQL(ctx context.Context, verb, name string) error {
	ident, err := quoteIdentifier(name)
	if err != nil {
		return fmt.Errorf("%s: %w", strings.ToLower(verb), err)
	}
	return db.exec.Execute(ctx, verb+" "+ident)
}

// WithSavepoint runs fn inside a uniquely named savepoint. The savepoint
// is released when fn returns nil; otherwise changes since it are rolled
// back before it is released.
func (db *Database) WithSavepoint(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	name := "sp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := db.Savepoint(ctx, name); err != nil {
		return err
	}

	undo := func() error {
		cctx := context.WithoutCancel(ctx)
		return errors.Join(db.RollbackToSavepoint(cctx, name), db.ReleaseSavepoint(cctx, name))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = undo() //nolint:errcheck // Re-panicking
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		if uerr := undo(); uerr != nil {
			return errors.Join(err, uerr)
		}
		return err
	}
	return db.ReleaseSavepoint(ctx, name)
}
