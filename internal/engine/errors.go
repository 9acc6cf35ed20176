package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Sentinel errors returned by the engine handle.
var (
	// ErrNotOpen is returned when an operation needs an open connection
	// and the engine was closed or never opened.
	ErrNotOpen = errors.New("database is not open")

	// ErrOutstanding is returned by Close while statements are still in
	// flight on the connection.
	ErrOutstanding = errors.New("unfinalized statements outstanding")

	// ErrEmptySQL is returned when the statement text is empty.
	ErrEmptySQL = errors.New("empty SQL statement")
)

// Kind categorizes failures by the engine call that produced them.
type Kind int

const (
	// KindOpen means the file could not be opened or created in the
	// required mode.
	KindOpen Kind = iota + 1

	// KindClose means outstanding resources prevented a clean shutdown.
	KindClose

	// KindPrepare means the SQL text did not compile (syntax, missing
	// table, schema mismatch).
	KindPrepare

	// KindStep means execution failed: constraint violation, busy/locked
	// beyond the timeout, interruption, or an unexpected row.
	KindStep

	// KindBind means a parameter could not be bound.
	KindBind

	// KindReset means the statement could not be reset for reuse.
	KindReset

	// KindFinalize means the statement could not be released.
	KindFinalize

	// KindTransaction means BEGIN, COMMIT or ROLLBACK was rejected.
	KindTransaction

	// KindRead means a row callback failed.
	KindRead
)

// String returns the category name used in error messages and logs.
func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindClose:
		return "close"
	case KindPrepare:
		return "prepare"
	case KindStep:
		return "step"
	case KindBind:
		return "bind"
	case KindReset:
		return "reset"
	case KindFinalize:
		return "finalize"
	case KindTransaction:
		return "transaction"
	case KindRead:
		return "read"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a failure reported by the SQL engine, annotated with the
// operation and statement that produced it.
//
// Code is the primary SQLite result code when the failure came from the
// engine itself, and zero otherwise (context cancellation, caller errors).
type Error struct {
	Kind Kind
	Op   string
	SQL  string
	Code sqlite3.ErrNo
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s failed: %v", e.Op, e.Kind, e.Err)
	if e.SQL != "" {
		msg += fmt.Sprintf(" (%s)", e.SQL)
	}
	return msg
}

// Unwrap returns the underlying driver error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap annotates err with its category, operation and statement text.
// Returns nil if err is nil. An err that already is an *Error is
// returned unchanged so the innermost category wins.
func Wrap(kind Kind, op, query string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	e := &Error{Kind: kind, Op: op, SQL: query, Err: err}
	var se sqlite3.Error
	if errors.As(err, &se) {
		e.Code = se.Code
	}
	return e
}

// Recategorize wraps err as a new *Error of the given kind even when err
// already carries a category, keeping its SQLite result code. Layers that
// give a statement its meaning (for example COMMIT as a transaction
// boundary) use it to report their own category.
func Recategorize(kind Kind, op, query string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, SQL: query, Code: Code(err), Err: err}
}

// IsKind reports whether err (or the first *Error in its chain) has the
// given category.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Code returns the SQLite result code carried by err, or zero.
func Code(err error) sqlite3.ErrNo {
	var e *Error
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// IsInterrupted reports whether err was caused by Interrupt or by
// cancellation of the caller's context.
func IsInterrupted(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return Code(err) == sqlite3.ErrInterrupt
}

// IsBusy reports whether err is a lock contention failure that outlasted
// the busy timeout.
func IsBusy(err error) bool {
	c := Code(err)
	return c == sqlite3.ErrBusy || c == sqlite3.ErrLocked
}
