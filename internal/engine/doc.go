// Package engine owns the native SQLite connection behind a database.
//
// An Engine holds exactly one connection opened read-write, create and
// full-mutex (serialized mode) with a busy timeout. Every statement-level
// operation goes through Engine.Do, which:
//   - fails with ErrNotOpen once the engine is closed
//   - tracks the operation so Close refuses while it runs
//   - lets Interrupt abort it from another goroutine
//   - records the failure message for LastError
//
// Failures are reported as *Error values categorized by Kind (open,
// prepare, step, bind, reset, finalize, transaction, ...) and carrying the
// SQLite result code. Nothing in this package retries; retry policy
// belongs to the caller.
package engine
