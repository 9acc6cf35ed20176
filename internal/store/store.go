package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/litedb/internal/engine"
	"github.com/roach88/litedb/internal/stmt"
	"github.com/roach88/litedb/internal/txguard"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = engine.MemoryPath

// Options configures Open.
type Options struct {
	// Path is the database file. Empty selects MemoryPath.
	Path string

	// BusyTimeout is how long SQLite retries a locked database before
	// failing. Zero selects engine.DefaultBusyTimeout. It has no effect
	// once this connection holds a RESERVED lock inside a transaction.
	BusyTimeout time.Duration

	// StepPolicy is the default failure policy of Update.
	StepPolicy stmt.StepPolicy

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Database is a single SQLite connection with its statement executor and
// transaction guard.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Only one goroutine at a
//     time can hold an open transaction; plain statements are not
//     serialized by the guard.
type Database struct {
	eng   *engine.Engine
	exec  *stmt.Executor
	guard *txguard.Guard
}

// Open opens the database described by opts.
func Open(ctx context.Context, opts Options) (*Database, error) {
	eng, err := engine.Open(ctx, engine.Config{
		Path:        opts.Path,
		BusyTimeout: opts.BusyTimeout,
		Logger:      opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	db := &Database{
		eng:  eng,
		exec: stmt.New(eng, stmt.WithStepPolicy(opts.StepPolicy)),
	}
	db.guard = txguard.New(db, eng.Logger().With("component", "txguard"))
	return db, nil
}

// Close closes the connection. It fails while statements are still
// running on other goroutines, and on an already closed database.
func (db *Database) Close() error {
	return db.eng.Close()
}

// Path returns the path the database was opened with.
func (db *Database) Path() string {
	return db.eng.Path()
}

// LastError returns the diagnostic message of the most recent failure.
func (db *Database) LastError() string {
	return db.eng.LastError()
}

// Stats returns statement lifecycle counters.
func (db *Database) Stats() stmt.Stats {
	return db.exec.Stats()
}

// StepPolicy returns the default failure policy of Update.
func (db *Database) StepPolicy() stmt.StepPolicy {
	return db.exec.Policy()
}

// Execute runs one or more ';'-separated statements. When a later
// statement fails, earlier ones keep their effects.
func (db *Database) Execute(ctx context.Context, query string) error {
	return db.exec.Execute(ctx, query)
}

// Select runs the first statement of query and hands each row to r,
// returning the number of rows read.
func (db *Database) Select(ctx context.Context, query string, r stmt.RowReader) (int, error) {
	return db.exec.Query(ctx, query, r)
}

// Update prepares query once and runs it count times, letting b bind
// each iteration's parameters.
func (db *Database) Update(ctx context.Context, query string, count int, b stmt.ParameterBinder) (stmt.MutateResult, error) {
	return db.exec.Mutate(ctx, query, count, b)
}

// UpdatePolicy is Update with an explicit failure policy.
func (db *Database) UpdatePolicy(ctx context.Context, query string, count int, b stmt.ParameterBinder, policy stmt.StepPolicy) (stmt.MutateResult, error) {
	return db.exec.MutatePolicy(ctx, query, count, b, policy)
}

// Interrupt aborts any statement running on this connection.
func (db *Database) Interrupt() {
	db.eng.Interrupt()
}

// AutoCommit reports whether no transaction is currently open.
func (db *Database) AutoCommit(ctx context.Context) (bool, error) {
	return db.eng.AutoCommit(ctx)
}

// HealthCheck verifies the connection answers a trivial query.
func (db *Database) HealthCheck(ctx context.Context) error {
	_, err := db.IntQuery(ctx, "SELECT 1")
	return err
}
