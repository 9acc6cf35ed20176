package engine

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/litedb/internal/logging"
)

const (
	// MemoryPath opens a private in-memory database instead of a file.
	MemoryPath = ":memory:"

	// DefaultBusyTimeout is how long SQLite retries a locked database
	// before reporting SQLITE_BUSY.
	DefaultBusyTimeout = 60 * time.Second

	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600
)

// Conn is the native connection capability the engine hands to
// operations. *sqlite3.SQLiteConn satisfies it.
type Conn interface {
	driver.Conn
	driver.ConnPrepareContext
	driver.ExecerContext
	driver.QueryerContext
	AutoCommit() bool
}

// Stmt is the prepared statement capability used by the executor.
type Stmt interface {
	driver.Stmt
	driver.StmtExecContext
	driver.StmtQueryContext
}

var (
	_ Conn = (*sqlite3.SQLiteConn)(nil)
	_ Stmt = (*sqlite3.SQLiteStmt)(nil)
)

// Config contains connection options.
type Config struct {
	// Path is the database file, created if absent. Empty or MemoryPath
	// selects an in-memory database that lives as long as the Engine.
	Path string

	// BusyTimeout bounds how long SQLite retries when another connection
	// holds a conflicting lock. Zero means DefaultBusyTimeout.
	//
	// The timeout does not help a connection that is already inside a
	// transaction holding a RESERVED lock: SQLite returns SQLITE_BUSY at
	// once there to avoid deadlock, and the caller must roll back.
	BusyTimeout time.Duration

	// Logger receives lifecycle and failure logs. Nil discards them.
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = MemoryPath
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = DefaultBusyTimeout
	}
	if c.Logger == nil {
		c.Logger = logging.Discard()
	}
	return c
}

// DSN returns the mattn/go-sqlite3 connection string for the config:
// read-write, create, full mutex (serialized mode) and the busy timeout.
func (c Config) DSN() string {
	c = c.withDefaults()
	return fmt.Sprintf("file:%s?mode=rwc&_mutex=full&_busy_timeout=%d",
		escapePath(c.Path), c.BusyTimeout.Milliseconds())
}

// escapePath keeps URI metacharacters in file names from being parsed
// as query parameters.
func escapePath(p string) string {
	return strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(p)
}

// Engine owns the single native connection to a database.
//
// Thread Safety:
//   - The connection is opened in serialized mode, so operations may be
//     issued from multiple goroutines. A prepared statement must not be
//     shared between goroutines; the executor never does.
type Engine struct {
	mu       sync.Mutex
	conn     *sqlite3.SQLiteConn
	path     string
	timeout  time.Duration
	lastErr  string
	inflight map[uint64]context.CancelFunc
	nextOp   uint64
	logger   *slog.Logger
}

// Open opens (creating if needed) the database described by cfg.
//
// For file databases the parent directory is created and the file is
// restricted to owner read/write. On failure any partially opened
// handle is closed and a KindOpen error is returned.
func Open(ctx context.Context, cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()

	if err := ctx.Err(); err != nil {
		return nil, Wrap(KindOpen, "open", "", err)
	}

	if cfg.Path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
			return nil, Wrap(KindOpen, "open", "", fmt.Errorf("creating database directory: %w", err))
		}
	}

	dc, err := (&sqlite3.SQLiteDriver{}).Open(cfg.DSN())
	if err != nil {
		if dc != nil {
			dc.Close() //nolint:errcheck // Best effort cleanup on error path
		}
		cfg.Logger.Warn("database open failed", "path", cfg.Path, "error", err)
		return nil, Wrap(KindOpen, "open", "", fmt.Errorf("opening %s: %w", cfg.Path, err))
	}

	conn, ok := dc.(*sqlite3.SQLiteConn)
	if !ok {
		dc.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, Wrap(KindOpen, "open", "", fmt.Errorf("unexpected driver connection %T", dc))
	}

	if cfg.Path != MemoryPath {
		_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // File may not exist until first write
	}

	cfg.Logger.Info("database opened", "path", cfg.Path, "busy_timeout", cfg.BusyTimeout)

	return &Engine{
		conn:     conn,
		path:     cfg.Path,
		timeout:  cfg.BusyTimeout,
		inflight: make(map[uint64]context.CancelFunc),
		logger:   cfg.Logger,
	}, nil
}

// Close releases the native connection.
//
// It fails with ErrOutstanding while another goroutine is still running
// an operation, and with ErrNotOpen when the engine is already closed.
// Neither failure changes the engine's state.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		err := Wrap(KindClose, "close", "", ErrNotOpen)
		e.lastErr = err.Error()
		return err
	}
	if n := len(e.inflight); n > 0 {
		err := Wrap(KindClose, "close", "", fmt.Errorf("%w: %d in flight", ErrOutstanding, n))
		e.lastErr = err.Error()
		e.logger.Warn("database close refused", "path", e.path, "in_flight", n)
		return err
	}

	err := e.conn.Close()
	e.conn = nil
	if err != nil {
		e.lastErr = diagnostic(err)
		e.logger.Warn("database close failed", "path", e.path, "error", err)
		return Wrap(KindClose, "close", "", err)
	}

	e.logger.Info("database closed", "path", e.path)
	return nil
}

// Path returns the path the engine was opened with.
func (e *Engine) Path() string {
	return e.path
}

// BusyTimeout returns the configured lock retry timeout.
func (e *Engine) BusyTimeout() time.Duration {
	return e.timeout
}

// Logger returns the engine's logger so layers above log consistently.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// IsOpen reports whether the connection is open.
func (e *Engine) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn != nil
}

// LastError returns the diagnostic of the most recent failure, or "".
func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Do runs fn against the native connection.
//
// While fn runs the operation counts as in flight: Close refuses to
// proceed and Interrupt cancels the context passed to fn, which makes the
// driver abort the running statement. A failure returned by fn is
// recorded as the engine's last error.
func (e *Engine) Do(ctx context.Context, fn func(ctx context.Context, c Conn) error) error {
	conn, opCtx, done, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer done()

	err = fn(opCtx, conn)
	e.record(err)
	return err
}

// Interrupt aborts every statement currently running on the connection.
// Operations started afterwards are unaffected.
func (e *Engine) Interrupt() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, cancel := range e.inflight {
		cancel()
	}
	e.logger.Debug("interrupt requested", "in_flight", len(e.inflight))
}

// AutoCommit reports whether the connection is in autocommit mode, that
// is, no explicit transaction is open.
func (e *Engine) AutoCommit(ctx context.Context) (bool, error) {
	var on bool
	err := e.Do(ctx, func(_ context.Context, c Conn) error {
		on = c.AutoCommit()
		return nil
	})
	return on, err
}

// acquire registers a new in-flight operation.
func (e *Engine) acquire(ctx context.Context) (Conn, context.Context, func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		e.lastErr = ErrNotOpen.Error()
		return nil, nil, nil, ErrNotOpen
	}

	id := e.nextOp
	e.nextOp++
	opCtx, cancel := context.WithCancel(ctx)
	e.inflight[id] = cancel

	done := func() {
		e.mu.Lock()
		delete(e.inflight, id)
		e.mu.Unlock()
		cancel()
	}
	return e.conn, opCtx, done, nil
}

func (e *Engine) record(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	e.lastErr = diagnostic(err)
	e.mu.Unlock()
}

// diagnostic prefers the engine's own message over wrapper text.
func diagnostic(err error) string {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Error()
	}
	return err.Error()
}
