package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/roach88/litedb/internal/stmt"
)

// ErrNoRows is returned by IntQuery when the query produced no row.
var ErrNoRows = errors.New("query returned no rows")

// IntQuery runs query and returns column 0 of its first row as an
// integer. Later rows are not read.
func (db *Database) IntQuery(ctx context.Context, query string) (int64, error) {
	var (
		value int64
		found bool
	)
	_, err := db.exec.Query(ctx, query, stmt.RowFunc(func(_ int, r *stmt.Row) error {
		value = r.Int64(0)
		found = true
		return stmt.ErrStop
	}))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNoRows
	}
	return value, nil
}

// UserVersion returns the user_version pragma, the application's schema
// version slot in the database header.
func (db *Database) UserVersion(ctx context.Context) (int, error) {
	v, err := db.IntQuery(ctx, "PRAGMA user_version")
	if err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return int(v), nil
}

// SetUserVersion stores v in the user_version pragma. SQLite keeps it as
// a signed 32-bit integer; values outside that range are rejected.
func (db *Database) SetUserVersion(ctx context.Context, v int) error {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return fmt.Errorf("set user_version: %d out of 32-bit range", v)
	}
	if err := db.exec.Execute(ctx, fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
