package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultFileName is the file name of the default database.
const DefaultFileName = "Database.db"

// DefaultPath returns the default database location inside dir. An empty
// dir resolves to the per-user configuration directory.
func DefaultPath(dir string) (string, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolving default database directory: %w", err)
		}
		dir = filepath.Join(base, "litedb")
	}
	return filepath.Join(dir, DefaultFileName), nil
}

// OpenDefault opens the default database in dir (see DefaultPath),
// ignoring opts.Path. The caller owns the result and passes it to
// whatever needs it; nothing is kept at package level.
func OpenDefault(ctx context.Context, dir string, opts Options) (*Database, error) {
	path, err := DefaultPath(dir)
	if err != nil {
		return nil, err
	}
	opts.Path = path
	return Open(ctx, opts)
}
