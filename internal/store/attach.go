package store

import (
	"context"
	"fmt"

	"github.com/roach88/litedb/internal/stmt"
)

// Attach attaches the database file (or MemoryPath) under schema name,
// so its tables are addressed as name.table.
func (db *Database) Attach(ctx context.Context, file, name string) error {
	schema, err := quoteIdentifier(name)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	return db.exec.Execute(ctx, fmt.Sprintf("ATTACH DATABASE %s AS %s", quoteLiteral(file), schema))
}

// Detach detaches the schema attached under name.
func (db *Database) Detach(ctx context.Context, name string) error {
	schema, err := quoteIdentifier(name)
	if err != nil {
		return fmt.Errorf("detach: %w", err)
	}
	return db.exec.Execute(ctx, "DETACH DATABASE "+schema)
}

// Databases returns the schema names of the main and attached databases
// in sequence order.
func (db *Database) Databases(ctx context.Context) ([]string, error) {
	var names []string
	_, err := db.exec.Query(ctx, "PRAGMA database_list", stmt.RowFunc(func(_ int, r *stmt.Row) error {
		names = append(names, r.Text(1))
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return names, nil
}
