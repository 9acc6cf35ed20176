// Package txguard serializes transaction regions on one connection.
//
// SQLite allows a single open transaction per connection. When several
// goroutines share a connection, Guard makes each Begin wait until the
// previous transaction has been committed or rolled back, so at most one
// goroutine is inside a begin..commit/rollback region at a time.
//
// Begin returns a *Tx that is consumed by its first successful Commit or
// Rollback, which is also the only point where the guard is released:
//
//	tx, err := guard.Begin(ctx, txguard.Deferred)
//	if err != nil {
//	    return err
//	}
//	if err := work(); err != nil {
//	    _ = tx.Rollback(ctx)
//	    return err
//	}
//	return tx.Commit(ctx)
//
// Plain statements outside a transaction are not serialized by the guard.
// Savepoints are ordinary statements and may be nested freely inside a
// transaction.
package txguard
