// Package store is the database facade: one SQLite connection with the
// statement primitives, transactions, savepoints and pragmas applications
// use.
//
// The facade composes three layers:
//   - engine: the native connection (open/close, busy timeout,
//     interrupt, autocommit flag, last error)
//   - stmt: execute / select / update with deterministic finalize
//   - txguard: one transaction region at a time across goroutines
//
// # Database Configuration
//
//   - read-write + create + full mutex (serialized mode)
//   - busy_timeout=60000 by default, configurable
//   - ":memory:" (the default path) opens a private in-memory database
//
// # Names in SQL
//
// Attach names and savepoint names are interpolated into SQL text, so
// they are checked first: a letter or underscore followed by letters,
// digits or underscores, after Unicode NFC normalization. Anything else
// is rejected with ErrInvalidIdentifier before it reaches SQLite.
//
// # Default Instance
//
// There is no package-level database. OpenDefault resolves the standard
// file location and the caller owns and passes the result along.
package store
