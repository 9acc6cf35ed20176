// Package stmt runs SQL statements on an engine connection.
//
// Three primitives cover everything the database layer needs:
//
//   - Execute runs one or more ';'-separated statements with no
//     parameters and no result rows.
//   - Query prepares exactly one statement and hands each result row to
//     a RowReader.
//   - Mutate prepares one statement once and then binds, steps and
//     resets it count times, letting a ParameterBinder fill the 1-based
//     parameters of each iteration.
//
// Every prepared statement is finalized exactly once on every exit path.
// A finalize failure is reported alongside, never instead of, the failure
// that ended the call.
//
// Row and Params are views over the statement owned by the executor.
// They are only valid for the duration of the callback they are passed
// to and must not be retained.
package stmt
