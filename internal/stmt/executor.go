package stmt

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/litedb/internal/engine"
)

var (
	// ErrStop may be returned by a RowReader to end a query early. Query
	// then returns without error.
	ErrStop = errors.New("stop iteration")

	// ErrUnexpectedRow is reported when a Mutate step produces a result
	// row instead of completing.
	ErrUnexpectedRow = errors.New("statement returned a row, expected completion")
)

// StepPolicy decides what Mutate does after an iteration fails.
type StepPolicy int

const (
	// StopOnError ends the loop at the first failing iteration.
	StopOnError StepPolicy = iota

	// ContinueOnError records the failure and moves on to the next
	// iteration. The loop still ends when the statement cannot be reset
	// or the context is done.
	ContinueOnError
)

// String returns the policy name used in configuration files.
func (p StepPolicy) String() string {
	switch p {
	case StopOnError:
		return "stop"
	case ContinueOnError:
		return "continue"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseStepPolicy converts "stop" or "continue" to a StepPolicy.
// An empty string selects StopOnError.
func ParseStepPolicy(s string) (StepPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stop":
		return StopOnError, nil
	case "continue":
		return ContinueOnError, nil
	default:
		return StopOnError, fmt.Errorf("unknown step policy %q: must be stop or continue", s)
	}
}

// MutateResult summarizes a Mutate call.
type MutateResult struct {
	// Attempted is the number of iterations that were started.
	Attempted int
	// Succeeded is the number of iterations whose step completed.
	Succeeded int
	// Failed is the number of iterations that failed to bind or step.
	Failed int
}

// Stats counts statement lifecycles on an executor.
type Stats struct {
	Prepared  uint64
	Finalized uint64
}

// Executor prepares, steps and finalizes statements on an engine.
//
// Thread Safety:
//   - Safe for concurrent use. Each call owns its prepared statement for
//     the duration of the call.
type Executor struct {
	eng    *engine.Engine
	policy StepPolicy
	logger *slog.Logger

	prepared  atomic.Uint64
	finalized atomic.Uint64
}

// Option configures an Executor.
type Option func(*Executor)

// WithStepPolicy sets the default Mutate failure policy.
func WithStepPolicy(p StepPolicy) Option {
	return func(x *Executor) {
		x.policy = p
	}
}

// WithLogger overrides the logger inherited from the engine.
func WithLogger(l *slog.Logger) Option {
	return func(x *Executor) {
		if l != nil {
			x.logger = l
		}
	}
}

// New creates an executor for eng.
func New(eng *engine.Engine, opts ...Option) *Executor {
	x := &Executor{
		eng:    eng,
		policy: StopOnError,
		logger: eng.Logger(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Policy returns the default Mutate failure policy.
func (x *Executor) Policy() StepPolicy {
	return x.policy
}

// Stats returns the number of statements prepared and finalized so far.
func (x *Executor) Stats() Stats {
	return Stats{
		Prepared:  x.prepared.Load(),
		Finalized: x.finalized.Load(),
	}
}

// Execute runs one or more ';'-separated statements.
//
// There is no rollback beyond what SQLite provides: when a later
// statement fails, the effects of earlier ones remain.
func (x *Executor) Execute(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return engine.Wrap(engine.KindPrepare, "exec", query, engine.ErrEmptySQL)
	}

	err := x.eng.Do(ctx, func(ctx context.Context, c engine.Conn) error {
		_, err := c.ExecContext(ctx, query, nil)
		return engine.Wrap(execKind(err), "exec", query, err)
	})
	if err != nil {
		x.logger.Warn("exec failed", "sql", query, "error", err)
	}
	return err
}

// Query prepares the first statement in query and passes each result
// row to r. Any statements after the first are not executed.
//
// It returns the number of rows handed to r. A nil r steps through the
// rows without reading them. No callback happens when preparation fails.
func (x *Executor) Query(ctx context.Context, query string, r RowReader) (int, error) {
	var n int
	err := x.eng.Do(ctx, func(ctx context.Context, c engine.Conn) (err error) {
		st, err := x.prepare(ctx, c, "query", query)
		if err != nil {
			return err
		}
		defer func() { err = x.finalize(st, "query", query, err) }()

		rows, err := st.QueryContext(ctx, nil)
		if err != nil {
			return engine.Wrap(engine.KindStep, "query", query, err)
		}
		defer func() {
			if cerr := rows.Close(); cerr != nil && err == nil {
				err = engine.Wrap(engine.KindReset, "query", query, cerr)
			}
		}()

		row := &Row{
			columns: rows.Columns(),
			values:  make([]driver.Value, len(rows.Columns())),
		}
		for {
			if err := rows.Next(row.values); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return engine.Wrap(engine.KindStep, "query", query, err)
			}
			index := n
			n++
			if r == nil {
				continue
			}
			if err := r.ReadRow(index, row); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return engine.Wrap(engine.KindRead, "query", query, err)
			}
		}
	})
	if err != nil {
		x.logger.Warn("query failed", "sql", query, "rows", n, "error", err)
	}
	return n, err
}

// Mutate prepares query once and runs it count times using the
// executor's default StepPolicy. See MutatePolicy.
func (x *Executor) Mutate(ctx context.Context, query string, count int, b ParameterBinder) (MutateResult, error) {
	return x.MutatePolicy(ctx, query, count, b, x.policy)
}

// MutatePolicy prepares query once, then for each of count iterations:
// clears all parameters to NULL, lets b bind them, steps the statement
// expecting completion and resets it for the next iteration. The
// statement is never re-prepared and is finalized exactly once.
//
// count <= 0 runs no iterations. A nil b steps with every parameter NULL.
// Failed iterations are joined into the returned error; policy decides
// whether the loop goes on after one.
func (x *Executor) MutatePolicy(ctx context.Context, query string, count int, b ParameterBinder, policy StepPolicy) (MutateResult, error) {
	var res MutateResult
	err := x.eng.Do(ctx, func(ctx context.Context, c engine.Conn) (err error) {
		st, err := x.prepare(ctx, c, "update", query)
		if err != nil {
			return err
		}
		defer func() { err = x.finalize(st, "update", query, err) }()

		params := newParams(st.NumInput())
		var failures []error
		for i := 0; i < count; i++ {
			if err := ctx.Err(); err != nil {
				failures = append(failures, engine.Wrap(engine.KindStep, "update", query, err))
				break
			}
			res.Attempted++

			params.clear()
			iterErr := x.bindParams(b, i, params, query)
			if iterErr == nil {
				iterErr = x.step(ctx, st, query, params.args())
			}
			if iterErr == nil {
				res.Succeeded++
				continue
			}

			res.Failed++
			failures = append(failures, fmt.Errorf("iteration %d: %w", i, iterErr))
			x.logger.Warn("update iteration failed", "sql", query, "iteration", i, "error", iterErr)
			if policy == StopOnError || engine.IsKind(iterErr, engine.KindReset) {
				break
			}
		}
		return errors.Join(failures...)
	})
	return res, err
}

func (x *Executor) bindParams(b ParameterBinder, index int, p *Params, query string) error {
	if b == nil {
		return nil
	}
	return engine.Wrap(engine.KindBind, "update", query, b.BindParams(index, p))
}

// step runs one completion step. Binding resets the statement first, and
// closing the rows resets it again so it can be stepped next iteration.
func (x *Executor) step(ctx context.Context, st engine.Stmt, query string, args []driver.NamedValue) error {
	rows, err := st.QueryContext(ctx, args)
	if err != nil {
		return engine.Wrap(engine.KindBind, "update", query, err)
	}

	dest := make([]driver.Value, len(rows.Columns()))
	stepErr := rows.Next(dest)
	resetErr := rows.Close()

	switch {
	case errors.Is(stepErr, io.EOF):
		return engine.Wrap(engine.KindReset, "update", query, resetErr)
	case stepErr == nil:
		return engine.Wrap(engine.KindStep, "update", query, ErrUnexpectedRow)
	default:
		// Resetting after a failed step repeats the step's error.
		if resetErr != nil {
			x.logger.Debug("reset after failed step", "sql", query, "error", resetErr)
		}
		return engine.Wrap(engine.KindStep, "update", query, stepErr)
	}
}

func (x *Executor) prepare(ctx context.Context, c engine.Conn, op, query string) (engine.Stmt, error) {
	if strings.TrimSpace(query) == "" {
		return nil, engine.Wrap(engine.KindPrepare, op, query, engine.ErrEmptySQL)
	}

	ds, err := c.PrepareContext(ctx, query)
	if err != nil {
		return nil, engine.Wrap(engine.KindPrepare, op, query, err)
	}
	st, ok := ds.(engine.Stmt)
	if !ok {
		ds.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, engine.Wrap(engine.KindPrepare, op, query, fmt.Errorf("unexpected statement %T", ds))
	}
	x.prepared.Add(1)
	return st, nil
}

// finalize releases st and merges a finalize failure after err.
func (x *Executor) finalize(st engine.Stmt, op, query string, err error) error {
	x.finalized.Add(1)
	cerr := st.Close()
	if cerr == nil {
		return err
	}
	cerr = engine.Wrap(engine.KindFinalize, op, query, cerr)
	x.logger.Warn("statement finalize failed", "op", op, "sql", query, "error", cerr)
	if err != nil {
		return errors.Join(err, cerr)
	}
	return cerr
}

// execKind separates compile errors from run-time ones for Execute,
// where prepare and step happen inside one driver call.
func execKind(err error) engine.Kind {
	if engine.Code(err) == sqlite3.ErrError {
		return engine.KindPrepare
	}
	return engine.KindStep
}
