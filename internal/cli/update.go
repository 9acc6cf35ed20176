package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/litedb/internal/stmt"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Rows     string
	Count    int
	Continue bool
}

// UpdateResult is the output of the update command.
type UpdateResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

func (r UpdateResult) String() string {
	return fmt.Sprintf("attempted=%d succeeded=%d failed=%d", r.Attempted, r.Succeeded, r.Failed)
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <sql>",
		Short: "Run a parameterized statement once per row of values",
		Long: `Prepare a statement once and run it once per row of values.

--rows is a JSON array of arrays; row i binds its values to positions
1..n of iteration i. Without --rows the statement runs --count times with
every parameter NULL.

By default the first failing iteration ends the run. --continue records
the failure and goes on with the next row.

Example:
  litedb update --db app.db "INSERT INTO t(id, name) VALUES (?, ?)" --rows '[[1,"a"],[2,"b"]]'`,
		Args:          checkArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Rows, "rows", "", "JSON array of parameter rows")
	cmd.Flags().IntVar(&opts.Count, "count", 1, "iterations when --rows is not given")
	cmd.Flags().BoolVar(&opts.Continue, "continue", false, "keep going after a failing iteration")

	return cmd
}

func runUpdate(opts *UpdateOptions, query string, cmd *cobra.Command) error {
	count := opts.Count
	var binder stmt.ParameterBinder
	if opts.Rows != "" {
		if cmd.Flags().Changed("count") {
			return NewExitError(ExitCommandError, "--rows and --count are mutually exclusive")
		}
		rows, err := parseRows(opts.Rows)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --rows JSON", err)
		}
		count = len(rows)
		binder = rowsBinder(rows)
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.close()

	policy := s.db.StepPolicy()
	if opts.Continue {
		policy = stmt.ContinueOnError
	}
	s.out.VerboseLog("running %d iterations, policy %s", count, policy)

	res, err := s.db.UpdatePolicy(cmd.Context(), query, count, binder, policy)
	if err != nil {
		return WrapExitError(ExitFailure,
			fmt.Sprintf("update failed (%s)", UpdateResult(res)), err)
	}

	return s.out.Success(UpdateResult(res))
}

// parseRows decodes a JSON array of arrays, keeping numbers exact.
func parseRows(s string) ([][]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var rows [][]any
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// rowsBinder binds rows[i] positionally for iteration i.
func rowsBinder(rows [][]any) stmt.ParameterBinder {
	return stmt.BindFunc(func(i int, p *stmt.Params) error {
		for j, v := range rows[i] {
			if err := bindJSON(p, j+1, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func bindJSON(p *stmt.Params, pos int, v any) error {
	n, ok := v.(json.Number)
	if !ok {
		return p.Bind(pos, v)
	}
	if i, err := n.Int64(); err == nil {
		return p.BindInt64(pos, i)
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("parameter %d: %w", pos, err)
	}
	return p.BindFloat64(pos, f)
}
