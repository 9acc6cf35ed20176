package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/litedb/internal/txguard"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Tx   bool
	Mode string
}

// ExecResult is the output of the exec command.
type ExecResult struct {
	OK          bool `json:"ok"`
	Transaction bool `json:"transaction"`
}

func (r ExecResult) String() string {
	return "OK"
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <sql>",
		Short: "Execute one or more SQL statements",
		Long: `Execute one or more ';'-separated SQL statements.

Statements run in order. Without --tx a failing statement leaves the
effects of earlier ones in place; with --tx all of them are rolled back.

Example:
  litedb exec --db app.db "CREATE TABLE t(id INTEGER, name TEXT)"
  litedb exec --db app.db --tx "INSERT INTO t VALUES (1,'a'); INSERT INTO t VALUES (2,'b')"`,
		Args:          checkArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execSQL(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Tx, "tx", false, "run the statements inside one transaction")
	cmd.Flags().StringVar(&opts.Mode, "mode", "deferred", "transaction mode with --tx (deferred|immediate|exclusive)")

	return cmd
}

func execSQL(opts *ExecOptions, query string, cmd *cobra.Command) error {
	mode, err := txguard.ParseMode(opts.Mode)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --mode", err)
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := cmd.Context()
	if opts.Tx {
		s.out.VerboseLog("executing in %s transaction", mode)
		err = s.db.InTransactionMode(ctx, mode, func(*txguard.Tx) error {
			return s.db.Execute(ctx, query)
		})
	} else {
		err = s.db.Execute(ctx, query)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "exec failed", err)
	}

	return s.out.Success(ExecResult{OK: true, Transaction: opts.Tx})
}
