package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/litedb/internal/store"
)

// IntResult is the output of the int command.
type IntResult struct {
	Value int64 `json:"value"`
}

func (r IntResult) String() string {
	return strconv.FormatInt(r.Value, 10)
}

// NewIntCommand creates the int command.
func NewIntCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "int <sql>",
		Short: "Print the first column of the first row as an integer",
		Long: `Print the first column of the first row as an integer.

Later rows are not read. A query without rows is a failure.

Example:
  litedb int --db app.db "SELECT count(*) FROM t"`,
		Args:          checkArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInt(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInt(opts *RootOptions, query string, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.close()

	v, err := s.db.IntQuery(cmd.Context(), query)
	if errors.Is(err, store.ErrNoRows) {
		return WrapExitError(ExitFailure, "int query returned nothing", err)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "int query failed", err)
	}

	return s.out.Success(IntResult{Value: v})
}
