package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// UserVersionResult is the output of the user-version command.
type UserVersionResult struct {
	UserVersion int `json:"user_version"`
}

func (r UserVersionResult) String() string {
	return strconv.Itoa(r.UserVersion)
}

// NewUserVersionCommand creates the user-version command.
func NewUserVersionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user-version [N]",
		Short: "Get or set the user_version pragma",
		Long: `Get or set the user_version pragma, the schema version slot in the
database header. N must fit in a signed 32-bit integer. Put a negative
N after "--" so it is not read as a flag.

Example:
  litedb user-version --db app.db
  litedb user-version --db app.db 7
  litedb user-version --db app.db -- -1`,
		Args:          checkArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserVersion(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runUserVersion(opts *RootOptions, args []string, cmd *cobra.Command) error {
	set := len(args) == 1
	var want int
	if set {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid user version", err)
		}
		want = v
	}

	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := cmd.Context()
	if set {
		if err := s.db.SetUserVersion(ctx, want); err != nil {
			return WrapExitError(ExitFailure, "setting user_version failed", err)
		}
	}

	v, err := s.db.UserVersion(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "reading user_version failed", err)
	}
	return s.out.Success(UserVersionResult{UserVersion: v})
}
