package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/litedb/internal/config"
	"github.com/roach88/litedb/internal/logging"
	"github.com/roach88/litedb/internal/stmt"
	"github.com/roach88/litedb/internal/store"
)

// session is an open database plus the output settings of one command.
type session struct {
	db     *store.Database
	out    *OutputFormatter
	logger *slog.Logger
}

// openSession loads configuration, builds the logger and opens the
// database. --db overrides database.path, and --verbose raises the log
// level to debug. The caller closes the session.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}

	logOut := logging.Writer(cfg.Logging, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := logging.New(cfg.Logging, opts.Version, logOut)

	policy, err := stmt.ParseStepPolicy(cfg.Database.StepPolicy)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid step policy", err)
	}

	storeOpts := store.Options{
		Path:        cfg.Database.Path,
		BusyTimeout: cfg.Database.BusyTimeout,
		StepPolicy:  policy,
		Logger:      logger,
	}

	var db *store.Database
	if cfg.Database.Path == "" {
		db, err = store.OpenDefault(cmd.Context(), "", storeOpts)
	} else {
		db, err = store.Open(cmd.Context(), storeOpts)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &session{
		db: db,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
		logger: logger,
	}, nil
}

// close closes the database, logging rather than returning a failure so
// it never masks the command's own result.
func (s *session) close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing database", "path", s.db.Path(), "error", err)
	}
}
