// Package cli implements authctl, a terminal front end for the demo auth flow.
// Each invocation is a fresh process: the session survives between commands
// through the configured storage, like a page reload.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"myconnectionsvr/authdemo/internal/app"
	"myconnectionsvr/authdemo/internal/audit"
	"myconnectionsvr/authdemo/internal/auth"
	"myconnectionsvr/authdemo/internal/config"
)

// CoreFactory builds the auth stack for one command run.
type CoreFactory func(ctx context.Context) (*app.Core, error)

// DefaultCoreFactory loads configuration from the environment. CLI runs log
// warnings only, to stderr.
func DefaultCoreFactory(stderr io.Writer) CoreFactory {
	return func(ctx context.Context) (*app.Core, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		return app.NewCore(ctx, cfg, logger)
	}
}

// NewRootCmd creates the authctl command tree.
func NewRootCmd(factory CoreFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Register, sign in and inspect the demo session",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRegisterCmd(factory))
	cmd.AddCommand(newLoginCmd(factory))
	cmd.AddCommand(newLogoutCmd(factory))
	cmd.AddCommand(newWhoamiCmd(factory))
	cmd.AddCommand(newDashboardCmd(factory))

	return cmd
}

// withCore opens the stack, runs fn and closes it again.
func withCore(cmd *cobra.Command, factory CoreFactory, fn func(ctx context.Context, core *app.Core) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	core, err := factory(ctx)
	if err != nil {
		return err
	}
	defer core.Close()
	return fn(ctx, core)
}

func record(core *app.Core, actor, action string, opErr error) {
	outcome, detail := audit.OutcomeOf(opErr)
	_ = core.Audit.Record(audit.Event{
		Actor:   actor,
		Action:  action,
		Outcome: outcome,
		Source:  "cli",
		Detail:  detail,
	})
}

// userFacing strips wrapping from errors users are meant to read.
func userFacing(err error) error {
	for _, target := range []error{auth.ErrInvalidCredentials, auth.ErrDuplicateEmail, auth.ErrNotAuthenticated} {
		if errors.Is(err, target) {
			return target
		}
	}
	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return err
}
