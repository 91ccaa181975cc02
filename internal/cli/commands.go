package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"myconnectionsvr/authdemo/internal/app"
	"myconnectionsvr/authdemo/internal/audit"
	"myconnectionsvr/authdemo/internal/auth"
)

type credentialFlags struct {
	username string
	email    string
	password string
}

func newRegisterCmd(factory CoreFactory) *cobra.Command {
	f := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			flags := cmd.Flags()
			username, err := orPrompt(f.username, flags.Changed("username"), p.text, "Username")
			if err != nil {
				return err
			}
			email, err := orPrompt(f.email, flags.Changed("email"), p.text, "Email")
			if err != nil {
				return err
			}
			password, err := orPrompt(f.password, flags.Changed("password"), p.password, "Password")
			if err != nil {
				return err
			}

			return withCore(cmd, factory, func(ctx context.Context, core *app.Core) error {
				err := core.Auth.Register(ctx, username, email, password)
				record(core, email, audit.ActionRegister, err)
				if err != nil {
					return userFacing(err)
				}
				u, _ := core.Auth.User()
				fmt.Fprintf(cmd.OutOrStdout(), "Registered and signed in as %s <%s>\n", u.Username, u.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.username, "username", "", "display name")
	cmd.Flags().StringVar(&f.email, "email", "", "account email")
	cmd.Flags().StringVar(&f.password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newLoginCmd(factory CoreFactory) *cobra.Command {
	f := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			flags := cmd.Flags()
			email, err := orPrompt(f.email, flags.Changed("email"), p.text, "Email")
			if err != nil {
				return err
			}
			password, err := orPrompt(f.password, flags.Changed("password"), p.password, "Password")
			if err != nil {
				return err
			}

			return withCore(cmd, factory, func(ctx context.Context, core *app.Core) error {
				err := core.Auth.Login(ctx, email, password)
				record(core, email, audit.ActionLogin, err)
				if err != nil {
					return userFacing(err)
				}
				u, _ := core.Auth.User()
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", u.Username, u.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.email, "email", "", "account email")
	cmd.Flags().StringVar(&f.password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(factory CoreFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, factory, func(ctx context.Context, core *app.Core) error {
				u, _ := core.Auth.User()
				core.Auth.Logout(ctx)
				record(core, u.Email, audit.ActionLogout, nil)
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func newWhoamiCmd(factory CoreFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, factory, func(_ context.Context, core *app.Core) error {
				u, ok := core.Auth.User()
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (id %s)\n", u.Username, u.Email, u.ID)
				return nil
			})
		},
	}
}

func newDashboardCmd(factory CoreFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Render the dashboard for the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, factory, func(_ context.Context, core *app.Core) error {
				d, err := core.Auth.Dashboard()
				if err != nil {
					return userFacing(err)
				}
				renderDashboard(cmd.OutOrStdout(), d)
				return nil
			})
		},
	}
}

func renderDashboard(w io.Writer, d auth.Dashboard) {
	fmt.Fprintf(w, "== %s ==\n\n", d.Brand)
	fmt.Fprintln(w, d.Welcome)
	fmt.Fprintln(w, d.Message)
	fmt.Fprintln(w)
	for _, c := range d.Cards {
		fmt.Fprintf(w, "%s %-12s %s [%s]\n", c.Icon, c.Title, c.Description, c.Action)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Information")
	fmt.Fprintln(w, strings.Repeat("-", 19))
	fmt.Fprintf(w, "Username: %s\n", d.Account.Username)
	fmt.Fprintf(w, "Email:    %s\n", d.Account.Email)
	fmt.Fprintf(w, "User ID:  %s\n", d.Account.UserID)
	fmt.Fprintf(w, "Status:   %s\n", d.Account.Status)
}
