package app

import (
	"fmt"

	"github.com/kroma-labs/smoelen/auth"
	"github.com/spf13/cobra"
)

func newLoginCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in through the browser",
		Long: `Log in with the OAuth2 authorization code flow.

The authorization URL is printed; open it in a browser. The provider redirects
back to SMOELEN_REDIRECT_URL, where a short-lived listener picks up the code.
A stored token that is still valid is reused.`,
		Args: cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			d, err := auth.Login(cmd.Context(), s.bootstrapper(), auth.PrintOpener(cmd.ErrOrStderr()))
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			exp, err := auth.TokenExpiry(d.Token)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in until %s.\n", exp.Local().Format("2006-01-02 15:04"))
			return nil
		}),
	}
}

func newLogoutCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			if err := auth.Logout(cmd.Context(), s.store); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		}),
	}
}

func newWhoamiCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			client, err := s.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := client.Users.GetUser(cmd.Context())
			if err != nil {
				return wrap("get user", err)
			}
			user, err := resp.Result()
			if err != nil {
				return wrap("get user", err)
			}

			role := "member"
			if user.Admin {
				role = "admin"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.ID, role)
			return nil
		}),
	}
}
