package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/assertify/internal/auth"
	"github.com/sadopc/assertify/internal/migration"
	"github.com/sadopc/assertify/internal/session"
	"github.com/sadopc/assertify/internal/syncer"
)

func (c *cli) newLoginCmd() *cobra.Command {
	var (
		token    string
		password bool
		username string
		browser  bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and move local history to your account",
		Long: `Sign in to the identity provider. History and collections recorded as a
guest on this machine are moved to your account.

  --browser   authorization code flow with PKCE in the system browser
  --password  password grant; the password is read from stdin
  --token     use an existing bearer token (never refreshed)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, on := range []bool{token != "", password, browser} {
				if on {
					modes++
				}
			}
			if modes != 1 {
				return errors.New("choose exactly one of --token, --password or --browser")
			}
			if password && username == "" {
				return errors.New("--password needs --username")
			}

			env, err := c.open(false)
			if err != nil {
				return err
			}
			defer env.Close()
			env.settle()

			ctx := cmd.Context()
			switch {
			case token != "":
				_, err = env.provider.LoginToken(token)
			case password:
				var secret string
				if secret, err = readSecret(cmd.InOrStdin()); err == nil {
					_, err = env.provider.LoginPassword(ctx, username, secret)
				}
			default:
				fmt.Fprintln(cmd.ErrOrStderr(), "Opening the browser to sign in...")
				_, err = env.provider.LoginBrowser(ctx, auth.OpenBrowser)
			}
			if err != nil {
				return err
			}

			snap := env.settle()
			if snap.Identity.State != session.Authenticated {
				return errors.New("signed in, but the credential could not be verified; see the log for details")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signed in as %s\n", describe(snap.Identity))
			if r := snap.Migration; r != nil {
				printMigration(out, *r)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&token, "token", "", "bearer token to sign in with")
	f.BoolVar(&password, "password", false, "sign in with a username and a password read from stdin")
	f.StringVarP(&username, "username", "u", "", "username for --password")
	f.BoolVar(&browser, "browser", false, "sign in through the system browser")
	return cmd
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; later requests are recorded on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(false)
			if err != nil {
				return err
			}
			defer env.Close()
			if env.settle().Identity.State != session.Authenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			if err := env.provider.SignOut(); err != nil {
				return err
			}
			env.settle()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (c *cli) newGuestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Continue without an account; history is kept on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(false)
			if err != nil {
				return err
			}
			defer env.Close()

			env.tracker.ChooseGuest()
			snap := env.settle()
			if snap.Identity.State == session.Authenticated {
				fmt.Fprintf(cmd.OutOrStdout(), "Already signed in as %s; run 'assertify logout' first.\n", describe(snap.Identity))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Continuing as guest. History is kept on this machine.")
			return nil
		},
	}
}

func (c *cli) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current identity and where its data lives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(false)
			if err != nil {
				return err
			}
			defer env.Close()

			snap := env.settle()
			w := table(cmd.OutOrStdout())
			fmt.Fprintf(w, "identity\t%s\n", describe(snap.Identity))
			fmt.Fprintf(w, "storage\t%s\n", storage(snap, env.cfg.BackendURL, env.cfg.LocalStorePath()))
			fmt.Fprintf(w, "history\t%d\n", len(snap.History))
			fmt.Fprintf(w, "collections\t%d\n", len(snap.Collections))
			return w.Flush()
		},
	}
}

func describe(id session.Identity) string {
	if id.State == session.Authenticated && id.Principal != nil && id.Principal.Email != "" {
		return fmt.Sprintf("%s <%s>", id.Principal.ID, id.Principal.Email)
	}
	if id.State == session.Authenticated {
		return id.UserID()
	}
	return id.State.String()
}

func storage(snap syncer.Snapshot, backend, localPath string) string {
	switch snap.Identity.State {
	case session.Authenticated:
		return backend
	case session.Guest:
		return localPath
	}
	return "none until you sign in or run 'assertify guest'"
}

func printMigration(w io.Writer, r migration.Report) {
	if r.Skipped {
		return
	}
	if r.HistoryMigrated+r.HistoryFailed+r.CollectionsMigrated+r.CollectionsFailed == 0 {
		return
	}
	fmt.Fprintf(w, "Moved %d requests and %d collections to your account", r.HistoryMigrated, r.CollectionsMigrated)
	if failed := r.HistoryFailed + r.CollectionsFailed; failed > 0 {
		fmt.Fprintf(w, "; %d could not be moved and stay on this machine for the next sign-in", failed)
	}
	fmt.Fprintln(w, ".")
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password on stdin")
	}
	return line, nil
}
