package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmsync/internal/auth"
	"github.com/nikbrunner/bmsync/internal/session"
)

func addLogin(topLevel *cobra.Command, ro *rootOptions) {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to use a remote backend",
		Long: `Sign in with an account from auth.accounts. The password is read from
stdin. The session is kept in auth.session_dir until it expires.`,
		Example: `
bm login --email me@example.com
echo "$BM_PASSWORD" | bm login --email me@example.com
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := ro.load()
			if err != nil {
				return err
			}
			provider, err := session.NewAuth(cfg, log)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			password, err := readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}

			user, err := provider.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email.")
	_ = cmd.MarkFlagRequired("email")

	topLevel.AddCommand(cmd)
}

func addLogout(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := ro.load()
			if err != nil {
				return err
			}
			provider, err := session.NewAuth(cfg, log)
			if err != nil {
				return err
			}
			user := provider.CurrentUser()
			if err := provider.SignOut(); err != nil {
				return err
			}
			if user != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "signed out %s\n", user.Email)
			}
			return nil
		},
	}

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := ro.load()
			if err != nil {
				return err
			}
			provider, err := session.NewAuth(cfg, log)
			if err != nil {
				return err
			}
			user, err := provider.Require()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.Email, user.ID)
			return nil
		},
	}

	topLevel.AddCommand(cmd, whoami)
}

func addHashPassword(topLevel *cobra.Command, _ *rootOptions) {
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print the bcrypt hash of a password read from stdin",
		Long:  "Print the bcrypt hash to use as password_hash in auth.accounts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			password, err := readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password given")
	}
	return line, nil
}
