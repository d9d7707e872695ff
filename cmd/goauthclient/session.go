package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errNotLoggedIn = errors.New("not logged in")

// readSecret returns the flag value, or the first line of stdin when the
// flag was left empty.
func readSecret(cmd *cobra.Command, flag, prompt string) (string, error) {
	value, _ := cmd.Flags().GetString(flag)
	if value != "" {
		return value, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func resultErr(res goAuthClient.Result) error {
	if res.Success {
		return nil
	}
	return errors.New(res.Error)
}

func printIdentity(w io.Writer, u *goAuthClient.User) {
	fmt.Fprintf(w, "Logged in as %s <%s>\n", u.Name, u.Email)
}

func (a *app) loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, err := readSecret(cmd, "password", "Password: ")
			if err != nil {
				return err
			}

			store, err := a.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := resultErr(store.Login(cmd.Context(), goAuthClient.Credentials{Email: email, Password: password})); err != nil {
				return err
			}
			u, _ := store.Identity()
			printIdentity(cmd.OutOrStdout(), u)
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, err := readSecret(cmd, "password", "Password: ")
			if err != nil {
				return err
			}

			store, err := a.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			res := store.Register(cmd.Context(), goAuthClient.RegisterData{Name: name, Email: email, Password: password})
			if err := resultErr(res); err != nil {
				return err
			}
			u, _ := store.Identity()
			printIdentity(cmd.OutOrStdout(), u)
			return nil
		},
	}
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			store.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Restore the stored session and print the identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.session(cmd.Context(), true)
			if err != nil {
				return err
			}
			u, ok := store.Identity()
			if !ok {
				return errNotLoggedIn
			}

			output, _ := cmd.Flags().GetString("output")
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer enc.Close()
				return enc.Encode(u)
			case "text":
				fmt.Fprintf(cmd.OutOrStdout(), "id:    %s\nname:  %s\nemail: %s\nrole:  %s\n", u.ID, u.Name, u.Email, u.Role)
				return nil
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}
	cmd.Flags().StringP("output", "o", "text", "output format: text or yaml")
	return cmd
}

func (a *app) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-fetch the identity for the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.session(cmd.Context(), true)
			if err != nil {
				return err
			}
			if _, ok := store.Identity(); !ok {
				return errNotLoggedIn
			}
			if err := resultErr(store.RefreshUser(cmd.Context())); err != nil {
				return err
			}
			u, _ := store.Identity()
			printIdentity(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

func (a *app) forgotPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			store, err := a.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := resultErr(store.ForgotPassword(cmd.Context(), email)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "If that email is registered, a reset link is on its way")
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) resetPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password [reset-link]",
		Short: "Set a new password with a reset token or link",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, _ := cmd.Flags().GetString("token")
			if token == "" && len(args) == 1 {
				u, err := url.Parse(args[0])
				if err != nil {
					return fmt.Errorf("parse reset link: %w", err)
				}
				token, _ = goAuthClient.ResetTokenFromQuery(u.Query())
			}
			if token == "" {
				return errors.New("a reset token or link is required")
			}
			password, err := readSecret(cmd, "password", "New password: ")
			if err != nil {
				return err
			}

			store, err := a.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := resultErr(store.ResetPassword(cmd.Context(), token, password)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password updated, log in with the new password")
			return nil
		},
	}
	cmd.Flags().String("token", "", "reset token")
	cmd.Flags().String("password", "", "new password (read from stdin when empty)")
	return cmd
}
