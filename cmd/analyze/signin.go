package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/listing-analyzer/internal/infrastructure/auth"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/resilience"
)

var signInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with email and password and print the session tokens",
	Long: `Signs in against the hosted auth service (AUTH_URL, AUTH_ANON_KEY).

The printed exports can be evaluated by the shell so later commands pick
up the session:

  eval "$(listing-analyzer signin --email me@example.com --password secret --export)"`,
	RunE: runSignIn,
}

func init() {
	f := signInCmd.Flags()
	f.String("email", "", "account email")
	f.String("password", "", "account password")
	f.Bool("export", false, "print shell export statements only")
	rootCmd.AddCommand(signInCmd)
	rootCmd.AddCommand(signOutCmd)
}

var signOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Revoke the current session on the hosted auth service",
	RunE:  runSignOut,
}

func runSignIn(cmd *cobra.Command, _ []string) error {
	if cfg.AuthURL == "" {
		return errors.New("AUTH_URL is not configured")
	}
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	export, _ := cmd.Flags().GetBool("export")

	session, err := newAuthClient().SignIn(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	out := cmd.OutOrStdout()
	if export {
		_, _ = fmt.Fprintf(out, "export LISTING_ACCESS_TOKEN=%q\n", session.AccessToken)
		_, _ = fmt.Fprintf(out, "export LISTING_REFRESH_TOKEN=%q\n", session.RefreshToken)
		return nil
	}
	printSuccess(out, "Signed in as %s", session.Email)
	if !session.ExpiresAt.IsZero() {
		printInfo(out, "Token expires %s", session.ExpiresAt.Local().Format(time.RFC1123))
	}
	_, _ = fmt.Fprintf(out, "LISTING_ACCESS_TOKEN=%s\nLISTING_REFRESH_TOKEN=%s\n", session.AccessToken, session.RefreshToken)
	return nil
}

func runSignOut(cmd *cobra.Command, _ []string) error {
	if cfg.AuthURL == "" {
		return errors.New("AUTH_URL is not configured")
	}
	session, err := sessionFromFlags(cmd)
	if err != nil {
		return err
	}
	if err := newAuthClient().SignOut(cmd.Context(), session); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	printSuccess(cmd.OutOrStdout(), "Signed out")
	return nil
}

func newAuthClient() *auth.GoTrueClient {
	return auth.NewGoTrueClient(cfg.AuthURL, cfg.AuthAnonKey, "", resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1}))
}
