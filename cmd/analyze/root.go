package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/listing-analyzer/internal/config"
	"github.com/kirillkom/listing-analyzer/internal/core/domain"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/auth"
	"github.com/kirillkom/listing-analyzer/internal/observability/logging"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "listing-analyzer",
	Short:         "Analyze property listings from the terminal",
	Long:          "Runs streaming property analyses against the analysis backend, manages saved analyses and exports reports.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = cfg.LogLevel
		}
		slog.SetDefault(logging.New(os.Stderr, "listing-cli", level, "text"))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("token", "", "access token (default: $LISTING_ACCESS_TOKEN)")
	pf.String("refresh-token", "", "refresh token (default: $LISTING_REFRESH_TOKEN)")
	pf.String("log-level", "warn", "log level for diagnostics on stderr")
}

// sessionFromFlags builds the caller's session from flags or environment.
// Without a token the CLI runs as the development user.
func sessionFromFlags(cmd *cobra.Command) (domain.Session, error) {
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("LISTING_ACCESS_TOKEN")
	}
	refresh, _ := cmd.Flags().GetString("refresh-token")
	if refresh == "" {
		refresh = os.Getenv("LISTING_REFRESH_TOKEN")
	}
	return resolveSession(strings.TrimSpace(token), strings.TrimSpace(refresh))
}

func resolveSession(token, refresh string) (domain.Session, error) {
	if token == "" {
		return domain.Session{UserID: auth.DevUserID, AccessToken: "dev-token", RefreshToken: refresh}, nil
	}
	session, err := auth.SessionFromToken(token)
	if err != nil {
		return domain.Session{}, err
	}
	if session.UserID == "" {
		session.UserID = auth.DevUserID
	}
	session.RefreshToken = refresh
	return session, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, "%v", err)
		os.Exit(1)
	}
}
