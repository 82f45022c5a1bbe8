// Package main implements the tabichan CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Podtech-AI/tabichan-go/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var (
	cfg    *config.Client
	logger *slog.Logger

	rootUser    string
	rootVerbose bool
)

var rootCmd = &cobra.Command{
	Use:          "tabichan",
	Short:        "Tabichan - trip planning from the command line",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// A missing .env is fine; the environment may be set directly.
		_ = godotenv.Load()

		var err error
		cfg, err = config.LoadClient()
		if err != nil {
			return err
		}
		if rootVerbose {
			cfg.Verbose = true
		}
		logger = newLogger(cfg.LogLevel, cmd.ErrOrStderr())
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootUser, "user", "u", "", "user id (defaults to TABICHAN_USER_ID)")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "log progress while waiting")
}

// newLogger builds the CLI's text logger. Unknown levels fall back to info.
func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// resolveUser returns the --user flag, falling back to the configured user.
func resolveUser() (string, error) {
	user := rootUser
	if user == "" && cfg != nil {
		user = cfg.UserID
	}
	if user == "" {
		return "", fmt.Errorf("user id is required: pass --user or set TABICHAN_USER_ID")
	}
	return user, nil
}

// parsePreferences turns repeated key=value flags into a map.
func parsePreferences(pairs []string) (map[string]any, error) {
	prefs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid preference %q: expected key=value", pair)
		}
		prefs[key] = strings.TrimSpace(value)
	}
	return prefs, nil
}
