package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/users-admin/internal/config"
	"github.com/aanand-mishra/users-admin/internal/logger"
)

// version is injected at build time.
var version = "dev"

var (
	configPath string

	// Set by rootCmd before any subcommand runs.
	cfg       *config.Config
	appLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "users-admin",
	Short: "Browse and edit the users of a remote users service",
	Long: `users-admin manages the users collection of a remote backend.

"serve" runs the browser admin screen; list, create, update and delete
perform the same actions from the terminal.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("cannot load config: %w", err)
		}
		l, err := logger.New(c.Env, c.LogLevel)
		if err != nil {
			return err
		}
		cfg, appLogger = c, l
		slog.SetDefault(l)
		return nil
	},
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config file (default: $CONFIG_PATH)")
}
