// Package cli provides the command-line interface for itchgrab.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/itchgrab/itchgrab/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	apiKey  string

	// Global config
	cfg        config.Config
	logCleanup func() error
)

// ExitError carries a process exit code through cobra's error return.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "itchgrab",
	Short: "Download your itch.io library",
	Long: `Itchgrab mirrors your purchased itch.io assets to local disk.

List everything you own, filter by author or title, and download in
parallel with optional archive extraction. Authentication uses an
itch.io API key (https://itch.io/user/settings/api-keys), read from
the --api-key flag or the ITCH_API_KEY environment variable.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, cleanup := config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)
		logCleanup = cleanup
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// resolveAPIKey returns the key to authenticate with: the --api-key flag
// wins over the environment and config file.
func resolveAPIKey() (string, error) {
	if apiKey != "" {
		return apiKey, nil
	}
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	return "", fmt.Errorf("no API key: pass --api-key or set ITCH_API_KEY")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&apiKey, "api-key", "k", "", "itch.io API key (overrides ITCH_API_KEY)")

	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(dlCmd)
}
