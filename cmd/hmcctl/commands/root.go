// Package commands implements the hmcctl command tree.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath  string
	hmcHost     string
	hmcUser     string
	hmcPassword string
	verbose     bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hmcctl",
		Short: "hmcctl - IBM Power lifecycle automation through the HMC",
		Long: `hmcctl drives managed-system and VIOS lifecycle operations through a
Hardware Management Console. Every invocation reconciles towards the
requested state: it reads the current state first, skips the mutation when
nothing would change, applies exactly one mutating console call otherwise,
and polls until the system converges or the deadline expires.

Surfaces used:
  - The console's SSH command-line interface for state reads and mutations
  - The console's REST/XML interface for facts and performance monitoring

Every command prints its result as JSON on stdout. Exit codes: 0 on
success, 1 on a remote or convergence failure, 2 on a parameter
constraint violation.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&hmcHost, "host", "", "console hostname (overrides config)")
	rootCmd.PersistentFlags().StringVar(&hmcUser, "user", "", "console user (overrides config)")
	rootCmd.PersistentFlags().StringVar(&hmcPassword, "password", "", "console password (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newSystemCommand())
	rootCmd.AddCommand(newPCMCommand())
	rootCmd.AddCommand(newViosCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
