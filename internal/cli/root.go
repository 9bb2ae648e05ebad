// Package cli implements the choretrack command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "choretrack",
	Short: "Sensor-driven chore tracking daemon",
	Long: `Choretrack tracks recurring household tasks whose lifecycle is driven
by external sensor and clock events. Chores move through a five-state
lifecycle (inactive, pending, due, started, completed) based on configured
trigger and completion detectors, and reset automatically per their reset
policy.`,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("choretrack version {{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
