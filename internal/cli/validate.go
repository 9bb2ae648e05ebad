package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/choretrack/choretrack/internal/chore"
	"github.com/choretrack/choretrack/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Loads .choretrack/config.yaml from the current directory and checks
both the file structure and every chore's detector configuration, without
starting the daemon.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.LoadConfig(cwd)
	if err != nil {
		return err
	}

	// Constructing each chore exercises the detector-level validation that
	// the structural checks in config can't see.
	for _, cc := range cfg.Chores {
		if _, err := chore.New(cc); err != nil {
			return fmt.Errorf("chore %s: %w", cc.ID, err)
		}
	}

	fmt.Printf("Configuration valid: %d chore(s)\n", len(cfg.Chores))
	return nil
}
