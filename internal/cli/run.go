package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/choretrack/choretrack/internal/config"
	"github.com/choretrack/choretrack/internal/engine"
	"github.com/choretrack/choretrack/internal/entities"
	"github.com/choretrack/choretrack/internal/logging"
	"github.com/choretrack/choretrack/internal/server"
	"github.com/choretrack/choretrack/internal/state"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the chore tracking daemon",
	Long: `Loads .choretrack/config.yaml from the current directory, restores
persisted chore state, and runs the evaluation loop and HTTP server until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.LoadConfig(cwd)
	if err != nil {
		return err
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	store := state.NewStore(cwd)
	if err := store.Load(); err != nil {
		return err
	}

	world := entities.NewRegistry(entities.SystemClock{})
	coord := engine.New(world, store, engine.Options{
		TickInterval: time.Duration(cfg.Engine.TickSeconds) * time.Second,
		SaveInterval: time.Duration(cfg.Engine.SaveIntervalSeconds) * time.Second,
	})

	for _, cc := range cfg.Chores {
		if err := coord.Register(cc); err != nil {
			return err
		}
		logging.Info("registered chore", "chore", cc.ID)
	}

	serverCfg := cfg.Server
	if serverCfg == nil {
		serverCfg = config.DefaultServerConfig()
	}
	srv, err := server.NewServer(serverCfg.Port, coord)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	coord.Start()
	defer coord.Stop()

	// Evaluate once at startup so restored chores catch up on anything
	// that happened while the process was down.
	coord.Tick(world.Now())

	if err := srv.Start(ctx); err != nil {
		return err
	}
	return nil
}
