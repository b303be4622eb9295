package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/config"
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/seed"
	"github.com/dyluth/warren/internal/tasks"
	"github.com/dyluth/warren/internal/users"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo users and tasks into the board",
	Long: `Load a set of demo users and tasks into the configured board.

Seeding is idempotent: existing users and tasks are left untouched, so it
is safe to run against a board that already has data.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return printer.Error(
			"Invalid configuration",
			err.Error(),
			[]string{"Check " + configPath + " against the documented format"},
		)
	}

	logger := newLogger(cfg)

	client, err := connectBoard(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	userSvc := users.NewService(client, []byte(cfg.Auth.SigningKey), time.Duration(cfg.Auth.TokenTTL))
	taskSvc := tasks.NewService(client, logger)

	printer.Step("Seeding board %q\n", client.BoardName())
	if err := seed.Apply(context.Background(), userSvc, taskSvc, client, logger); err != nil {
		return printer.Error("Seeding failed", err.Error(), nil)
	}

	printer.Success("Demo data loaded\n")
	return nil
}
