package cmd

import (
	"fmt"
	"strconv"

	"trackmeet/internal/platform/config"
	"trackmeet/internal/platform/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDatabase()
		if err != nil {
			return err
		}
		logger := config.NewLogger(firstNonEmpty(logLevel, cfg.LogLevel), firstNonEmpty(logFormat, cfg.LogFormat))
		if err := database.MigrateUp(cfg.DBDriver, cfg.DSN()); err != nil {
			return err
		}
		logger.Info().Str("driver", cfg.DBDriver).Msg("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back the given number of migrations (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}

		cfg, err := config.LoadDatabase()
		if err != nil {
			return err
		}
		logger := config.NewLogger(firstNonEmpty(logLevel, cfg.LogLevel), firstNonEmpty(logFormat, cfg.LogFormat))
		if err := database.MigrateDown(cfg.DBDriver, cfg.DSN(), steps); err != nil {
			return err
		}
		logger.Info().Str("driver", cfg.DBDriver).Int("steps", steps).Msg("migrations rolled back")
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}
