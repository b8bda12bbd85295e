package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evmlogindexer/internal/config"
	"evmlogindexer/internal/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadMigrate(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			applied, err := postgres.MigrateUp(cfg.Database.DSN)
			if err != nil {
				return err
			}
			logger.Info("migrations applied", zap.Int("count", applied))
			return nil
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Revert the last migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadMigrate(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			max := 1
			if all, _ := cmd.Flags().GetBool("all"); all {
				max = postgres.NoLimit
			}
			reverted, err := postgres.MigrateDown(cfg.Database.DSN, max)
			if err != nil {
				return err
			}
			logger.Info("migrations reverted", zap.Int("count", reverted))
			return nil
		},
	}
	downCmd.Flags().Bool("all", false, "revert every applied migration")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadMigrate(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			statuses, err := postgres.Status(cfg.Database.DSN)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, status := range statuses {
				state := "pending"
				if status.Applied {
					state = "applied"
				}
				fmt.Fprintf(out, "%-28s %s\n", status.ID, state)
			}
			return nil
		},
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd)
	return cmd
}

func loadMigrate(cmd *cobra.Command) (config.MigrateConfig, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMigrate(cfgFile, cmd.Flags())
	if err != nil {
		return config.MigrateConfig{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.MigrateConfig{}, nil, err
	}
	return cfg, logger, nil
}
