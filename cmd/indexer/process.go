package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evmlogindexer/internal/config"
	"evmlogindexer/internal/contracts"
	"evmlogindexer/internal/descriptor"
	"evmlogindexer/internal/engine"
	"evmlogindexer/internal/storage/postgres"
)

func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Decode and dispatch pending logs to their contract handlers",
		RunE:  runProcess,
	}

	cmd.Flags().Uint64("chain-id", 1, "chain id recorded with discovered pools")
	cmd.Flags().String("poll-interval", "5s", "idle sleep between checks (duration or seconds)")
	cmd.Flags().Int("batch-size", 100, "pending rows per batch")
	cmd.Flags().String("artifacts-path", "./artifacts", "directory of <kind>.json contract descriptors")
	cmd.Flags().StringSlice("contracts", nil, "contract mappings as kind:address (comma-separated)")
	cmd.Flags().String("metrics-addr", "", "metrics listen address, empty disables")

	return cmd
}

func runProcess(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadProcessor(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	known := contracts.Kinds()
	for address, kind := range cfg.Contracts {
		if !slices.Contains(known, kind) {
			logger.Warn("no handler for contract kind, its logs will stay pending",
				zap.String("address", address),
				zap.String("kind", kind),
			)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	stopMetrics := startMetrics(ctx, cfg.MetricsAddr, logger)
	defer stopMetrics()

	registry := contracts.NewRegistry(cfg.Contracts, descriptor.NewLoader(cfg.ArtifactsPath), contracts.Dependencies{
		ChainID: cfg.ChainID,
		Pools:   store,
		Logger:  logger,
	})

	processor := engine.New(engine.Config{
		BatchSize:    cfg.BatchSize,
		PollInterval: cfg.PollInterval,
	}, store, registry, logger)

	logger.Info("processor start",
		zap.Int("contracts", len(cfg.Contracts)),
		zap.String("artifacts_path", cfg.ArtifactsPath),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Int("batch_size", cfg.BatchSize),
	)

	return ignoreShutdown(processor.Run(ctx))
}
