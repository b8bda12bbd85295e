package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evmlogindexer/internal/chain"
	"evmlogindexer/internal/config"
	"evmlogindexer/internal/indexer"
	"evmlogindexer/internal/storage"
	"evmlogindexer/internal/storage/postgres"
)

func newListenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Crawl logs of the monitored addresses into the pending log table",
		RunE:  runListen,
	}

	cmd.Flags().Uint64("chain-id", 0, "chain id, must match the RPC endpoint")
	cmd.Flags().String("rpc", "", "RPC URL")
	cmd.Flags().StringSlice("contract-addresses", nil, "monitored addresses (comma-separated)")
	cmd.Flags().String("metrics-addr", "", "metrics listen address, empty disables")

	return cmd
}

func runListen(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadListener(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	addresses, err := indexer.ParseAddresses(cfg.ContractAddresses)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	remoteID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !remoteID.IsUint64() || remoteID.Uint64() != cfg.ChainID {
		return fmt.Errorf("%w: rpc reports %s, configured %d", config.ErrInvalidChainID, remoteID, cfg.ChainID)
	}

	chainMeta, err := store.FetchChain(ctx, cfg.ChainID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("chain %d is not registered: %w", cfg.ChainID, err)
		}
		return fmt.Errorf("load chain: %w", err)
	}

	stopMetrics := startMetrics(ctx, cfg.MetricsAddr, logger)
	defer stopMetrics()

	crawler := indexer.NewCrawler(chainClient, store, store, logger)
	scheduler := indexer.NewScheduler(crawler, chainMeta.ID, addresses, chainMeta.PollInterval(), logger)

	logger.Info("listener start",
		zap.Uint64("chain_id", chainMeta.ID),
		zap.String("chain", chainMeta.Name),
		zap.Uint32("block_time", chainMeta.BlockTime),
		zap.Int("addresses", len(addresses)),
	)

	return ignoreShutdown(scheduler.Run(ctx))
}
