package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"evmlogindexer/internal/chain"
	"evmlogindexer/internal/metrics"
	"evmlogindexer/internal/model"
	"evmlogindexer/internal/storage"
)

// ChainReader is the part of the blockchain client used by the crawler.
type ChainReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
}

// Crawler fetches the next unseen window of logs for one address per call.
type Crawler struct {
	chain       ChainReader
	checkpoints storage.CheckpointStore
	logs        storage.LogStore
	logger      *zap.Logger
}

// NewCrawler builds a Crawler with its dependencies.
func NewCrawler(chainReader ChainReader, checkpoints storage.CheckpointStore, logs storage.LogStore, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		chain:       chainReader,
		checkpoints: checkpoints,
		logs:        logs,
		logger:      logger.Named("crawler"),
	}
}

// RunOnce fetches and stores logs emitted by address since its checkpoint, then advances the checkpoint.
// A failure to advance the checkpoint is logged and not returned.
func (c *Crawler) RunOnce(ctx context.Context, chainID uint64, address string) (err error) {
	addr, err := chain.ParseAddress(address)
	if err != nil {
		return err
	}
	label := strings.ToLower(addr.Hex())
	defer func() {
		if err != nil {
			metrics.CrawlCycleInc(label, "error")
		}
	}()

	checkpoint, err := c.checkpoints.FindOrCreateCheckpoint(ctx, addr, chainID)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	head, err := c.chain.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	if checkpoint.LastSyncedBlockNumber == head {
		c.logger.Debug("address caught up", zap.String("address", label), zap.Uint64("block", head))
		metrics.CrawlCycleInc(label, "caught_up")
		return nil
	}

	window := ComputeWindow(checkpoint.LastSyncedBlockNumber, head)
	c.logger.Info("fetch logs",
		zap.String("address", label),
		zap.Uint64("from", window.From),
		zap.Uint64("to", window.To),
		zap.Uint64("head", head),
		zap.Bool("inverted", window.Inverted()),
	)

	query, err := chain.NewLogFilter(label, window.From, window.To)
	if err != nil {
		return err
	}
	logs, err := c.chain.FilterLogs(ctx, query)
	if err != nil {
		return fmt.Errorf("filter logs: %w", err)
	}

	if len(logs) > 0 {
		records := make([]model.LogRecord, 0, len(logs))
		for _, log := range logs {
			record, err := model.NewLogRecord(log)
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		if err := c.logs.CreateLogs(ctx, records); err != nil {
			return fmt.Errorf("store logs: %w", err)
		}
		c.logger.Info("stored logs", zap.String("address", label), zap.Int("logs", len(records)))
		metrics.LogsStoredInc(label, len(records))
	}

	if _, err := c.checkpoints.UpdateCheckpoint(ctx, addr, window.To); err != nil {
		c.logger.Error("update checkpoint failed",
			zap.String("address", label),
			zap.Uint64("block", window.To),
			zap.Error(err),
		)
	} else {
		metrics.LastSyncedBlockSet(label, window.To)
	}

	metrics.CrawlCycleInc(label, "synced")
	return nil
}
