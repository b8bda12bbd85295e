package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"evmlogindexer/internal/contracts"
	"evmlogindexer/internal/metrics"
	"evmlogindexer/internal/model"
	"evmlogindexer/internal/storage"
)

// DefaultConcurrency is the number of rows dispatched at once.
const DefaultConcurrency = 10

// Status tells whether a batch found pending rows.
type Status string

const (
	NoLogsFound    Status = "no_logs_found"
	BatchProcessed Status = "batch_processed"
)

// RowError is a row left pending by a failed dispatch.
type RowError struct {
	ID  int64
	Err error
}

// BatchResult summarises one ProcessLogs call.
type BatchResult struct {
	Status    Status
	Total     int
	Processed int
	// Errors is ordered by row id.
	Errors []RowError
}

// Resolver returns the handler for logs emitted at address.
type Resolver interface {
	GetProcessor(address common.Address) (contracts.Handler, error)
}

// Config holds the engine settings.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
	Concurrency  int
}

// Engine drains pending log rows through their contract handlers.
type Engine struct {
	cfg      Config
	logs     storage.LogStore
	resolver Resolver
	logger   *zap.Logger
}

// New builds an Engine. Zero config values fall back to defaults.
func New(cfg Config, logs storage.LogStore, resolver Resolver, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Engine{
		cfg:      cfg,
		logs:     logs,
		resolver: resolver,
		logger:   logger.Named("engine"),
	}
}

// ProcessLogs dispatches up to BatchSize pending rows. A row is deleted only after its
// handler succeeds; a failing row stays pending and is reported in the result.
func (e *Engine) ProcessLogs(ctx context.Context) (BatchResult, error) {
	records, err := e.logs.ListLogs(ctx, e.cfg.BatchSize)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list logs: %w", err)
	}
	if len(records) == 0 {
		return BatchResult{Status: NoLogsFound}, nil
	}

	start := time.Now()
	e.logger.Info("processing batch", zap.Int("rows", len(records)))

	var (
		mu        sync.Mutex
		processed int
		failures  []RowError
	)

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for _, record := range records {
		g.Go(func() error {
			if err := e.dispatch(ctx, record); err != nil {
				e.logger.Warn("row failed", zap.Int64("id", record.ID), zap.Error(err))
				mu.Lock()
				failures = append(failures, RowError{ID: record.ID, Err: err})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			processed++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].ID < failures[j].ID })

	elapsed := time.Since(start)
	metrics.DispatchedRowsInc(processed, len(failures))
	metrics.BatchDuration(elapsed)
	e.logger.Info("batch complete",
		zap.Int("total", len(records)),
		zap.Int("processed", processed),
		zap.Int("failed", len(failures)),
		zap.Duration("elapsed", elapsed),
	)

	return BatchResult{
		Status:    BatchProcessed,
		Total:     len(records),
		Processed: processed,
		Errors:    failures,
	}, nil
}

func (e *Engine) dispatch(ctx context.Context, record model.LogRecord) error {
	handler, err := e.resolver.GetProcessor(record.Address)
	if err != nil {
		return err
	}
	if err := handler.Process(ctx, record); err != nil {
		return err
	}
	if err := e.logs.DeleteLog(ctx, record.ID); err != nil {
		return fmt.Errorf("delete log %d: %w", record.ID, err)
	}
	return nil
}
