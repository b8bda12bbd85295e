package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"evmlogindexer/internal/metrics"
)

// Run drains pending rows until ctx is cancelled. It sleeps PollInterval only when nothing
// is pending or the count fails; after a batch it re-checks at once.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("starting processor",
		zap.Int("batch_size", e.cfg.BatchSize),
		zap.Duration("poll_interval", e.cfg.PollInterval),
		zap.Int("concurrency", e.cfg.Concurrency),
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		count, err := e.logs.CountLogs(ctx)
		if err != nil {
			e.logger.Error("count pending logs failed", zap.Error(err))
			if err := sleep(ctx, e.cfg.PollInterval); err != nil {
				return err
			}
			continue
		}
		metrics.PendingRowsSet(count)

		if count == 0 {
			e.logger.Debug("no pending logs", zap.Duration("sleep", e.cfg.PollInterval))
			if err := sleep(ctx, e.cfg.PollInterval); err != nil {
				return err
			}
			continue
		}

		// failed rows stay pending and are listed again on the next pass
		if _, err := e.ProcessLogs(ctx); err != nil {
			e.logger.Error("process logs failed", zap.Error(err))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
