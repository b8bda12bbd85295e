package indexer

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// minInterval applies when a chain reports no block time.
const minInterval = time.Second

// CycleRunner runs one crawl cycle for an address.
type CycleRunner interface {
	RunOnce(ctx context.Context, chainID uint64, address string) error
}

// Scheduler runs one crawl loop per address, each limited to one cycle per interval.
type Scheduler struct {
	runner    CycleRunner
	chainID   uint64
	addresses []common.Address
	interval  time.Duration
	logger    *zap.Logger
}

// NewScheduler builds a Scheduler. interval is usually the chain block time.
func NewScheduler(runner CycleRunner, chainID uint64, addresses []common.Address, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = minInterval
	}
	return &Scheduler{
		runner:    runner,
		chainID:   chainID,
		addresses: addresses,
		interval:  interval,
		logger:    logger.Named("scheduler"),
	}
}

// Run blocks until ctx is cancelled. Cycle failures are logged and never stop a loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting crawl loops",
		zap.Uint64("chain_id", s.chainID),
		zap.Int("addresses", len(s.addresses)),
		zap.Duration("interval", s.interval),
	)

	var g errgroup.Group
	for _, address := range s.addresses {
		label := strings.ToLower(address.Hex())
		g.Go(func() error {
			s.loop(ctx, label)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, address string) {
	// burst 1 so the first cycle runs immediately
	limiter := rate.NewLimiter(rate.Every(s.interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			// Wait fails early when the next token is past the deadline
			<-ctx.Done()
			s.logger.Debug("crawl loop stopped", zap.String("address", address))
			return
		}
		if err := s.runner.RunOnce(ctx, s.chainID, address); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("crawl cycle failed", zap.String("address", address), zap.Error(err))
		}
	}
}
