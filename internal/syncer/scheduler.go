package syncer

import (
	"context"
	"time"

	"github.com/openswap-labs/swapsync/internal/logger"
	"github.com/openswap-labs/swapsync/pkg/config"
	"golang.org/x/sync/errgroup"
)

// Scheduler runs the per-chain sync loops. Chains poll at their configured
// interval, sequentially by default or each on its own goroutine when
// concurrent_chains is set.
type Scheduler struct {
	cfg     *config.Config
	syncers []*Syncer
	log     *logger.Logger
}

// NewScheduler creates a scheduler over the given syncers.
func NewScheduler(cfg *config.Config, syncers []*Syncer, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		syncers: syncers,
		log:     log,
	}
}

// Run blocks until the context is cancelled. Cycle failures are logged and
// retried on the next poll; only cancellation stops the loops.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.Sync.ConcurrentChains {
		return s.runConcurrent(ctx)
	}

	return s.runSequential(ctx)
}

func (s *Scheduler) runConcurrent(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	for _, sync := range s.syncers {
		sync := sync
		group.Go(func() error {
			interval := s.cfg.PollInterval(s.chainConfig(sync.ChainID()))

			for {
				s.runCycle(ctx, sync)

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(interval):
				}
			}
		})
	}

	return group.Wait()
}

func (s *Scheduler) runSequential(ctx context.Context) error {
	nextDue := make(map[uint64]time.Time, len(s.syncers))

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		now := time.Now()
		wakeAt := now.Add(s.cfg.Sync.DefaultPollInterval.Duration)

		for _, sync := range s.syncers {
			chainID := sync.ChainID()

			if due, ok := nextDue[chainID]; !ok || !now.Before(due) {
				s.runCycle(ctx, sync)

				nextDue[chainID] = time.Now().Add(s.cfg.PollInterval(s.chainConfig(chainID)))
			}

			if due := nextDue[chainID]; due.Before(wakeAt) {
				wakeAt = due
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Until(wakeAt)):
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context, sync *Syncer) {
	if err := sync.SyncCycle(ctx); err != nil && ctx.Err() == nil {
		s.log.Errorf("sync cycle failed for chain %d: %v", sync.ChainID(), err)
	}
}

func (s *Scheduler) chainConfig(chainID uint64) *config.ChainConfig {
	for i := range s.cfg.Chains {
		if s.cfg.Chains[i].ChainID == chainID {
			return &s.cfg.Chains[i]
		}
	}

	return nil
}
