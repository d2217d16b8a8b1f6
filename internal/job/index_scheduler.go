// Package job provides background job schedulers.
package job

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"content-query-service/internal/app/service"
	"content-query-service/pkg/locker"
)

// Rebuilder rebuilds the search index.
type Rebuilder interface {
	Rebuild(ctx context.Context) service.IndexResult
}

// IndexScheduler periodically rebuilds the local search index. A lock keeps
// concurrent rebuilds of a shared on-disk index from overlapping.
type IndexScheduler struct {
	indexer  Rebuilder
	interval time.Duration
	timeout  time.Duration
	lockKey  string
	logger   *zap.Logger
	locker   locker.DistributedLocker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// IndexConfig holds index scheduler configuration.
type IndexConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	LockKey  string
}

// NewIndexScheduler creates a new IndexScheduler.
func NewIndexScheduler(
	indexer Rebuilder,
	cfg IndexConfig,
	logger *zap.Logger,
	locker locker.DistributedLocker,
) *IndexScheduler {
	key := cfg.LockKey
	if key == "" {
		key = "index:scheduler:lock"
	}
	return &IndexScheduler{
		indexer:  indexer,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		lockKey:  key,
		logger:   logger,
		locker:   locker,
	}
}

// Start begins the background rebuild job.
func (s *IndexScheduler) Start(runOnStartup bool) {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.logger.Info("starting index scheduler",
		zap.Duration("interval", s.interval),
		zap.Bool("run_on_startup", runOnStartup),
	)

	s.wg.Add(1)
	go s.run(runOnStartup)
}

// Stop gracefully stops the scheduler.
func (s *IndexScheduler) Stop() {
	s.logger.Info("stopping index scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("index scheduler stopped")
}

func (s *IndexScheduler) run(runOnStartup bool) {
	defer s.wg.Done()

	if runOnStartup {
		s.execute()
	}

	if s.interval <= 0 {
		<-s.ctx.Done()
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.execute()
		}
	}
}

// execute runs one rebuild under the lock. The lock is held for the
// rebuild timeout and released as soon as the rebuild ends.
func (s *IndexScheduler) execute() {
	ran, err := locker.WithLock(s.ctx, s.locker, s.lockKey, s.timeout, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		return s.indexer.Rebuild(ctx).Error
	})

	switch {
	case !ran && err != nil:
		s.logger.Error("failed to acquire index lock", zap.Error(err))
	case !ran:
		s.logger.Debug("another rebuild is running, skipping execution")
	case err != nil:
		s.logger.Warn("index rebuild finished with errors", zap.Error(err))
	}
}
