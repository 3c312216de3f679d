// Package scheduler runs the long-lived scanning process: it enrolls the
// recurring scan jobs, drives the queue worker, and periodically reports
// queue and cache health.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/queue"
)

// Config tunes the scheduler.
type Config struct {
	// Pairs are the platform pairs enrolled as recurring scans.
	Pairs []domain.ScanJob
	// Interval is the cadence of each recurring scan.
	Interval time.Duration
	// StatsInterval is the cadence of queue/cache stats logging.
	StatsInterval time.Duration
}

// DefaultPairs returns the standard pair rotation.
func DefaultPairs(limit int) []domain.ScanJob {
	return []domain.ScanJob{
		{PlatformA: domain.PlatformPolymarket, PlatformB: domain.PlatformManifold, Limit: limit},
		{PlatformA: domain.PlatformKalshi, PlatformB: domain.PlatformPolymarket, Limit: limit},
		{PlatformA: domain.PlatformKalshi, PlatformB: domain.PlatformManifold, Limit: limit},
	}
}

// Scheduler owns the recurring enrolments and the worker lifecycle.
type Scheduler struct {
	cfg    Config
	queue  domain.JobQueue
	worker *queue.Worker
	cache  domain.Cache
	logger *slog.Logger
}

// New creates a scheduler.
func New(cfg Config, q domain.JobQueue, w *queue.Worker, cache domain.Cache, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		queue:  q,
		worker: w,
		cache:  cache,
		logger: logger.With(slog.String("component", "scheduler")),
	}
}

// Run enrolls the recurring jobs and blocks until ctx is cancelled. On
// shutdown the worker stops pulling new jobs and an in-flight job finishes
// or aborts at its next suspension point.
func (s *Scheduler) Run(ctx context.Context) error {
	for _, job := range s.cfg.Pairs {
		if err := s.queue.EnqueueRecurring(ctx, job, s.cfg.Interval); err != nil {
			return fmt.Errorf("scheduler: enroll %s: %w", job.PairKey(), err)
		}
		s.logger.Info("recurring scan enrolled",
			slog.String("pair", job.PairKey()),
			slog.Duration("interval", s.cfg.Interval))
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.worker.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})

	g.Go(func() error {
		s.statsLoop(ctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("scheduler stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("scheduler stopped cleanly")
	return nil
}

// statsLoop logs queue and cache stats until ctx is cancelled.
func (s *Scheduler) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logStats(ctx)
		}
	}
}

func (s *Scheduler) logStats(ctx context.Context) {
	qs, err := s.queue.Stats(ctx)
	if err != nil {
		s.logger.Warn("queue stats unavailable", slog.String("error", err.Error()))
		return
	}
	cs, err := s.cache.Stats(ctx)
	if err != nil {
		s.logger.Warn("cache stats unavailable", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("queue status",
		slog.Int64("waiting", qs.Waiting),
		slog.Int64("active", qs.Active),
		slog.Int64("completed", qs.Completed),
		slog.Int64("failed", qs.Failed),
		slog.Int64("delayed", qs.Delayed),
		slog.Int64("cache_keys", cs.Keys),
		slog.String("cache_memory", cs.MemoryHuman))
}
