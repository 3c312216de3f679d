package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/queue"
	"github.com/alanyoungcy/arbscan/internal/scheduler"
	"github.com/alanyoungcy/arbscan/internal/server"
	"github.com/alanyoungcy/arbscan/internal/server/handler"
	"github.com/alanyoungcy/arbscan/internal/server/ws"
)

// ScanMode runs every configured platform pair once and exits. Pair failures
// do not stop the remaining pairs.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	pairs := a.scanPairs()
	a.logger.InfoContext(ctx, "starting scan mode", slog.Int("pairs", len(pairs)))

	var errs []error
	for _, job := range pairs {
		result, err := deps.Orchestrator.Process(ctx, job, func(int) {})
		if err != nil {
			a.logger.ErrorContext(ctx, "scan failed",
				slog.String("pair", job.PairKey()),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("scan %s: %w", job.PairKey(), err))
			continue
		}
		a.logger.InfoContext(ctx, "scan finished",
			slog.String("pair", job.PairKey()),
			slog.Int("matches", result.MatchesFound),
			slog.Int("opportunities", len(result.Opportunities)))
	}
	return errors.Join(errs...)
}

// DaemonMode runs the long-lived scanner: recurring scans through the queue
// worker, plus the HTTP/WebSocket API when enabled.
func (a *App) DaemonMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting daemon mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	worker := queue.NewWorker(deps.Queue, deps.Orchestrator, queue.DefaultWorkerOptions(), a.logger)
	worker.OnCompleted = func(jobID string, result domain.ScanResult) {
		hub.Broadcast(ws.ChannelScans, result)
		if len(result.Opportunities) > 0 {
			hub.Broadcast(ws.ChannelOpportunities, result.Opportunities)
		}
	}
	worker.OnFailed = func(jobID string, reason error) {
		hub.Broadcast(ws.ChannelStatus, map[string]any{
			"job_id": jobID,
			"error":  reason.Error(),
		})
	}

	sched := scheduler.New(scheduler.Config{
		Pairs:         a.scanPairs(),
		Interval:      a.cfg.Scheduler.Interval.Duration,
		StatsInterval: a.cfg.Scheduler.StatsInterval.Duration,
	}, deps.Queue, worker, deps.Cache, a.logger)
	g.Go(func() error {
		return sched.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, hub)
	}

	return g.Wait()
}

// ServerMode serves the API over the cached scan results without running any
// scans itself. Pair it with a daemon process sharing the same Redis.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	a.startHTTPServer(ctx, g, deps, hub)

	return g.Wait()
}

// startHTTPServer adds the API server goroutines to the given errgroup. The
// server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, hub *ws.Hub) {
	startedAt := time.Now().UTC()

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		},
		server.Handlers{
			Health:        handler.NewHealthHandler(deps.Redis, a.logger),
			Status:        handler.NewStatusHandler(deps.Queue, deps.Cache, startedAt, a.logger),
			Opportunities: handler.NewOpportunitiesHandler(deps.Cache, a.logger),
		},
		deps.Metrics.Registry(),
		hub,
		a.logger,
	)

	g.Go(func() error {
		err := srv.Start()
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// platformNames maps the long platform names used in the config pair list to
// the platform tags the rest of the scanner works with.
var platformNames = map[string]domain.Platform{
	"polymarket": domain.PlatformPolymarket,
	"kalshi":     domain.PlatformKalshi,
	"manifold":   domain.PlatformManifold,
}

// scanPairs resolves the configured pair list, falling back to the standard
// rotation when none is configured.
func (a *App) scanPairs() []domain.ScanJob {
	limit := a.cfg.Scheduler.ScanLimit
	if limit < 1 {
		limit = a.cfg.Fetching.DefaultLimit
	}
	if len(a.cfg.Scheduler.Pairs) == 0 {
		return scheduler.DefaultPairs(limit)
	}

	jobs := make([]domain.ScanJob, 0, len(a.cfg.Scheduler.Pairs))
	for _, p := range a.cfg.Scheduler.Pairs {
		name := strings.ToLower(p)
		pa, pb, ok := strings.Cut(name, ":")
		if !ok {
			a.logger.Warn("skipping malformed scheduler pair", slog.String("pair", p))
			continue
		}
		tagA, okA := platformNames[pa]
		tagB, okB := platformNames[pb]
		if !okA || !okB {
			a.logger.Warn("skipping unknown scheduler pair", slog.String("pair", p))
			continue
		}
		jobs = append(jobs, domain.ScanJob{
			PlatformA: tagA,
			PlatformB: tagB,
			Limit:     limit,
		})
	}
	return jobs
}

// minPacing is the floor on the gap between consecutive webhook messages.
const minPacing = 2 * time.Second

// pacing converts a per-minute webhook cap into the minimum gap between
// consecutive messages, never shorter than minPacing.
func pacing(maxPerMinute int) time.Duration {
	if maxPerMinute < 1 {
		maxPerMinute = 1
	}
	gap := time.Minute / time.Duration(maxPerMinute)
	if gap < minPacing {
		return minPacing
	}
	return gap
}
