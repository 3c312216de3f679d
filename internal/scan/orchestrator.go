// Package scan runs one full scan job: fetch both platforms' markets through
// the cache, match them, compute arbitrage, persist the results, and alert.
// Step order within a job is strict; only the two platform fetches overlap.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscan/internal/alert"
	"github.com/alanyoungcy/arbscan/internal/arb"
	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/match"
	"github.com/alanyoungcy/arbscan/internal/metrics"
	"github.com/alanyoungcy/arbscan/internal/queue"
)

// Compile-time interface check.
var _ queue.Processor = (*Orchestrator)(nil)

// lockTTL bounds how long a crashed process can hold a pair's scan lock.
const lockTTL = 2 * time.Minute

// Orchestrator coordinates the scan pipeline for one platform pair.
type Orchestrator struct {
	adapters   map[domain.Platform]domain.Adapter
	cache      domain.Cache
	locks      domain.LockManager
	matcher    *match.Matcher
	calculator *arb.Calculator
	dispatcher *alert.Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewOrchestrator wires the pipeline. locks may be nil, in which case scans
// run without cross-process exclusion.
func NewOrchestrator(
	adapters []domain.Adapter,
	cache domain.Cache,
	locks domain.LockManager,
	matcher *match.Matcher,
	calculator *arb.Calculator,
	dispatcher *alert.Dispatcher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Orchestrator {
	byPlatform := make(map[domain.Platform]domain.Adapter, len(adapters))
	for _, a := range adapters {
		byPlatform[a.Platform()] = a
	}
	return &Orchestrator{
		adapters:   byPlatform,
		cache:      cache,
		locks:      locks,
		matcher:    matcher,
		calculator: calculator,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger.With(slog.String("component", "orchestrator")),
		now:        time.Now,
	}
}

// Process runs one scan job and reports progress milestones: 10 when the
// fetches begin, 40 when both lists are in, 70 after matching, 90 after the
// arbitrage pass, 100 once results are cached and alerts dispatched.
func (o *Orchestrator) Process(ctx context.Context, job domain.ScanJob, progress func(int)) (domain.ScanResult, error) {
	started := o.now()
	pair := job.PairKey()
	logger := o.logger.With(slog.String("pair", pair))

	adapterA, okA := o.adapters[job.PlatformA]
	adapterB, okB := o.adapters[job.PlatformB]
	if !okA || !okB {
		o.metrics.ScansTotal.WithLabelValues(pair, "error").Inc()
		return domain.ScanResult{}, fmt.Errorf("scan: no adapter for pair %s", pair)
	}

	if o.locks != nil {
		unlock, err := o.locks.Acquire(ctx, "scan:"+pair, lockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			logger.Info("pair already being scanned elsewhere, skipping")
			o.metrics.ScansTotal.WithLabelValues(pair, "skipped").Inc()
			return domain.ScanResult{Timestamp: started.UTC()}, nil
		}
		if err != nil {
			o.metrics.ScansTotal.WithLabelValues(pair, "error").Inc()
			return domain.ScanResult{}, fmt.Errorf("scan: %w", err)
		}
		defer unlock()
	}

	progress(10)
	var listA, listB []domain.StandardMarket
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		listA, err = o.fetchMarkets(gctx, adapterA, job.Limit)
		return err
	})
	g.Go(func() error {
		var err error
		listB, err = o.fetchMarkets(gctx, adapterB, job.Limit)
		return err
	})
	if err := g.Wait(); err != nil {
		o.metrics.ScansTotal.WithLabelValues(pair, "error").Inc()
		return domain.ScanResult{}, err
	}
	progress(40)

	matches := o.matcher.FindMatches(listA, listB)
	o.metrics.MatchesFound.Add(float64(len(matches)))
	progress(70)

	opps := o.calculator.FindArbitrage(matches)
	o.metrics.OpportunitiesSeen.Add(float64(len(opps)))
	progress(90)

	result := domain.ScanResult{
		Timestamp:     started.UTC(),
		Opportunities: opps,
		MarketsScanned: map[domain.Platform]int{
			job.PlatformA: len(listA),
			job.PlatformB: len(listB),
		},
		MatchesFound: len(matches),
		DurationMs:   o.now().Sub(started).Milliseconds(),
	}

	o.persist(ctx, &result)
	o.alertOn(ctx, opps)
	progress(100)

	o.metrics.ScansTotal.WithLabelValues(pair, "ok").Inc()
	o.metrics.ScanDuration.Observe(o.now().Sub(started).Seconds())
	logger.Info("scan complete",
		slog.Int("markets_a", len(listA)),
		slog.Int("markets_b", len(listB)),
		slog.Int("matches", len(matches)),
		slog.Int("opportunities", len(opps)),
		slog.Int64("duration_ms", result.DurationMs))
	return result, nil
}

// fetchMarkets resolves a platform's market snapshot through the cache. A
// cache failure is treated as a miss and logged, never fatal.
func (o *Orchestrator) fetchMarkets(ctx context.Context, adapter domain.Adapter, limit int) ([]domain.StandardMarket, error) {
	platform := adapter.Platform()
	key := domain.MarketsKey(platform)

	var cached []domain.StandardMarket
	found, err := o.cache.Get(ctx, key, &cached)
	if err != nil {
		o.logger.Warn("cache read failed, fetching fresh",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		o.metrics.MarketsFetched.WithLabelValues(string(platform), "cache").Add(float64(len(cached)))
		return cached, nil
	}

	markets, err := adapter.FetchMarkets(ctx, limit)
	if err != nil {
		o.metrics.AdapterErrors.WithLabelValues(string(platform)).Inc()
		return nil, err
	}
	o.metrics.MarketsFetched.WithLabelValues(string(platform), "api").Add(float64(len(markets)))

	if err := o.cache.Set(ctx, key, markets, domain.MarketsTTL); err != nil {
		o.logger.Warn("cache write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	return markets, nil
}

// persist caches the latest opportunity set and the timestamped scan result.
func (o *Orchestrator) persist(ctx context.Context, result *domain.ScanResult) {
	if err := o.cache.Set(ctx, domain.OpportunitiesKey, result.Opportunities, domain.OpportunitiesTTL); err != nil {
		o.logger.Warn("cache write failed",
			slog.String("key", domain.OpportunitiesKey), slog.String("error", err.Error()))
	}
	key := domain.ScanResultsKey(result.Timestamp)
	if err := o.cache.Set(ctx, key, result, domain.ScanResultsTTL); err != nil {
		o.logger.Warn("cache write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}

// alertOn dispatches the opportunities that clear the alert thresholds.
func (o *Orchestrator) alertOn(ctx context.Context, opps []domain.ArbitrageOpportunity) {
	var eligible []domain.ArbitrageOpportunity
	for i := range opps {
		if o.dispatcher.MeetsThreshold(&opps[i]) {
			eligible = append(eligible, opps[i])
		}
	}
	if len(eligible) == 0 {
		return
	}
	sent := o.dispatcher.SendMany(ctx, eligible)
	o.metrics.AlertsSent.Add(float64(sent))
}
