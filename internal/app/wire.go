package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbscan/internal/alert"
	"github.com/alanyoungcy/arbscan/internal/arb"
	cacheredis "github.com/alanyoungcy/arbscan/internal/cache/redis"
	"github.com/alanyoungcy/arbscan/internal/config"
	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/match"
	"github.com/alanyoungcy/arbscan/internal/metrics"
	"github.com/alanyoungcy/arbscan/internal/platform/kalshi"
	"github.com/alanyoungcy/arbscan/internal/platform/manifold"
	"github.com/alanyoungcy/arbscan/internal/platform/polymarket"
	"github.com/alanyoungcy/arbscan/internal/queue"
	"github.com/alanyoungcy/arbscan/internal/ratelimit"
	"github.com/alanyoungcy/arbscan/internal/scan"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Redis *cacheredis.Client
	Cache domain.Cache
	Locks domain.LockManager
	Queue *queue.Queue

	Adapters   []domain.Adapter
	Matcher    *match.Matcher
	Calculator *arb.Calculator
	Dispatcher *alert.Dispatcher
	Metrics    *metrics.Metrics

	Orchestrator *scan.Orchestrator
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis: cache, locks, durable queue ---
	redisClient, err := cacheredis.New(ctx, cacheredis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	deps.Cache = cacheredis.NewStore(redisClient)
	deps.Locks = cacheredis.NewLockManager(redisClient)

	q := queue.New(redisClient)
	closers = append(closers, func() { _ = q.Close() })
	deps.Queue = q

	// --- Platform adapters, each behind its own rate limiter ---
	limiters := ratelimit.NewRegistry(nil, ratelimit.Hooks{})
	timeout := cfg.Fetching.Timeout.Duration
	deps.Adapters = []domain.Adapter{
		polymarket.NewClient(cfg.Fetching.PolymarketURL, timeout, limiters.For(domain.PlatformPolymarket)),
		kalshi.NewClient(cfg.Fetching.KalshiURL, timeout, limiters.For(domain.PlatformKalshi)),
		manifold.NewClient(cfg.Fetching.ManifoldURL, timeout, limiters.For(domain.PlatformManifold)),
	}

	// --- Matching and arbitrage ---
	deps.Matcher = match.NewMatcher(match.Config{
		Threshold:       cfg.Matching.Threshold,
		MaxDateDiffDays: cfg.Matching.MaxDateDiffDays,
		MinRunLength:    cfg.Matching.MinMatchCharLength,
	}, logger)

	fees := map[domain.Platform]decimal.Decimal{
		domain.PlatformPolymarket: decimal.NewFromFloat(cfg.Fees.Polymarket),
		domain.PlatformKalshi:     decimal.NewFromFloat(cfg.Fees.Kalshi),
		domain.PlatformManifold:   decimal.NewFromFloat(cfg.Fees.Manifold),
	}
	deps.Calculator = arb.NewCalculator(fees, arb.Options{
		MinROI:       decimal.NewFromFloat(cfg.Arbitrage.MinROI),
		MinLiquidity: decimal.NewFromFloat(cfg.Arbitrage.MinLiquidity),
	}, logger)

	// --- Alerts ---
	var senders []alert.Sender
	if cfg.Alerts.DiscordWebhookURL != "" {
		senders = append(senders, alert.NewDiscordSender(cfg.Alerts.DiscordWebhookURL))
	}
	if cfg.Alerts.TelegramToken != "" && cfg.Alerts.TelegramChatID != "" {
		senders = append(senders, alert.NewTelegramSender(cfg.Alerts.TelegramToken, cfg.Alerts.TelegramChatID))
	}
	deps.Dispatcher = alert.NewDispatcher(alert.Config{
		Enabled:          cfg.Alerts.Enabled,
		MinProfitPercent: decimal.NewFromFloat(cfg.Alerts.MinProfitPercent),
		MinProfitAmount:  decimal.NewFromFloat(cfg.Alerts.MinProfitAmount),
		Cooldown:         cfg.Alerts.Cooldown.Duration,
		Pacing:           pacing(cfg.Alerts.MaxPerMinute),
	}, deps.Cache, senders, logger)

	deps.Metrics = metrics.New()

	deps.Orchestrator = scan.NewOrchestrator(
		deps.Adapters,
		deps.Cache,
		deps.Locks,
		deps.Matcher,
		deps.Calculator,
		deps.Dispatcher,
		deps.Metrics,
		logger,
	)

	return deps, cleanup, nil
}
