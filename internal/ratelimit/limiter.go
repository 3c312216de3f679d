// Package ratelimit paces outbound platform requests. Each platform gets a
// Limiter combining a concurrency cap, a minimum start-to-start interval,
// and a token reservoir refilled on a fixed cadence, all built on
// golang.org/x/time/rate so waiters are admitted FIFO.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Config holds the per-platform pacing parameters.
type Config struct {
	MaxConcurrent  int
	MinInterval    time.Duration
	Capacity       int
	RefillAmount   int
	RefillInterval time.Duration
}

// Hooks receives observability callbacks. OnQueued fires when a caller has
// to wait for a slot; OnDepleted fires when the reservoir is empty.
type Hooks struct {
	OnQueued   func(platform domain.Platform)
	OnDepleted func(platform domain.Platform)
}

// Limiter enforces one platform's pacing contract. Schedule blocks until a
// concurrency slot, the interval gap, and a reservoir token are all
// available.
type Limiter struct {
	platform  domain.Platform
	sem       chan struct{}
	interval  *rate.Limiter
	reservoir *rate.Limiter
	hooks     Hooks
}

// New creates a Limiter for the given platform.
func New(platform domain.Platform, cfg Config, hooks Hooks) *Limiter {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Millisecond
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillAmount < 1 {
		cfg.RefillAmount = cfg.Capacity
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}

	refillPerSec := float64(cfg.RefillAmount) / cfg.RefillInterval.Seconds()

	return &Limiter{
		platform:  platform,
		sem:       make(chan struct{}, cfg.MaxConcurrent),
		interval:  rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		reservoir: rate.NewLimiter(rate.Limit(refillPerSec), cfg.Capacity),
		hooks:     hooks,
	}
}

// Schedule runs fn once a concurrency slot, the minimum interval since the
// previous start, and a reservoir token are available. Waiters are served
// FIFO. The slot is held for the full duration of fn.
func (l *Limiter) Schedule(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case l.sem <- struct{}{}:
	default:
		if l.hooks.OnQueued != nil {
			l.hooks.OnQueued(l.platform)
		}
		select {
		case l.sem <- struct{}{}:
		case <-ctx.Done():
			return fmt.Errorf("ratelimit %s: %w", l.platform, ctx.Err())
		}
	}
	defer func() { <-l.sem }()

	if l.reservoir.Tokens() < 1 && l.hooks.OnDepleted != nil {
		l.hooks.OnDepleted(l.platform)
	}
	if err := l.reservoir.Wait(ctx); err != nil {
		return fmt.Errorf("ratelimit %s: reservoir: %w", l.platform, err)
	}
	if err := l.interval.Wait(ctx); err != nil {
		return fmt.Errorf("ratelimit %s: interval: %w", l.platform, err)
	}

	return fn(ctx)
}

// Registry maps platforms to their limiters.
type Registry struct {
	limiters map[domain.Platform]*Limiter
}

// DefaultConfigs returns the reference pacing table.
func DefaultConfigs() map[domain.Platform]Config {
	return map[domain.Platform]Config{
		domain.PlatformPolymarket: {
			MaxConcurrent: 5, MinInterval: 100 * time.Millisecond,
			Capacity: 50, RefillAmount: 50, RefillInterval: 5 * time.Second,
		},
		domain.PlatformManifold: {
			MaxConcurrent: 3, MinInterval: 200 * time.Millisecond,
			Capacity: 25, RefillAmount: 25, RefillInterval: 5 * time.Second,
		},
		domain.PlatformKalshi: {
			MaxConcurrent: 2, MinInterval: 500 * time.Millisecond,
			Capacity: 10, RefillAmount: 10, RefillInterval: 5 * time.Second,
		},
	}
}

// NewRegistry builds a Registry from per-platform configs. Platforms absent
// from cfgs fall back to the reference table.
func NewRegistry(cfgs map[domain.Platform]Config, hooks Hooks) *Registry {
	defaults := DefaultConfigs()
	limiters := make(map[domain.Platform]*Limiter, len(defaults))
	for _, p := range domain.Platforms {
		cfg, ok := cfgs[p]
		if !ok {
			cfg = defaults[p]
		}
		limiters[p] = New(p, cfg, hooks)
	}
	return &Registry{limiters: limiters}
}

// For returns the limiter for a platform.
func (r *Registry) For(p domain.Platform) *Limiter {
	return r.limiters[p]
}
