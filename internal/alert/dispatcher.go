package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Config holds the dispatcher thresholds.
type Config struct {
	Enabled bool
	// MinProfitPercent is the minimum ROI, in percent, to alert on.
	MinProfitPercent decimal.Decimal
	// MinProfitAmount is the minimum profit in dollars per $100 staked.
	MinProfitAmount decimal.Decimal
	// Cooldown suppresses repeat alerts for the same market pair.
	Cooldown time.Duration
	// Pacing is the minimum spacing between messages in a batch.
	Pacing time.Duration
}

// DefaultConfig returns the standard dispatcher tuning. Pacing stays at or
// above two seconds to keep under 30-per-minute webhook caps.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		MinProfitPercent: decimal.NewFromInt(5),
		MinProfitAmount:  decimal.NewFromInt(10),
		Cooldown:         10 * time.Minute,
		Pacing:           2 * time.Second,
	}
}

var hundred = decimal.NewFromInt(100)

// Dispatcher filters opportunities by profit thresholds and delivers them to
// the registered senders. A cache-backed cooldown keyed by the market pair
// keeps one alert per pair per cooldown window, even across processes.
type Dispatcher struct {
	cfg     Config
	cache   domain.Cache
	senders []Sender
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. With no senders or Enabled=false every
// send is a no-op.
func NewDispatcher(cfg Config, cache domain.Cache, senders []Sender, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		cfg:     cfg,
		cache:   cache,
		senders: senders,
		logger:  logger.With(slog.String("component", "alerts")),
	}
	if !cfg.Enabled {
		d.logger.Info("alerting disabled")
	} else if len(senders) == 0 {
		d.logger.Warn("alerting enabled but no webhook configured")
	}
	return d
}

// MeetsThreshold reports whether the opportunity clears both profit bars.
// The margin is compared on a $100 stake.
func (d *Dispatcher) MeetsThreshold(opp *domain.ArbitrageOpportunity) bool {
	return opp.ROI.GreaterThanOrEqual(d.cfg.MinProfitPercent) &&
		opp.ProfitMargin.Mul(hundred).GreaterThanOrEqual(d.cfg.MinProfitAmount)
}

// Send delivers one opportunity. It returns true when a message was posted,
// false when the dispatcher is disabled, the pair is cooling down, or
// delivery failed. Delivery failures are logged, never returned.
func (d *Dispatcher) Send(ctx context.Context, opp *domain.ArbitrageOpportunity) bool {
	if !d.cfg.Enabled || len(d.senders) == 0 {
		return false
	}

	key := domain.AlertSentKey(opp.LegA.MarketID, opp.LegB.MarketID)
	seen, err := d.cache.Exists(ctx, key)
	if err != nil {
		d.logger.Warn("cooldown lookup failed, sending anyway",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	if seen {
		d.logger.Debug("alert suppressed by cooldown", slog.String("key", key))
		return false
	}

	if !d.dispatch(ctx, Format(opp)) {
		return false
	}

	if err := d.cache.Set(ctx, key, 1, d.cfg.Cooldown); err != nil {
		d.logger.Warn("cooldown write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	return true
}

// SendMany delivers a batch sequentially with the configured pacing between
// messages. Cancellation stops the remaining batch within one pacing gap. It
// returns the number of messages posted.
func (d *Dispatcher) SendMany(ctx context.Context, opps []domain.ArbitrageOpportunity) int {
	if !d.cfg.Enabled || len(d.senders) == 0 {
		return 0
	}

	sent := 0
	for i := range opps {
		if i > 0 {
			select {
			case <-ctx.Done():
				d.logger.Info("alert batch cancelled",
					slog.Int("sent", sent), slog.Int("remaining", len(opps)-i))
				return sent
			case <-time.After(d.cfg.Pacing):
			}
		}
		if ctx.Err() != nil {
			return sent
		}
		if d.Send(ctx, &opps[i]) {
			sent++
		}
	}
	return sent
}

// dispatch fans the message out to every sender. One sender failing does not
// stop the others; success means at least one sender delivered.
func (d *Dispatcher) dispatch(ctx context.Context, msg Message) bool {
	delivered := false
	var failures []string
	for _, s := range d.senders {
		if err := s.Send(ctx, msg); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		delivered = true
		d.logger.Debug("alert sent",
			slog.String("sender", s.Name()), slog.String("title", msg.Title))
	}
	if len(failures) > 0 {
		d.logger.Error("alert delivery failed",
			slog.String("failures", strings.Join(failures, "; ")))
	}
	return delivered
}
