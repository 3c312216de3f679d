// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBSCAN_* environment variables.
type Config struct {
	Fetching  FetchingConfig  `toml:"fetching"`
	Matching  MatchingConfig  `toml:"matching"`
	Fees      FeesConfig      `toml:"fees"`
	Arbitrage ArbitrageConfig `toml:"arbitrage"`
	Alerts    AlertsConfig    `toml:"alerts"`
	Redis     RedisConfig     `toml:"redis"`
	Server    ServerConfig    `toml:"server"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// FetchingConfig holds the platform API endpoints and fetch limits.
type FetchingConfig struct {
	PolymarketURL string   `toml:"polymarket_url"`
	KalshiURL     string   `toml:"kalshi_url"`
	ManifoldURL   string   `toml:"manifold_url"`
	Timeout       duration `toml:"timeout"`
	DefaultLimit  int      `toml:"default_limit"`
	MaxLimit      int      `toml:"max_limit"`
}

// MatchingConfig holds the fuzzy matcher tuning.
type MatchingConfig struct {
	// Threshold is the minimum title similarity (0..1) to accept a pair.
	Threshold float64 `toml:"threshold"`
	// MaxDateDiffDays rejects pairs whose resolution dates differ by more.
	MaxDateDiffDays int `toml:"max_date_diff_days"`
	// MinMatchCharLength is the shortest character run counted as a match.
	MinMatchCharLength int `toml:"min_match_char_length"`
}

// FeesConfig holds per-platform taker fee rates as fractions (0.02 = 2%).
type FeesConfig struct {
	Polymarket float64 `toml:"polymarket"`
	Kalshi     float64 `toml:"kalshi"`
	Manifold   float64 `toml:"manifold"`
}

// ArbitrageConfig holds the opportunity filters.
type ArbitrageConfig struct {
	// MinROI is the minimum return on cost as a fraction (0.01 = 1%).
	MinROI float64 `toml:"min_roi"`
	// MinLiquidity drops markets reporting liquidity below this floor.
	MinLiquidity float64 `toml:"min_liquidity"`
}

// AlertsConfig holds alert thresholds and webhook credentials.
type AlertsConfig struct {
	Enabled           bool     `toml:"enabled"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	MinProfitPercent  float64  `toml:"min_profit_percent"`
	MinProfitAmount   float64  `toml:"min_profit_amount"`
	Cooldown          duration `toml:"cooldown"`
	// MaxPerMinute paces batch delivery to stay under webhook rate caps.
	MaxPerMinute int `toml:"max_per_minute"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey gates every endpoint except the health check. Empty disables auth.
	APIKey string `toml:"api_key"`
}

// SchedulerConfig holds the recurring-scan schedule.
type SchedulerConfig struct {
	Interval      duration `toml:"interval"`
	StatsInterval duration `toml:"stats_interval"`
	// ScanLimit is the per-platform market count requested each scan.
	ScanLimit int `toml:"scan_limit"`
	// Pairs restricts scans to these platform pairs ("polymarket:manifold").
	// Empty means every supported pair.
	Pairs []string `toml:"pairs"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Fetching: FetchingConfig{
			PolymarketURL: "https://gamma-api.polymarket.com",
			KalshiURL:     "https://api.elections.kalshi.com/trade-api/v2",
			ManifoldURL:   "https://api.manifold.markets/v0",
			Timeout:       duration{10 * time.Second},
			DefaultLimit:  100,
			MaxLimit:      500,
		},
		Matching: MatchingConfig{
			Threshold:          0.60,
			MaxDateDiffDays:    30,
			MinMatchCharLength: 3,
		},
		Fees: FeesConfig{
			Polymarket: 0.02,
			Kalshi:     0.07,
			Manifold:   0,
		},
		Arbitrage: ArbitrageConfig{
			MinROI:       0.01,
			MinLiquidity: 100,
		},
		Alerts: AlertsConfig{
			Enabled:          true,
			MinProfitPercent: 5,
			MinProfitAmount:  10,
			Cooldown:         duration{10 * time.Minute},
			MaxPerMinute:     30,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Scheduler: SchedulerConfig{
			Interval:      duration{60 * time.Second},
			StatsInterval: duration{30 * time.Second},
			ScanLimit:     100,
		},
		Mode:     "daemon",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":   true,
	"daemon": true,
	"server": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validPairs enumerates the accepted scheduler pair names.
var validPairs = map[string]bool{
	"polymarket:kalshi":   true,
	"polymarket:manifold": true,
	"kalshi:polymarket":   true,
	"kalshi:manifold":     true,
	"manifold:polymarket": true,
	"manifold:kalshi":     true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, daemon, server)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Fetching
	if c.Fetching.PolymarketURL == "" {
		errs = append(errs, "fetching: polymarket_url must not be empty")
	}
	if c.Fetching.KalshiURL == "" {
		errs = append(errs, "fetching: kalshi_url must not be empty")
	}
	if c.Fetching.ManifoldURL == "" {
		errs = append(errs, "fetching: manifold_url must not be empty")
	}
	if c.Fetching.Timeout.Duration <= 0 {
		errs = append(errs, "fetching: timeout must be > 0")
	}
	if c.Fetching.DefaultLimit < 1 {
		errs = append(errs, "fetching: default_limit must be >= 1")
	}
	if c.Fetching.MaxLimit < c.Fetching.DefaultLimit {
		errs = append(errs, "fetching: max_limit must be >= default_limit")
	}

	// Matching
	if c.Matching.Threshold <= 0 || c.Matching.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("matching: threshold must be in (0, 1], got %g", c.Matching.Threshold))
	}
	if c.Matching.MaxDateDiffDays < 0 {
		errs = append(errs, "matching: max_date_diff_days must be >= 0")
	}
	if c.Matching.MinMatchCharLength < 1 {
		errs = append(errs, "matching: min_match_char_length must be >= 1")
	}

	// Fees
	for name, rate := range map[string]float64{
		"polymarket": c.Fees.Polymarket,
		"kalshi":     c.Fees.Kalshi,
		"manifold":   c.Fees.Manifold,
	} {
		if rate < 0 || rate >= 1 {
			errs = append(errs, fmt.Sprintf("fees: %s must be in [0, 1), got %g", name, rate))
		}
	}

	// Arbitrage
	if c.Arbitrage.MinROI < 0 {
		errs = append(errs, "arbitrage: min_roi must be >= 0")
	}
	if c.Arbitrage.MinLiquidity < 0 {
		errs = append(errs, "arbitrage: min_liquidity must be >= 0")
	}

	// Alerts
	if c.Alerts.Enabled {
		if c.Alerts.MinProfitPercent < 0 {
			errs = append(errs, "alerts: min_profit_percent must be >= 0")
		}
		if c.Alerts.MinProfitAmount < 0 {
			errs = append(errs, "alerts: min_profit_amount must be >= 0")
		}
		if c.Alerts.Cooldown.Duration < 0 {
			errs = append(errs, "alerts: cooldown must be >= 0")
		}
		if c.Alerts.MaxPerMinute < 1 {
			errs = append(errs, "alerts: max_per_minute must be >= 1")
		}
		if c.Alerts.TelegramToken != "" && c.Alerts.TelegramChatID == "" {
			errs = append(errs, "alerts: telegram_chat_id is required when telegram_token is set")
		}
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Scheduler
	if c.Scheduler.Interval.Duration <= 0 {
		errs = append(errs, "scheduler: interval must be > 0")
	}
	if c.Scheduler.StatsInterval.Duration <= 0 {
		errs = append(errs, "scheduler: stats_interval must be > 0")
	}
	if c.Scheduler.ScanLimit < 1 {
		errs = append(errs, "scheduler: scan_limit must be >= 1")
	}
	for _, p := range c.Scheduler.Pairs {
		if !validPairs[strings.ToLower(p)] {
			errs = append(errs, fmt.Sprintf("scheduler: unknown pair %q", p))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
