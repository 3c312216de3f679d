package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBSCAN_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load. An empty path skips the
// file and uses defaults plus environment overrides only.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBSCAN_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Fetching ──
	setStr(&cfg.Fetching.PolymarketURL, "ARBSCAN_FETCHING_POLYMARKET_URL")
	setStr(&cfg.Fetching.KalshiURL, "ARBSCAN_FETCHING_KALSHI_URL")
	setStr(&cfg.Fetching.ManifoldURL, "ARBSCAN_FETCHING_MANIFOLD_URL")
	setDuration(&cfg.Fetching.Timeout, "ARBSCAN_FETCHING_TIMEOUT")
	setInt(&cfg.Fetching.DefaultLimit, "ARBSCAN_FETCHING_DEFAULT_LIMIT")
	setInt(&cfg.Fetching.MaxLimit, "ARBSCAN_FETCHING_MAX_LIMIT")

	// ── Matching ──
	setFloat64(&cfg.Matching.Threshold, "ARBSCAN_MATCHING_THRESHOLD")
	setInt(&cfg.Matching.MaxDateDiffDays, "ARBSCAN_MATCHING_MAX_DATE_DIFF_DAYS")
	setInt(&cfg.Matching.MinMatchCharLength, "ARBSCAN_MATCHING_MIN_MATCH_CHAR_LENGTH")

	// ── Fees ──
	setFloat64(&cfg.Fees.Polymarket, "ARBSCAN_FEES_POLYMARKET")
	setFloat64(&cfg.Fees.Kalshi, "ARBSCAN_FEES_KALSHI")
	setFloat64(&cfg.Fees.Manifold, "ARBSCAN_FEES_MANIFOLD")

	// ── Arbitrage ──
	setFloat64(&cfg.Arbitrage.MinROI, "ARBSCAN_ARBITRAGE_MIN_ROI")
	setFloat64(&cfg.Arbitrage.MinLiquidity, "ARBSCAN_ARBITRAGE_MIN_LIQUIDITY")

	// ── Alerts ──
	setBool(&cfg.Alerts.Enabled, "ARBSCAN_ALERTS_ENABLED")
	setStr(&cfg.Alerts.DiscordWebhookURL, "ARBSCAN_ALERTS_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Alerts.TelegramToken, "ARBSCAN_ALERTS_TELEGRAM_TOKEN")
	setStr(&cfg.Alerts.TelegramChatID, "ARBSCAN_ALERTS_TELEGRAM_CHAT_ID")
	setFloat64(&cfg.Alerts.MinProfitPercent, "ARBSCAN_ALERTS_MIN_PROFIT_PERCENT")
	setFloat64(&cfg.Alerts.MinProfitAmount, "ARBSCAN_ALERTS_MIN_PROFIT_AMOUNT")
	setDuration(&cfg.Alerts.Cooldown, "ARBSCAN_ALERTS_COOLDOWN")
	setInt(&cfg.Alerts.MaxPerMinute, "ARBSCAN_ALERTS_MAX_PER_MINUTE")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARBSCAN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBSCAN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBSCAN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBSCAN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBSCAN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBSCAN_REDIS_TLS_ENABLED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARBSCAN_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBSCAN_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBSCAN_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARBSCAN_SERVER_API_KEY")

	// ── Scheduler ──
	setDuration(&cfg.Scheduler.Interval, "ARBSCAN_SCHEDULER_INTERVAL")
	setDuration(&cfg.Scheduler.StatsInterval, "ARBSCAN_SCHEDULER_STATS_INTERVAL")
	setInt(&cfg.Scheduler.ScanLimit, "ARBSCAN_SCHEDULER_SCAN_LIMIT")
	setStringSlice(&cfg.Scheduler.Pairs, "ARBSCAN_SCHEDULER_PAIRS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBSCAN_MODE")
	setStr(&cfg.LogLevel, "ARBSCAN_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
