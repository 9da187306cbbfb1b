package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYSCREEN_* environment variable overrides, and
// returns the final Config. An empty path, or a missing file at the default
// path, means defaults plus environment only. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string, required bool) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		switch {
		case err == nil:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				keys := make([]string, len(undecoded))
				for i, k := range undecoded {
					keys[i] = k.String()
				}
				return nil, fmt.Errorf("config: %s: unknown keys: %s", path, strings.Join(keys, ", "))
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYSCREEN_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "POLYSCREEN_POLYMARKET_GAMMA_HOST")
	setDuration(&cfg.Polymarket.RequestTimeout, "POLYSCREEN_POLYMARKET_REQUEST_TIMEOUT")

	// ── Fetch ──
	setInt(&cfg.Fetch.PageSize, "POLYSCREEN_FETCH_PAGE_SIZE")
	setInt(&cfg.Fetch.MaxPages, "POLYSCREEN_FETCH_MAX_PAGES")
	setFloat64(&cfg.Fetch.RequestsPerSecond, "POLYSCREEN_FETCH_REQUESTS_PER_SECOND")
	setInt(&cfg.Fetch.Burst, "POLYSCREEN_FETCH_BURST")
	setInt(&cfg.Fetch.Retries, "POLYSCREEN_FETCH_RETRIES")
	setDuration(&cfg.Fetch.RetryBackoff, "POLYSCREEN_FETCH_RETRY_BACKOFF")
	setDuration(&cfg.Fetch.Timeout, "POLYSCREEN_FETCH_TIMEOUT")
	setDuration(&cfg.Fetch.Interval, "POLYSCREEN_FETCH_INTERVAL")
	setBool(&cfg.Fetch.OnlyTradeable, "POLYSCREEN_FETCH_ONLY_TRADEABLE")
	setFloat64(&cfg.Fetch.MinLiquidity, "POLYSCREEN_FETCH_MIN_LIQUIDITY")

	// ── Snapshot ──
	setStr(&cfg.Snapshot.Backend, "POLYSCREEN_SNAPSHOT_BACKEND")
	setStr(&cfg.Snapshot.Path, "POLYSCREEN_SNAPSHOT_PATH")
	setStr(&cfg.Snapshot.Key, "POLYSCREEN_SNAPSHOT_KEY")
	setDuration(&cfg.Snapshot.TTL, "POLYSCREEN_SNAPSHOT_TTL")
	setBool(&cfg.Snapshot.Lock, "POLYSCREEN_SNAPSHOT_LOCK")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "POLYSCREEN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYSCREEN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYSCREEN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYSCREEN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYSCREEN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYSCREEN_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.Prefix, "POLYSCREEN_REDIS_PREFIX")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "POLYSCREEN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYSCREEN_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYSCREEN_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYSCREEN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYSCREEN_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYSCREEN_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYSCREEN_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "POLYSCREEN_S3_PREFIX")

	// ── Filters ──
	setBool(&cfg.Filters.TradeableOnly, "POLYSCREEN_FILTERS_TRADEABLE_ONLY")
	setBool(&cfg.Filters.ExcludeUpOrDown, "POLYSCREEN_FILTERS_EXCLUDE_UP_OR_DOWN")
	setBool(&cfg.Filters.BinaryOnly, "POLYSCREEN_FILTERS_BINARY_ONLY")
	setStringSlice(&cfg.Filters.Domains, "POLYSCREEN_FILTERS_DOMAINS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "POLYSCREEN_SERVER_ENABLED")
	setStr(&cfg.Server.Host, "POLYSCREEN_SERVER_HOST")
	setInt(&cfg.Server.Port, "POLYSCREEN_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POLYSCREEN_SERVER_CORS_ORIGINS")
	setFloat64(&cfg.Server.RefreshPerMinute, "POLYSCREEN_SERVER_REFRESH_PER_MINUTE")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "POLYSCREEN_METRICS_ENABLED")
	setStr(&cfg.Metrics.Namespace, "POLYSCREEN_METRICS_NAMESPACE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POLYSCREEN_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYSCREEN_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POLYSCREEN_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POLYSCREEN_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "POLYSCREEN_MODE")
	setStr(&cfg.LogLevel, "POLYSCREEN_LOG_LEVEL")
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
