// Package config defines the top-level configuration for polyscreen and
// provides validation helpers.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alanyoungcy/polyscreen/internal/filter"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYSCREEN_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Fetch      FetchConfig      `toml:"fetch"`
	Snapshot   SnapshotConfig   `toml:"snapshot"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Filters    FiltersConfig    `toml:"filters"`
	Screener   ScreenerConfig   `toml:"screener"`
	Server     ServerConfig     `toml:"server"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the Gamma API endpoint.
type PolymarketConfig struct {
	GammaHost      string   `toml:"gamma_host"`
	RequestTimeout duration `toml:"request_timeout"`
}

// FetchConfig controls how a refresh pages through the events endpoint and
// which markets it keeps.
type FetchConfig struct {
	PageSize          int      `toml:"page_size"`
	MaxPages          int      `toml:"max_pages"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	Retries           int      `toml:"retries"`
	RetryBackoff      duration `toml:"retry_backoff"`
	Timeout           duration `toml:"timeout"`
	// Interval between scheduled refreshes in serve mode. Zero disables them.
	Interval      duration `toml:"interval"`
	OnlyTradeable bool     `toml:"only_tradeable"`
	MinLiquidity  float64  `toml:"min_liquidity"`
}

// SnapshotConfig selects where the latest fetched dataset is kept.
type SnapshotConfig struct {
	// Backend is one of "file", "s3", "redis" or "none".
	Backend string `toml:"backend"`
	// Path is the CSV file for the file backend.
	Path string `toml:"path"`
	// Key is the object name for the s3 backend.
	Key string `toml:"key"`
	// TTL bounds how long the redis backend keeps a snapshot. Zero keeps it
	// until overwritten.
	TTL duration `toml:"ttl"`
	// Lock serialises refreshes across processes through Redis.
	Lock bool `toml:"lock"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	Prefix     string `toml:"prefix"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// FiltersConfig is the default global filter selection. Unset ranges are
// derived from the table at request time.
type FiltersConfig struct {
	TradeableOnly    bool          `toml:"tradeable_only"`
	ExcludeUpOrDown  bool          `toml:"exclude_up_or_down"`
	BinaryOnly       bool          `toml:"binary_only"`
	Domains          []string      `toml:"domains"`
	Liquidity        *filter.Range `toml:"liquidity"`
	Volume24h        *filter.Range `toml:"volume_24h"`
	Spread           *filter.Range `toml:"spread"`
	TimeToResolution *filter.Range `toml:"time_to_resolution"`
}

// ScreenerConfig is the default screener selection.
type ScreenerConfig struct {
	ExcludeSportsCrypto bool         `toml:"exclude_sports_crypto"`
	ActiveOnly          bool         `toml:"active_only"`
	LiquidityBand       bool         `toml:"liquidity_band"`
	Liquidity           filter.Range `toml:"liquidity"`
	SpreadCap           bool         `toml:"spread_cap"`
	MaxSpread           float64      `toml:"max_spread"`
	MinVolume           bool         `toml:"min_volume"`
	MinVolume24h        float64      `toml:"min_volume_24h"`
	TimeWindow          bool         `toml:"time_window"`
	Time                filter.Range `toml:"time"`
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

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// RefreshPerMinute limits POST /api/refresh per client. Zero disables it.
	RefreshPerMinute float64 `toml:"refresh_per_minute"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	sc := filter.DefaultScreenerConfig()
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost:      "https://gamma-api.polymarket.com",
			RequestTimeout: duration{30 * time.Second},
		},
		Fetch: FetchConfig{
			PageSize:          100,
			RequestsPerSecond: 5,
			Burst:             1,
			Retries:           2,
			RetryBackoff:      duration{time.Second},
			Timeout:           duration{5 * time.Minute},
			Interval:          duration{30 * time.Minute},
			OnlyTradeable:     true,
		},
		Snapshot: SnapshotConfig{
			Backend: "file",
			Path:    "data/polymarket_markets.csv",
			Key:     "polymarket_markets.csv",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			Prefix:     "polyscreen:",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "polyscreen-data",
			ForcePathStyle: true,
			Prefix:         "snapshots/",
		},
		Filters: FiltersConfig{
			TradeableOnly:   true,
			ExcludeUpOrDown: true,
		},
		Screener: ScreenerConfig{
			ExcludeSportsCrypto: sc.ExcludeSportsCrypto,
			ActiveOnly:          sc.ActiveOnly,
			LiquidityBand:       sc.LiquidityBand,
			Liquidity:           sc.Liquidity,
			SpreadCap:           sc.SpreadCap,
			MaxSpread:           sc.MaxSpread,
			MinVolume:           sc.MinVolume,
			MinVolume24h:        sc.MinVolume24h,
			TimeWindow:          sc.TimeWindow,
			Time:                sc.Time,
		},
		Server: ServerConfig{
			Enabled:          true,
			Port:             8000,
			CORSOrigins:      []string{"http://localhost:3000", "http://localhost:5173"},
			RefreshPerMinute: 6,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "polyscreen",
		},
		Notify: NotifyConfig{
			Events: []string{"refresh_failed"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// FilterConfig converts the filter section into the chain selection.
func (c *Config) FilterConfig() filter.Config {
	f := c.Filters
	return filter.Config{
		TradeableOnly:    f.TradeableOnly,
		Liquidity:        f.Liquidity,
		Volume24h:        f.Volume24h,
		Spread:           f.Spread,
		TimeToResolution: f.TimeToResolution,
		Domains:          append([]string(nil), f.Domains...),
		BinaryOnly:       f.BinaryOnly,
		ExcludeUpOrDown:  f.ExcludeUpOrDown,
	}
}

// ScreenerSelection converts the screener section into the screener
// predicates.
func (c *Config) ScreenerSelection() filter.ScreenerConfig {
	s := c.Screener
	return filter.ScreenerConfig{
		ExcludeSportsCrypto: s.ExcludeSportsCrypto,
		ActiveOnly:          s.ActiveOnly,
		LiquidityBand:       s.LiquidityBand,
		Liquidity:           s.Liquidity,
		SpreadCap:           s.SpreadCap,
		MaxSpread:           s.MaxSpread,
		MinVolume:           s.MinVolume,
		MinVolume24h:        s.MinVolume24h,
		TimeWindow:          s.TimeWindow,
		Time:                s.Time,
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":  true,
	"fetch":  true,
	"screen": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validBackends = map[string]bool{
	"file":  true,
	"s3":    true,
	"redis": true,
	"none":  true,
}

// NeedsRedis reports whether the configuration requires a Redis connection.
func (c *Config) NeedsRedis() bool {
	return c.Snapshot.Backend == "redis" || c.Snapshot.Lock
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, fetch, screen)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Polymarket
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.RequestTimeout.Duration < 0 {
		errs = append(errs, "polymarket: request_timeout must not be negative")
	}

	// Fetch
	if c.Fetch.PageSize < 1 || c.Fetch.PageSize > 500 {
		errs = append(errs, fmt.Sprintf("fetch: page_size must be 1-500, got %d", c.Fetch.PageSize))
	}
	if c.Fetch.MaxPages < 0 {
		errs = append(errs, "fetch: max_pages must be >= 0")
	}
	if c.Fetch.RequestsPerSecond <= 0 {
		errs = append(errs, "fetch: requests_per_second must be > 0")
	}
	if c.Fetch.Retries < 0 {
		errs = append(errs, "fetch: retries must be >= 0")
	}
	if c.Fetch.Timeout.Duration <= 0 {
		errs = append(errs, "fetch: timeout must be > 0")
	}
	if c.Fetch.Interval.Duration < 0 {
		errs = append(errs, "fetch: interval must not be negative")
	}
	if c.Fetch.MinLiquidity < 0 || math.IsNaN(c.Fetch.MinLiquidity) {
		errs = append(errs, "fetch: min_liquidity must be >= 0")
	}

	// Snapshot
	backend := strings.ToLower(c.Snapshot.Backend)
	if !validBackends[backend] {
		errs = append(errs, fmt.Sprintf("snapshot: unknown backend %q (valid: file, s3, redis, none)", c.Snapshot.Backend))
	}
	if backend == "file" && c.Snapshot.Path == "" {
		errs = append(errs, "snapshot: path must not be empty for the file backend")
	}
	if backend == "s3" {
		if c.Snapshot.Key == "" {
			errs = append(errs, "snapshot: key must not be empty for the s3 backend")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}
	if c.Snapshot.TTL.Duration < 0 {
		errs = append(errs, "snapshot: ttl must not be negative")
	}

	// Redis
	if c.NeedsRedis() {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Filters
	if err := c.FilterConfig().Validate(); err != nil {
		errs = append(errs, "filters: "+err.Error())
	}
	if err := c.ScreenerSelection().Validate(); err != nil {
		errs = append(errs, "screener: "+err.Error())
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RefreshPerMinute < 0 {
			errs = append(errs, "server: refresh_per_minute must be >= 0")
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func cloneRange(r *filter.Range) *filter.Range {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
