package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/polyscreen/internal/blob/s3"
	"github.com/alanyoungcy/polyscreen/internal/cache/redis"
	"github.com/alanyoungcy/polyscreen/internal/config"
	"github.com/alanyoungcy/polyscreen/internal/domain"
	"github.com/alanyoungcy/polyscreen/internal/metrics"
	"github.com/alanyoungcy/polyscreen/internal/notify"
	"github.com/alanyoungcy/polyscreen/internal/pipeline"
	"github.com/alanyoungcy/polyscreen/internal/platform/polymarket"
	"github.com/alanyoungcy/polyscreen/internal/service"
	"github.com/alanyoungcy/polyscreen/internal/snapshot"
)

// Dependencies bundles everything the modes need. It is constructed by Wire
// and torn down by the returned cleanup function.
type Dependencies struct {
	Tables    *service.TableService
	Scheduler *pipeline.Scheduler
	Store     domain.SnapshotStore
	Metrics   *metrics.Metrics
	Notifier  *notify.Notifier
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

	// --- Metrics ---
	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.New(cfg.Metrics.Namespace)
	}

	// --- Redis (snapshot backend and/or refresh lock) ---
	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		c, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			Prefix:     cfg.Redis.Prefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = c.Close() })
		redisClient = c
	}

	// --- Snapshot store ---
	store, storeCleanup, err := newSnapshotStore(ctx, cfg, redisClient)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: snapshot: %w", err)
	}
	if storeCleanup != nil {
		closers = append(closers, storeCleanup)
	}
	deps.Store = store

	var lock domain.RefreshLock
	if cfg.Snapshot.Lock && redisClient != nil {
		lock = redis.NewLockManager(redisClient)
	}

	// --- Upstream ---
	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost, cfg.Polymarket.RequestTimeout.Duration)
	fetcher := pipeline.NewMarketFetcher(gamma, pipeline.FetcherConfig{
		PageSize:          cfg.Fetch.PageSize,
		MaxPages:          cfg.Fetch.MaxPages,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Burst:             cfg.Fetch.Burst,
		Retries:           cfg.Fetch.Retries,
		RetryBackoff:      cfg.Fetch.RetryBackoff.Duration,
		Flatten: pipeline.FlattenOptions{
			OnlyTradeable: cfg.Fetch.OnlyTradeable,
			MinLiquidity:  cfg.Fetch.MinLiquidity,
		},
	}, deps.Metrics, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// A nil *notify.Notifier stored in the interface would not compare nil.
	var notifier service.Notifier
	if deps.Notifier.Enabled() {
		notifier = deps.Notifier
	}

	// --- Table service ---
	deps.Tables = service.NewTableService(fetcher, store, lock, nil, notifier, deps.Metrics, logger, service.Options{
		FetchTimeout: cfg.Fetch.Timeout.Duration,
	})
	deps.Scheduler = pipeline.NewScheduler(deps.Tables, cfg.Fetch.Interval.Duration, logger)

	return deps, cleanup, nil
}

// newSnapshotStore builds the configured backend. It returns a nil store for
// the "none" backend.
func newSnapshotStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (domain.SnapshotStore, func(), error) {
	switch strings.ToLower(cfg.Snapshot.Backend) {
	case "none":
		return nil, nil, nil
	case "file":
		return snapshot.NewFileStore(cfg.Snapshot.Path), nil, nil
	case "redis":
		if redisClient == nil {
			return nil, nil, fmt.Errorf("redis backend without a redis client")
		}
		return redis.NewSnapshotCache(redisClient, cfg.Snapshot.TTL.Duration), nil, nil
	case "s3":
		c, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("s3: %w", err)
		}
		store := snapshot.NewBlobStore(s3blob.NewWriter(c), s3blob.NewReader(c), cfg.Snapshot.Key)
		return store, func() { _ = c.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Snapshot.Backend)
	}
}
