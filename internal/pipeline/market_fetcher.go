// Package pipeline pulls open events from the Gamma API and flattens them
// into the raw market dataset, and schedules periodic table refreshes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/polyscreen/internal/domain"
	"github.com/alanyoungcy/polyscreen/internal/metrics"
	"github.com/alanyoungcy/polyscreen/internal/platform/polymarket"
)

// EventFetcher retrieves one page of events from the Gamma API.
type EventFetcher interface {
	GetEvents(ctx context.Context, limit, offset int) ([]polymarket.APIEvent, error)
}

// FetcherConfig tunes pagination, pacing and retries.
type FetcherConfig struct {
	PageSize          int
	MaxPages          int // 0 means no limit
	RequestsPerSecond float64
	Burst             int
	Retries           int
	RetryBackoff      time.Duration
	Flatten           FlattenOptions
}

func (c FetcherConfig) withDefaults() FetcherConfig {
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 5
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	return c
}

// MarketFetcher implements domain.MarketSource over the Gamma events feed.
// Page requests are paced by a token bucket and guarded by a circuit
// breaker that opens after three consecutive failed pages.
type MarketFetcher struct {
	events  EventFetcher
	cfg     FetcherConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewMarketFetcher creates a MarketFetcher.
func NewMarketFetcher(events EventFetcher, cfg FetcherConfig, m *metrics.Metrics, logger *slog.Logger) *MarketFetcher {
	cfg = cfg.withDefaults()
	logger = logger.With(slog.String("component", "market_fetcher"))

	st := gobreaker.Settings{
		Name:     "gamma-events",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &MarketFetcher{
		events:  events,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(st),
		metrics: m,
		logger:  logger,
	}
}

// FetchRows paginates through every open event and returns one row per
// kept market. Pagination stops on an empty or short page.
func (f *MarketFetcher) FetchRows(ctx context.Context) (domain.RawTable, error) {
	var rows []map[string]string
	offset := 0
	pages := 0
	totalEvents := 0

	for {
		if err := ctx.Err(); err != nil {
			return domain.RawTable{}, fmt.Errorf("pipeline: fetch cancelled: %w", err)
		}

		events, err := f.page(ctx, offset)
		if err != nil {
			return domain.RawTable{}, fmt.Errorf("pipeline: events at offset %d: %w", offset, err)
		}
		pages++
		f.metrics.IncFetchPages()

		if len(events) == 0 {
			break
		}
		for i := range events {
			rows = append(rows, FlattenEvent(events[i], f.cfg.Flatten)...)
		}
		totalEvents += len(events)

		f.logger.Debug("fetched event page",
			slog.Int("batch_size", len(events)),
			slog.Int("offset", offset),
			slog.Int("rows", len(rows)),
		)

		if len(events) < f.cfg.PageSize {
			break
		}
		if f.cfg.MaxPages > 0 && pages >= f.cfg.MaxPages {
			f.logger.Warn("page limit reached", slog.Int("max_pages", f.cfg.MaxPages))
			break
		}
		offset += f.cfg.PageSize
	}

	f.logger.Info("event fetch complete",
		slog.Int("pages", pages),
		slog.Int("events", totalEvents),
		slog.Int("rows", len(rows)),
	)
	return domain.NewRawTable(rows), nil
}

// page fetches one page, retrying transient failures with linear backoff.
func (f *MarketFetcher) page(ctx context.Context, offset int) ([]polymarket.APIEvent, error) {
	var lastErr error
	for attempt := 0; attempt <= f.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * f.cfg.RetryBackoff):
			}
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		res, err := f.breaker.Execute(func() (interface{}, error) {
			return f.events.GetEvents(ctx, f.cfg.PageSize, offset)
		})
		if err == nil {
			events, _ := res.([]polymarket.APIEvent)
			return events, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			f.metrics.IncFetchError("breaker_open")
			return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
		case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrNotFound):
			f.metrics.IncFetchError("http")
			return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
		case errors.Is(err, domain.ErrRateLimited):
			f.metrics.IncFetchError("rate_limited")
		default:
			f.metrics.IncFetchError("transport")
		}
		f.logger.Warn("event page failed",
			slog.Int("offset", offset),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, lastErr)
}

// Compile-time interface check.
var _ domain.MarketSource = (*MarketFetcher)(nil)
