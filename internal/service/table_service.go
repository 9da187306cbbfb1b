// Package service owns the loaded market table: it builds tables from
// fetched or stored datasets, swaps them atomically, and computes the views
// served by the API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/alanyoungcy/polyscreen/internal/domain"
	"github.com/alanyoungcy/polyscreen/internal/feature"
	"github.com/alanyoungcy/polyscreen/internal/filter"
	"github.com/alanyoungcy/polyscreen/internal/forecast"
	"github.com/alanyoungcy/polyscreen/internal/metrics"
	"github.com/alanyoungcy/polyscreen/internal/normalize"
	"github.com/alanyoungcy/polyscreen/internal/snapshot"
)

// Notification events raised by the service.
const (
	EventRefreshFailed    = "refresh_failed"
	EventRefreshSucceeded = "refresh_succeeded"
)

const refreshLockKey = "refresh"

// Notifier delivers operator notifications.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Options tunes refresh behaviour.
type Options struct {
	// FetchTimeout bounds a single upstream fetch. Default 5m.
	FetchTimeout time.Duration
	// LockTTL is how long the shared refresh lock is held at most.
	// Default FetchTimeout plus one minute.
	LockTTL time.Duration
	// Now is the clock used for time_to_resolution_days. Default time.Now.
	Now func() time.Time
}

// loaded pairs a table with the CSV it was built from.
type loaded struct {
	table *domain.Table
	csv   []byte
}

// TableService holds the current table. Reads never block on a refresh: a
// refresh builds a complete new table and swaps the pointer.
type TableService struct {
	source    domain.MarketSource
	store     domain.SnapshotStore
	lock      domain.RefreshLock
	estimator forecast.Estimator
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	opts      Options

	current atomic.Pointer[loaded]
	group   singleflight.Group
	running atomic.Bool

	mu           sync.RWMutex
	lastErr      error
	lastErrAt    time.Time
	lastSnapshot *domain.SnapshotInfo
}

// NewTableService creates a TableService. store, lock, estimator and
// notifier may be nil.
func NewTableService(
	source domain.MarketSource,
	store domain.SnapshotStore,
	lock domain.RefreshLock,
	estimator forecast.Estimator,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts Options,
) *TableService {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Minute
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = opts.FetchTimeout + time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if estimator == nil {
		estimator = forecast.Noop{}
	}
	return &TableService{
		source:    source,
		store:     store,
		lock:      lock,
		estimator: estimator,
		notifier:  notifier,
		metrics:   m,
		logger:    logger.With(slog.String("component", "table_service")),
		opts:      opts,
	}
}

// Current returns the loaded table or domain.ErrNoTable.
func (s *TableService) Current() (*domain.Table, error) {
	l := s.current.Load()
	if l == nil {
		return nil, domain.ErrNoTable
	}
	return l.table, nil
}

// Load performs the cold start: the stored snapshot when there is one,
// otherwise a fresh fetch.
func (s *TableService) Load(ctx context.Context) error {
	if s.store != nil {
		err := s.LoadSnapshot(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrNoSnapshot) {
			s.logger.InfoContext(ctx, "no stored snapshot, fetching", slog.String("backend", s.store.Name()))
		} else {
			s.logger.WarnContext(ctx, "stored snapshot unusable, fetching",
				slog.String("backend", s.store.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
	return s.Refresh(ctx)
}

// LoadSnapshot builds the table from the stored snapshot.
func (s *TableService) LoadSnapshot(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("table_service: load snapshot: %w", domain.ErrNoSnapshot)
	}
	data, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("table_service: load snapshot: %w", err)
	}
	raw, err := snapshot.Decode(data)
	if err != nil {
		return fmt.Errorf("table_service: decode snapshot: %w", err)
	}
	t := s.build(ctx, raw, "snapshot:"+s.store.Name())
	s.swap(t, data)
	s.logger.InfoContext(ctx, "table loaded from snapshot",
		slog.String("table_id", t.ID.String()),
		slog.Int("rows", len(t.Markets)),
	)
	return nil
}

// Refresh fetches a fresh dataset and replaces the table. Concurrent calls
// share one fetch. On failure the current table stays in place and the error
// is returned and recorded for Status.
func (s *TableService) Refresh(ctx context.Context) error {
	ch := s.group.DoChan("refresh", func() (any, error) {
		// Detached so one caller going away does not fail the others.
		return nil, s.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return fmt.Errorf("table_service: refresh: %w", ctx.Err())
	case res := <-ch:
		return res.Err
	}
}

func (s *TableService) refresh(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)
	start := time.Now()

	if s.lock != nil {
		unlock, err := s.lock.Acquire(ctx, refreshLockKey, s.opts.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				s.metrics.ObserveRefresh("skipped", time.Since(start))
				s.logger.InfoContext(ctx, "refresh already running elsewhere")
				return fmt.Errorf("table_service: refresh: %w", err)
			}
			s.logger.WarnContext(ctx, "refresh lock unavailable, continuing unlocked",
				slog.String("error", err.Error()),
			)
		} else {
			defer unlock()
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	raw, err := s.source.FetchRows(fetchCtx)
	if err != nil {
		return s.fail(ctx, start, fmt.Errorf("table_service: fetch: %w", err))
	}

	data, err := snapshot.Encode(raw)
	if err != nil {
		return s.fail(ctx, start, fmt.Errorf("table_service: encode: %w", err))
	}
	// Build from the encoded form so a fetch and a later cold start from the
	// same snapshot produce identical tables.
	decoded, err := snapshot.Decode(data)
	if err != nil {
		return s.fail(ctx, start, fmt.Errorf("table_service: decode: %w", err))
	}
	t := s.build(ctx, decoded, "gamma")

	if s.store != nil {
		info, err := s.store.Save(ctx, data)
		if err != nil {
			s.logger.WarnContext(ctx, "snapshot save failed",
				slog.String("backend", s.store.Name()),
				slog.String("error", err.Error()),
			)
			// The stored snapshot no longer matches the table.
			t.Notices = append(t.Notices, fmt.Sprintf("snapshot not saved to %s: %v", s.store.Name(), err))
			s.mu.Lock()
			s.lastSnapshot = nil
			s.mu.Unlock()
		} else {
			s.mu.Lock()
			s.lastSnapshot = &info
			s.mu.Unlock()
		}
	}

	s.swap(t, data)
	s.mu.Lock()
	s.lastErr = nil
	s.lastErrAt = time.Time{}
	s.mu.Unlock()

	elapsed := time.Since(start)
	s.metrics.ObserveRefresh("ok", elapsed)
	s.logger.InfoContext(ctx, "table refreshed",
		slog.String("table_id", t.ID.String()),
		slog.Int("rows", len(t.Markets)),
		slog.Int("notices", len(t.Notices)),
		slog.Duration("elapsed", elapsed),
	)
	if s.notifier != nil {
		s.notify(ctx, EventRefreshSucceeded, "Table refreshed",
			fmt.Sprintf("%d markets loaded in %s", len(t.Markets), elapsed.Round(time.Millisecond)))
	}
	return nil
}

// fail records a failed refresh and returns err.
func (s *TableService) fail(ctx context.Context, start time.Time, err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.lastErrAt = s.opts.Now().UTC()
	s.mu.Unlock()

	s.metrics.ObserveRefresh("error", time.Since(start))
	s.logger.ErrorContext(ctx, "refresh failed, keeping current table", slog.String("error", err.Error()))
	if s.notifier != nil {
		s.notify(ctx, EventRefreshFailed, "Table refresh failed", err.Error())
	}
	return err
}

func (s *TableService) notify(ctx context.Context, event, title, message string) {
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// build runs normalization, derivation and estimation over raw.
func (s *TableService) build(ctx context.Context, raw domain.RawTable, source string) *domain.Table {
	now := s.opts.Now().UTC()
	markets, notices := normalize.Table(raw)
	maxLiq := feature.Derive(markets, now)

	if n, err := forecast.Attach(ctx, markets, s.estimator); err != nil {
		s.logger.WarnContext(ctx, "estimates unavailable", slog.String("error", err.Error()))
		notices = append(notices, "estimates unavailable: "+err.Error())
	} else if n > 0 {
		s.logger.DebugContext(ctx, "estimates attached", slog.Int("markets", n))
	}

	return &domain.Table{
		ID:           uuid.New(),
		LoadedAt:     now,
		Source:       source,
		Markets:      markets,
		MaxLiquidity: maxLiq,
		Notices:      notices,
	}
}

func (s *TableService) swap(t *domain.Table, csv []byte) {
	s.current.Store(&loaded{table: t, csv: csv})
	s.metrics.SetTable(len(t.Markets), t.LoadedAt)
}

// Status describes the service state for the API.
type Status struct {
	Loaded       bool                 `json:"loaded"`
	TableID      string               `json:"table_id,omitempty"`
	LoadedAt     *time.Time           `json:"loaded_at,omitempty"`
	Source       string               `json:"source,omitempty"`
	Rows         int                  `json:"rows"`
	Notices      []string             `json:"notices"`
	Refreshing   bool                 `json:"refreshing"`
	LastError    string               `json:"last_error,omitempty"`
	LastErrorAt  *time.Time           `json:"last_error_at,omitempty"`
	Snapshot     *domain.SnapshotInfo `json:"snapshot,omitempty"`
	SnapshotName string               `json:"snapshot_backend,omitempty"`
}

// Status reports the current table and the outcome of the last refresh.
func (s *TableService) Status() Status {
	st := Status{Notices: []string{}, Refreshing: s.running.Load()}
	if l := s.current.Load(); l != nil {
		at := l.table.LoadedAt
		st.Loaded = true
		st.TableID = l.table.ID.String()
		st.LoadedAt = &at
		st.Source = l.table.Source
		st.Rows = len(l.table.Markets)
		st.Notices = append(st.Notices, l.table.Notices...)
	}
	if s.store != nil {
		st.SnapshotName = s.store.Name()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastErr != nil {
		at := s.lastErrAt
		st.LastError = s.lastErr.Error()
		st.LastErrorAt = &at
	}
	if s.lastSnapshot != nil {
		info := *s.lastSnapshot
		st.Snapshot = &info
	}
	return st
}

// SnapshotCSV returns the CSV the current table was built from.
func (s *TableService) SnapshotCSV() ([]byte, error) {
	l := s.current.Load()
	if l == nil {
		return nil, domain.ErrNoTable
	}
	return l.csv, nil
}

func (s *TableService) rows() ([]domain.Market, error) {
	t, err := s.Current()
	if err != nil {
		return nil, fmt.Errorf("table_service: %w", err)
	}
	return t.Snapshot(), nil
}

// Overview computes the overview view over the current table.
func (s *TableService) Overview(cfg filter.Config, positiveOnly bool) (Overview, error) {
	rows, err := s.rows()
	if err != nil {
		return Overview{}, err
	}
	ov, err := BuildOverview(rows, cfg, positiveOnly)
	if err == nil {
		s.metrics.ObserveView("overview", ov.Count)
	}
	return ov, err
}

// DomainStats computes the per-domain breakdown over the current table.
func (s *TableService) DomainStats(cfg filter.Config) (DomainStats, error) {
	rows, err := s.rows()
	if err != nil {
		return DomainStats{}, err
	}
	ds, err := BuildDomainStats(rows, cfg)
	if err == nil {
		s.metrics.ObserveView("domains", len(ds.Domains))
	}
	return ds, err
}

// DomainMarkets narrows the current table to one domain.
func (s *TableService) DomainMarkets(cfg filter.Config, label string) (DomainMarkets, error) {
	rows, err := s.rows()
	if err != nil {
		return DomainMarkets{}, err
	}
	dm, err := BuildDomainMarkets(rows, cfg, label)
	if err == nil {
		s.metrics.ObserveView("domain_markets", dm.Stat.Count)
	}
	return dm, err
}

// Screener computes the screener view over the current table.
func (s *TableService) Screener(q ScreenerQuery) (ScreenerResult, error) {
	rows, err := s.rows()
	if err != nil {
		return ScreenerResult{}, err
	}
	sr, err := BuildScreener(rows, q)
	if err == nil {
		s.metrics.ObserveView("screener", len(sr.Markets))
	}
	return sr, err
}

// Markets lists the filtered current table.
func (s *TableService) Markets(q ListQuery) (MarketList, error) {
	rows, err := s.rows()
	if err != nil {
		return MarketList{}, err
	}
	ml, err := BuildMarketList(rows, q)
	if err == nil {
		s.metrics.ObserveView("markets", ml.Total)
	}
	return ml, err
}

// Market returns one market of the current table by id.
func (s *TableService) Market(id string) (domain.Market, error) {
	t, err := s.Current()
	if err != nil {
		return domain.Market{}, fmt.Errorf("table_service: %w", err)
	}
	m, ok := t.Lookup(id)
	if !ok {
		return domain.Market{}, fmt.Errorf("table_service: market %s: %w", id, domain.ErrNotFound)
	}
	return m, nil
}
