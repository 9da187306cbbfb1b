package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyscreen/internal/domain"
	"github.com/alanyoungcy/polyscreen/internal/filter"
	"github.com/alanyoungcy/polyscreen/internal/metrics"
	"github.com/alanyoungcy/polyscreen/internal/server/handler"
	"github.com/alanyoungcy/polyscreen/internal/server/middleware"
	"github.com/alanyoungcy/polyscreen/internal/service"
)

type downSource struct{}

func (downSource) FetchRows(context.Context) (domain.RawTable, error) {
	return domain.RawTable{}, errors.New("gamma unavailable")
}

type routeRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (r *routeRecorder) ObserveHTTP(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func newTestServer(t *testing.T, obs *routeRecorder, withMetrics bool) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewTableService(downSource{}, nil, nil, nil, nil, nil, logger, service.Options{
		FetchTimeout: time.Second,
	})
	defaults := handler.Defaults{Filters: filter.DefaultConfig(), Screener: filter.DefaultScreenerConfig()}
	h := Handlers{
		Health:  handler.NewHealthHandler(),
		Tables:  handler.NewTableHandler(svc, "serve", logger),
		Markets: handler.NewMarketHandler(svc, defaults, logger),
		Views:   handler.NewViewHandler(svc, defaults, logger),
	}
	if withMetrics {
		h.Metrics = metrics.New("test").Handler()
	}
	var o middleware.HTTPObserver
	if obs != nil {
		o = obs
	}
	srv := NewServer(Config{
		Addr:             "127.0.0.1:0",
		CORSOrigins:      []string{"http://localhost:5173"},
		RefreshPerMinute: 1,
	}, h, o, logger)
	return srv.Handler()
}

func TestServer_RoutesAndMiddleware(t *testing.T) {
	obs := &routeRecorder{}
	h := newTestServer(t, obs, false)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{"GET /api/health", "GET /api/markets", "unmatched"}, obs.routes)
}

func TestServer_RefreshIsRateLimited(t *testing.T) {
	h := newTestServer(t, &routeRecorder{}, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "gamma unavailable")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Reads are not limited.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	h := newTestServer(t, nil, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_"))
}
