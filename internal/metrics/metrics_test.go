package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, c.Write(&pb))
	if pb.Counter != nil {
		return pb.Counter.GetValue()
	}
	return pb.Gauge.GetValue()
}

func TestMetrics_Counters(t *testing.T) {
	m := New("test")
	m.ObserveRefresh("ok", time.Second)
	m.ObserveRefresh("ok", time.Second)
	m.ObserveRefresh("error", time.Second)
	m.IncFetchPages()
	m.SetTable(42, time.Unix(1700000000, 0))

	assert.Equal(t, 2.0, value(t, m.RefreshTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, value(t, m.RefreshTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, value(t, m.FetchPages))
	assert.Equal(t, 42.0, value(t, m.TableRows))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRefresh("ok", time.Second)
	m.ObserveView("overview", 3)
	m.IncFetchPages()
	m.IncFetchError("http")
	m.ObserveHTTP("GET", "/api/health", 200, time.Millisecond)
	m.SetTable(1, time.Now())
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New("test")
	m.ObserveView("overview", 10)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_view_rows_bucket"))
}
