package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alanyoungcy/polyscreen/internal/domain"
	"github.com/alanyoungcy/polyscreen/internal/filter"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a service error to a status code. Unexpected
// errors are logged and reported as 500 without their detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNoTable):
		writeError(w, http.StatusServiceUnavailable, "no table loaded yet")
	default:
		logger.ErrorContext(r.Context(), "handler: "+op+" failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

// badQuery is a query-string problem; it always maps to 400.
func badQuery(format string, args ...any) error {
	return fmt.Errorf("handler: "+format+": %w", append(args, domain.ErrInvalidConfig)...)
}

// parseBool reads a boolean parameter, returning def when absent.
func parseBool(q url.Values, name string, def bool) (bool, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, badQuery("%s must be a boolean, got %q", name, v)
	}
	return b, nil
}

// parseFloat reads a float parameter, returning def when absent.
func parseFloat(q url.Values, name string, def float64) (float64, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, badQuery("%s must be a number, got %q", name, v)
	}
	return f, nil
}

// parseRange reads "min,max". It returns nil when the parameter is absent.
func parseRange(q url.Values, name string) (*filter.Range, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return nil, nil
	}
	lo, hi, ok := strings.Cut(v, ",")
	if !ok {
		return nil, badQuery("%s must be min,max, got %q", name, v)
	}
	minV, err1 := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	maxV, err2 := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err1 != nil || err2 != nil || math.IsInf(minV, 0) || math.IsInf(maxV, 0) {
		return nil, badQuery("%s must be min,max, got %q", name, v)
	}
	return &filter.Range{Min: minV, Max: maxV}, nil
}

// parseFilters overlays the global filter parameters on base.
//
//	tradeable, binary, exclude_up_or_down               booleans
//	liquidity, volume_24h, spread, time_to_resolution   min,max ranges
//	domain                                              repeated or comma separated
//	q                                                   substring search
func parseFilters(r *http.Request, base filter.Config) (filter.Config, error) {
	q := r.URL.Query()
	cfg := base
	var err error

	if cfg.TradeableOnly, err = parseBool(q, "tradeable", base.TradeableOnly); err != nil {
		return cfg, err
	}
	if cfg.BinaryOnly, err = parseBool(q, "binary", base.BinaryOnly); err != nil {
		return cfg, err
	}
	if cfg.ExcludeUpOrDown, err = parseBool(q, "exclude_up_or_down", base.ExcludeUpOrDown); err != nil {
		return cfg, err
	}

	ranges := []struct {
		name string
		dst  **filter.Range
	}{
		{"liquidity", &cfg.Liquidity},
		{"volume_24h", &cfg.Volume24h},
		{"spread", &cfg.Spread},
		{"time_to_resolution", &cfg.TimeToResolution},
	}
	for _, rg := range ranges {
		v, err := parseRange(q, rg.name)
		if err != nil {
			return cfg, err
		}
		if v != nil {
			*rg.dst = v
		}
	}

	if vals, ok := q["domain"]; ok {
		cfg.Domains = nil
		for _, v := range vals {
			for _, d := range strings.Split(v, ",") {
				if d = strings.TrimSpace(d); d != "" {
					cfg.Domains = append(cfg.Domains, d)
				}
			}
		}
	}
	if q.Has("q") {
		cfg.Search = q.Get("q")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// parseScreener overlays the screener parameters on base.
func parseScreener(r *http.Request, base filter.ScreenerConfig) (filter.ScreenerConfig, error) {
	q := r.URL.Query()
	sc := base
	var err error

	toggles := []struct {
		name string
		dst  *bool
	}{
		{"exclude_sports_crypto", &sc.ExcludeSportsCrypto},
		{"active_only", &sc.ActiveOnly},
		{"liquidity_band", &sc.LiquidityBand},
		{"spread_cap", &sc.SpreadCap},
		{"min_volume", &sc.MinVolume},
		{"time_window", &sc.TimeWindow},
	}
	for _, t := range toggles {
		if *t.dst, err = parseBool(q, t.name, *t.dst); err != nil {
			return sc, err
		}
	}

	if rg, err := parseRange(q, "band_liquidity"); err != nil {
		return sc, err
	} else if rg != nil {
		sc.Liquidity = *rg
	}
	if rg, err := parseRange(q, "band_time"); err != nil {
		return sc, err
	} else if rg != nil {
		sc.Time = *rg
	}
	if sc.MaxSpread, err = parseFloat(q, "max_spread", sc.MaxSpread); err != nil {
		return sc, err
	}
	if sc.MinVolume24h, err = parseFloat(q, "min_volume_24h", sc.MinVolume24h); err != nil {
		return sc, err
	}

	if err := sc.Validate(); err != nil {
		return sc, err
	}
	return sc, nil
}

// parsePage extracts pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parsePage(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	limit = defaultLimit
	if v := q.Get("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n <= 0 {
			return 0, 0, badQuery("limit must be a positive integer, got %q", v)
		}
		limit = min(n, maxLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return 0, 0, badQuery("offset must be a non-negative integer, got %q", v)
		}
		offset = n
	}
	return limit, offset, nil
}
