package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polyscreen/internal/filter"
	"github.com/alanyoungcy/polyscreen/internal/service"
)

// ViewHandler serves the analytical views: overview, domain breakdown and
// the screener.
type ViewHandler struct {
	tables   TableService
	defaults Defaults
	logger   *slog.Logger
}

// NewViewHandler creates a ViewHandler.
func NewViewHandler(tables TableService, defaults Defaults, logger *slog.Logger) *ViewHandler {
	return &ViewHandler{tables: tables, defaults: defaults, logger: logger}
}

type overviewResponse struct {
	service.Overview
	Sample []marketJSON `json:"sample"`
}

// Overview summarises the filtered table.
// GET /api/overview?positive_only=true
func (h *ViewHandler) Overview(w http.ResponseWriter, r *http.Request) {
	cfg, err := parseFilters(r, h.defaults.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	positive, err := parseBool(r.URL.Query(), "positive_only", true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ov, err := h.tables.Overview(cfg, positive)
	if err != nil {
		writeServiceError(w, r, h.logger, "overview", err)
		return
	}
	writeJSON(w, http.StatusOK, overviewResponse{Overview: ov, Sample: toMarkets(ov.Sample)})
}

type domainStatsResponse struct {
	Filters   filter.Report    `json:"filters"`
	Domains   []domainStatJSON `json:"domains"`
	NoMatches bool             `json:"no_matches"`
}

// Domains returns per-domain counts and medians.
// GET /api/domains
func (h *ViewHandler) Domains(w http.ResponseWriter, r *http.Request) {
	cfg, err := parseFilters(r, h.defaults.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, err := h.tables.DomainStats(cfg)
	if err != nil {
		writeServiceError(w, r, h.logger, "domain stats", err)
		return
	}
	writeJSON(w, http.StatusOK, domainStatsResponse{
		Filters:   ds.Filters,
		Domains:   toDomainStats(ds.Domains),
		NoMatches: ds.NoMatches,
	})
}

type domainMarketsResponse struct {
	Filters   filter.Report  `json:"filters"`
	Stat      domainStatJSON `json:"stat"`
	Markets   []marketJSON   `json:"markets"`
	NoMatches bool           `json:"no_matches"`
}

// DomainMarkets drills into one domain.
// GET /api/domains/{domain}
func (h *ViewHandler) DomainMarkets(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("domain")
	cfg, err := parseFilters(r, h.defaults.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dm, err := h.tables.DomainMarkets(cfg, label)
	if err != nil {
		writeServiceError(w, r, h.logger.With(slog.String("domain", label)), "domain markets", err)
		return
	}
	writeJSON(w, http.StatusOK, domainMarketsResponse{
		Filters:   dm.Filters,
		Stat:      toDomainStat(dm.Stat),
		Markets:   toMarkets(dm.Markets),
		NoMatches: dm.NoMatches,
	})
}

type screenerResponse struct {
	Filters   filter.Report    `json:"filters"`
	SortKey   string           `json:"sort_key"`
	Domains   []domainStatJSON `json:"domains"`
	Markets   []marketJSON     `json:"markets"`
	Total     int              `json:"total"`
	NoMatches bool             `json:"no_matches"`
}

// Screener returns the screened and scored candidates.
// GET /api/screener?sort=alpha_score&max_spread=0.08&limit=100
func (h *ViewHandler) Screener(w http.ResponseWriter, r *http.Request) {
	cfg, err := parseFilters(r, h.defaults.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sc, err := parseScreener(r, h.defaults.Screener)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.tables.Screener(service.ScreenerQuery{
		Filters:  cfg,
		Screener: sc,
		SortKey:  r.URL.Query().Get("sort"),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "screener", err)
		return
	}

	total := len(res.Markets)
	lo := min(offset, total)
	hi := min(lo+limit, total)
	writeJSON(w, http.StatusOK, screenerResponse{
		Filters:   res.Filters,
		SortKey:   res.SortKey,
		Domains:   toDomainStats(res.Domains),
		Markets:   toMarkets(res.Markets[lo:hi]),
		Total:     total,
		NoMatches: res.NoMatches,
	})
}
