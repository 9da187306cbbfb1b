package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polyscreen/internal/filter"
	"github.com/alanyoungcy/polyscreen/internal/service"
)

// MarketHandler serves the market list and drill-down endpoints.
type MarketHandler struct {
	tables   TableService
	defaults Defaults
	logger   *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(tables TableService, defaults Defaults, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{tables: tables, defaults: defaults, logger: logger}
}

type listMarketsResponse struct {
	Filters   filter.Report `json:"filters"`
	Markets   []marketJSON  `json:"markets"`
	Total     int           `json:"total"`
	SortKey   string        `json:"sort_key,omitempty"`
	Limit     int           `json:"limit"`
	Offset    int           `json:"offset"`
	NoMatches bool          `json:"no_matches"`
}

// ListMarkets returns the globally filtered table, optionally sorted.
// GET /api/markets?liquidity=100,5000&domain=Politics&sort=quality_score&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	cfg, err := parseFilters(r, h.defaults.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.tables.Markets(service.ListQuery{
		Filters: cfg,
		SortKey: r.URL.Query().Get("sort"),
		Offset:  offset,
		Limit:   limit,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "list markets", err)
		return
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Filters:   list.Filters,
		Markets:   toMarkets(list.Markets),
		Total:     list.Total,
		SortKey:   list.SortKey,
		Limit:     limit,
		Offset:    offset,
		NoMatches: list.NoMatches,
	})
}

// GetMarket returns a single market by its ID, including its raw extra
// columns.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.tables.Market(id)
	if err != nil {
		writeServiceError(w, r, h.logger.With(slog.String("market_id", id)), "get market", err)
		return
	}
	writeJSON(w, http.StatusOK, toMarket(market, true))
}
