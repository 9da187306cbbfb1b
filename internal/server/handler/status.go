package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

// TableHandler serves the table lifecycle endpoints: status, manual refresh
// and the snapshot download.
type TableHandler struct {
	tables TableService
	mode   string
	logger *slog.Logger
}

// NewTableHandler creates a TableHandler. mode is reported by GetStatus.
func NewTableHandler(tables TableService, mode string, logger *slog.Logger) *TableHandler {
	return &TableHandler{tables: tables, mode: mode, logger: logger}
}

// GetStatus reports the loaded table and the last refresh outcome.
// GET /api/status
func (h *TableHandler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":  h.mode,
		"table": h.tables.Status(),
	})
}

// Refresh fetches a fresh dataset and waits for the swap. A failure leaves
// the current table in place and is reported as 502.
// POST /api/refresh
func (h *TableHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "handler: refresh requested")
	start := time.Now()

	err := h.tables.Refresh(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrLockHeld):
		writeError(w, http.StatusConflict, "refresh already running")
		return
	case r.Context().Err() != nil:
		// Client went away; the refresh itself carries on.
		return
	default:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "refreshed",
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
		"table":   h.tables.Status(),
	})
}

// SnapshotCSV downloads the CSV the current table was built from.
// GET /api/snapshot.csv
func (h *TableHandler) SnapshotCSV(w http.ResponseWriter, r *http.Request) {
	data, err := h.tables.SnapshotCSV()
	if err != nil {
		writeServiceError(w, r, h.logger, "snapshot", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="polymarket_markets.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
