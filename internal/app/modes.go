package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polyscreen/internal/domain"
	"github.com/alanyoungcy/polyscreen/internal/server"
	"github.com/alanyoungcy/polyscreen/internal/server/handler"
	"github.com/alanyoungcy/polyscreen/internal/server/middleware"
	"github.com/alanyoungcy/polyscreen/internal/service"
)

// ServeMode loads the table, keeps it fresh on the configured interval and
// serves the HTTP API until the context is cancelled. A failed initial load
// is not fatal: the API answers 503 until a later refresh succeeds.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := deps.Tables.Load(ctx); err != nil && ctx.Err() == nil {
			a.logger.ErrorContext(ctx, "initial load failed, serving without a table",
				slog.String("error", err.Error()),
			)
		}
		return deps.Scheduler.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	defaults := handler.Defaults{
		Filters:  a.cfg.FilterConfig(),
		Screener: a.cfg.ScreenerSelection(),
	}
	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(),
		Tables:  handler.NewTableHandler(deps.Tables, a.cfg.Mode, a.logger),
		Markets: handler.NewMarketHandler(deps.Tables, defaults, a.logger),
		Views:   handler.NewViewHandler(deps.Tables, defaults, a.logger),
	}
	var obs middleware.HTTPObserver
	if deps.Metrics != nil {
		handlers.Metrics = deps.Metrics.Handler()
		obs = deps.Metrics
	}

	srv := server.NewServer(server.Config{
		Addr:             a.cfg.Server.Addr(),
		CORSOrigins:      a.cfg.Server.CORSOrigins,
		RefreshPerMinute: a.cfg.Server.RefreshPerMinute,
		WriteTimeout:     a.cfg.Fetch.Timeout.Duration + time.Minute,
	}, handlers, obs, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.String("addr", a.cfg.Server.Addr()),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)))
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// FetchMode refreshes the table once, storing the snapshot, and exits.
func (a *App) FetchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting fetch mode")

	if err := deps.Tables.Refresh(ctx); err != nil {
		return fmt.Errorf("fetch mode: %w", err)
	}
	st := deps.Tables.Status()
	attrs := []any{
		slog.Int("rows", st.Rows),
		slog.Int("notices", len(st.Notices)),
	}
	if st.Snapshot != nil {
		attrs = append(attrs,
			slog.String("backend", st.Snapshot.Backend),
			slog.String("location", st.Snapshot.Location),
			slog.Int64("bytes", st.Snapshot.Size),
		)
	} else if deps.Store != nil {
		return fmt.Errorf("fetch mode: snapshot was not saved to %s", deps.Store.Name())
	}
	a.logger.InfoContext(ctx, "fetch complete", attrs...)
	return nil
}

// ScreenMode loads the table (stored snapshot first) and prints the
// screener view.
func (a *App) ScreenMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting screen mode")

	if err := deps.Tables.Load(ctx); err != nil {
		return fmt.Errorf("screen mode: %w", err)
	}
	res, err := deps.Tables.Screener(service.ScreenerQuery{
		Filters:  a.cfg.FilterConfig(),
		Screener: a.cfg.ScreenerSelection(),
		SortKey:  a.screen.SortKey,
	})
	if err != nil {
		return fmt.Errorf("screen mode: %w", err)
	}
	rows := res.Markets
	if a.screen.Limit > 0 && len(rows) > a.screen.Limit {
		rows = rows[:a.screen.Limit]
	}

	switch strings.ToLower(a.screen.Format) {
	case "json":
		return writeScreenJSON(a.screen.Out, res.SortKey, rows)
	case "table":
		return writeScreenTable(a.screen.Out, rows)
	default:
		return fmt.Errorf("screen mode: unknown format %q", a.screen.Format)
	}
}

type screenRow struct {
	Rank          int      `json:"rank"`
	ID            string   `json:"market_id"`
	Question      string   `json:"question"`
	Domain        string   `json:"domain"`
	ScreenerScore *float64 `json:"screener_score"`
	AlphaScore    *float64 `json:"alpha_score"`
	Liquidity     *float64 `json:"liquidity_num"`
	Volume24h     *float64 `json:"volume_24h"`
	Spread        *float64 `json:"spread"`
	Days          *float64 `json:"time_to_resolution_days"`
	URL           string   `json:"url"`
}

func optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeScreenJSON(w io.Writer, sortKey string, rows []domain.Market) error {
	out := struct {
		SortKey string      `json:"sort_key"`
		Markets []screenRow `json:"markets"`
	}{SortKey: sortKey, Markets: make([]screenRow, len(rows))}
	for i, m := range rows {
		out.Markets[i] = screenRow{
			Rank:          i + 1,
			ID:            m.ID,
			Question:      m.Question,
			Domain:        m.Domain,
			ScreenerScore: optional(m.ScreenerScore),
			AlphaScore:    optional(m.AlphaScore),
			Liquidity:     optional(m.Liquidity),
			Volume24h:     optional(m.Volume24h),
			Spread:        optional(m.Spread),
			Days:          optional(m.TimeToResolutionDays),
			URL:           m.URL,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("screen mode: encode: %w", err)
	}
	return nil
}

func writeScreenTable(w io.Writer, rows []domain.Market) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tALPHA\tDOMAIN\tLIQUIDITY\tVOL24H\tSPREAD\tDAYS\tQUESTION")
	for i, m := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			cell(m.ScreenerScore, 3),
			cell(m.AlphaScore, 3),
			m.Domain,
			cell(m.Liquidity, 0),
			cell(m.Volume24h, 0),
			cell(m.Spread, 3),
			cell(m.TimeToResolutionDays, 1),
			truncate(m.Question, 70),
		)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("screen mode: write table: %w", err)
	}
	return nil
}

func cell(v float64, prec int) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
