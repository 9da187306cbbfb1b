package handler

import (
	"context"

	"github.com/alanyoungcy/polyscreen/internal/domain"
	"github.com/alanyoungcy/polyscreen/internal/filter"
	"github.com/alanyoungcy/polyscreen/internal/service"
)

// TableService is what the handlers need from the table service. It is
// declared locally so tests can substitute a fake.
type TableService interface {
	Status() service.Status
	Refresh(ctx context.Context) error
	SnapshotCSV() ([]byte, error)
	Overview(cfg filter.Config, positiveOnly bool) (service.Overview, error)
	DomainStats(cfg filter.Config) (service.DomainStats, error)
	DomainMarkets(cfg filter.Config, label string) (service.DomainMarkets, error)
	Screener(q service.ScreenerQuery) (service.ScreenerResult, error)
	Markets(q service.ListQuery) (service.MarketList, error)
	Market(id string) (domain.Market, error)
}

// Defaults are the filter selections a request starts from before its
// query parameters are applied.
type Defaults struct {
	Filters  filter.Config
	Screener filter.ScreenerConfig
}
