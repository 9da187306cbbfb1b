package handler

import (
	"math"
	"time"

	"github.com/alanyoungcy/polyscreen/internal/domain"
	"github.com/alanyoungcy/polyscreen/internal/service"
)

// num renders a missing or non-finite value as JSON null.
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func ts(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

type marketJSON struct {
	ID         string `json:"market_id"`
	Slug       string `json:"market_slug"`
	EventID    string `json:"event_id"`
	EventSlug  string `json:"event_slug"`
	EventTitle string `json:"event_title"`
	Question   string `json:"question"`
	URL        string `json:"url"`

	Active          bool `json:"active"`
	Closed          bool `json:"closed"`
	EnableOrderBook bool `json:"enable_order_book"`
	AcceptingOrders bool `json:"accepting_orders"`

	Liquidity         *float64 `json:"liquidity_num"`
	LiquidityAMM      *float64 `json:"liquidity_amm"`
	LiquidityCLOB     *float64 `json:"liquidity_clob"`
	EventLiquidity    *float64 `json:"event_liquidity"`
	EventVolume       *float64 `json:"event_volume"`
	EventOpenInterest *float64 `json:"event_open_interest"`
	Volume            *float64 `json:"volume_num"`
	Volume24h         *float64 `json:"volume_24h"`
	Volume1w          *float64 `json:"volume_1w"`
	Volume1m          *float64 `json:"volume_1m"`
	Volume1y          *float64 `json:"volume_1y"`

	BestBid        *float64 `json:"best_bid"`
	BestAsk        *float64 `json:"best_ask"`
	LastTradePrice *float64 `json:"last_trade_price"`

	EventStartDate  *time.Time `json:"event_start_date"`
	EventEndDate    *time.Time `json:"event_end_date"`
	MarketStartDate *time.Time `json:"market_start_date"`
	StartDateISO    *time.Time `json:"market_start_date_iso"`
	MarketEndDate   *time.Time `json:"market_end_date"`
	EndDateISO      *time.Time `json:"market_end_date_iso"`
	UMAEndDateISO   *time.Time `json:"uma_end_date_iso"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
	ClosedTime      *time.Time `json:"closed_time"`

	Tags     string `json:"event_tags_labels"`
	Outcomes string `json:"outcomes_raw"`

	Spread               *float64           `json:"spread"`
	MidPrice             *float64           `json:"mid_price"`
	TimeToResolutionDays *float64           `json:"time_to_resolution_days"`
	IsBinaryLike         bool               `json:"is_binary_like"`
	Flags                domain.DomainFlags `json:"flags"`
	Domain               string             `json:"domain"`
	QualityScore         *float64           `json:"quality_score"`
	AlphaScore           *float64           `json:"alpha_score"`
	ScreenerScore        *float64           `json:"screener_score"`
	PTrue                *float64           `json:"p_true"`
	ImpliedProb          *float64           `json:"implied_prob"`
	Edge                 *float64           `json:"edge"`

	Extra map[string]string `json:"extra,omitempty"`
}

func toMarket(m domain.Market, withExtra bool) marketJSON {
	out := marketJSON{
		ID:                   m.ID,
		Slug:                 m.Slug,
		EventID:              m.EventID,
		EventSlug:            m.EventSlug,
		EventTitle:           m.EventTitle,
		Question:             m.Question,
		URL:                  m.URL,
		Active:               m.Active,
		Closed:               m.Closed,
		EnableOrderBook:      m.EnableOrderBook,
		AcceptingOrders:      m.AcceptingOrders,
		Liquidity:            num(m.Liquidity),
		LiquidityAMM:         num(m.LiquidityAMM),
		LiquidityCLOB:        num(m.LiquidityCLOB),
		EventLiquidity:       num(m.EventLiquidity),
		EventVolume:          num(m.EventVolume),
		EventOpenInterest:    num(m.EventOpenInterest),
		Volume:               num(m.Volume),
		Volume24h:            num(m.Volume24h),
		Volume1w:             num(m.Volume1w),
		Volume1m:             num(m.Volume1m),
		Volume1y:             num(m.Volume1y),
		BestBid:              num(m.BestBid),
		BestAsk:              num(m.BestAsk),
		LastTradePrice:       num(m.LastTradePrice),
		EventStartDate:       ts(m.EventStartDate),
		EventEndDate:         ts(m.EventEndDate),
		MarketStartDate:      ts(m.MarketStartDate),
		StartDateISO:         ts(m.MarketStartDateISO),
		MarketEndDate:        ts(m.MarketEndDate),
		EndDateISO:           ts(m.MarketEndDateISO),
		UMAEndDateISO:        ts(m.UMAEndDateISO),
		CreatedAt:            ts(m.CreatedAt),
		UpdatedAt:            ts(m.UpdatedAt),
		ClosedTime:           ts(m.ClosedTime),
		Tags:                 m.TagsLabels,
		Outcomes:             m.OutcomesRaw,
		Spread:               num(m.Spread),
		MidPrice:             num(m.MidPrice),
		TimeToResolutionDays: num(m.TimeToResolutionDays),
		IsBinaryLike:         m.IsBinaryLike,
		Flags:                m.Flags,
		Domain:               m.Domain,
		QualityScore:         num(m.QualityScore),
		AlphaScore:           num(m.AlphaScore),
		ScreenerScore:        num(m.ScreenerScore),
		PTrue:                num(m.PTrue),
		ImpliedProb:          num(m.ImpliedProb),
		Edge:                 num(m.Edge),
	}
	if withExtra && len(m.Extra) > 0 {
		out.Extra = m.Extra
	}
	return out
}

func toMarkets(ms []domain.Market) []marketJSON {
	out := make([]marketJSON, len(ms))
	for i := range ms {
		out[i] = toMarket(ms[i], false)
	}
	return out
}

type domainStatJSON struct {
	Domain          string   `json:"domain"`
	Count           int      `json:"count"`
	MedianLiquidity *float64 `json:"median_liquidity"`
	MedianVolume24h *float64 `json:"median_volume_24h"`
	MedianSpread    *float64 `json:"median_spread"`
	MedianQuality   *float64 `json:"median_quality_score"`
}

func toDomainStat(s service.DomainStat) domainStatJSON {
	return domainStatJSON{
		Domain:          s.Domain,
		Count:           s.Count,
		MedianLiquidity: num(s.MedianLiquidity),
		MedianVolume24h: num(s.MedianVolume24h),
		MedianSpread:    num(s.MedianSpread),
		MedianQuality:   num(s.MedianQuality),
	}
}

func toDomainStats(ss []service.DomainStat) []domainStatJSON {
	out := make([]domainStatJSON, len(ss))
	for i := range ss {
		out[i] = toDomainStat(ss[i])
	}
	return out
}
