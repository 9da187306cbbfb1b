// Package normalize coerces raw string cells into typed market records.
// Malformed values become missing; a row is never rejected for its content.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

var floatFields = map[string]func(*domain.Market) *float64{
	"liquidity_num":      func(m *domain.Market) *float64 { return &m.Liquidity },
	"liquidity_amm":      func(m *domain.Market) *float64 { return &m.LiquidityAMM },
	"liquidity_clob":     func(m *domain.Market) *float64 { return &m.LiquidityCLOB },
	"event_liquidity":    func(m *domain.Market) *float64 { return &m.EventLiquidity },
	"event_volume":       func(m *domain.Market) *float64 { return &m.EventVolume },
	"event_openInterest": func(m *domain.Market) *float64 { return &m.EventOpenInterest },
	"volume_num":         func(m *domain.Market) *float64 { return &m.Volume },
	"volume_24h":         func(m *domain.Market) *float64 { return &m.Volume24h },
	"volume_1w":          func(m *domain.Market) *float64 { return &m.Volume1w },
	"volume_1m":          func(m *domain.Market) *float64 { return &m.Volume1m },
	"volume_1y":          func(m *domain.Market) *float64 { return &m.Volume1y },
	"lastTradePrice":     func(m *domain.Market) *float64 { return &m.LastTradePrice },
	"bestBid":            func(m *domain.Market) *float64 { return &m.BestBid },
	"bestAsk":            func(m *domain.Market) *float64 { return &m.BestAsk },
}

var timeFields = map[string]func(*domain.Market) *time.Time{
	"event_startDate":     func(m *domain.Market) *time.Time { return &m.EventStartDate },
	"event_endDate":       func(m *domain.Market) *time.Time { return &m.EventEndDate },
	"market_startDate":    func(m *domain.Market) *time.Time { return &m.MarketStartDate },
	"market_endDate":      func(m *domain.Market) *time.Time { return &m.MarketEndDate },
	"market_startDateIso": func(m *domain.Market) *time.Time { return &m.MarketStartDateISO },
	"market_endDateIso":   func(m *domain.Market) *time.Time { return &m.MarketEndDateISO },
	"umaEndDateIso":       func(m *domain.Market) *time.Time { return &m.UMAEndDateISO },
	"createdAt":           func(m *domain.Market) *time.Time { return &m.CreatedAt },
	"updatedAt":           func(m *domain.Market) *time.Time { return &m.UpdatedAt },
	"closedTime":          func(m *domain.Market) *time.Time { return &m.ClosedTime },
}

var stringFields = map[string]func(*domain.Market) *string{
	"market_id":         func(m *domain.Market) *string { return &m.ID },
	"market_slug":       func(m *domain.Market) *string { return &m.Slug },
	"event_id":          func(m *domain.Market) *string { return &m.EventID },
	"event_slug":        func(m *domain.Market) *string { return &m.EventSlug },
	"event_title":       func(m *domain.Market) *string { return &m.EventTitle },
	"market_question":   func(m *domain.Market) *string { return &m.Question },
	"event_tags_labels": func(m *domain.Market) *string { return &m.TagsLabels },
	"outcomes_raw":      func(m *domain.Market) *string { return &m.OutcomesRaw },
}

type boolField struct {
	ptr func(*domain.Market) *bool
	def bool
}

var boolFields = map[string]boolField{
	"market_active":     {func(m *domain.Market) *bool { return &m.Active }, true},
	"market_closed":     {func(m *domain.Market) *bool { return &m.Closed }, false},
	"enable_order_book": {func(m *domain.Market) *bool { return &m.EnableOrderBook }, true},
	"accepting_orders":  {func(m *domain.Market) *bool { return &m.AcceptingOrders }, true},
}

// absentEffects lists the columns whose absence changes derived output and
// what the change is.
var absentEffects = []struct {
	cols   []string
	effect string
}{
	{[]string{"market_id"}, "rows cannot be deduplicated or looked up"},
	{[]string{"bestBid", "bestAsk"}, "spread and mid_price are missing for every row"},
	{[]string{"liquidity_num"}, "liquidity treated as 0"},
	{[]string{"volume_24h"}, "24h volume treated as 0"},
	{[]string{"market_endDateIso", "market_endDate", "event_endDate"}, "time_to_resolution_days is missing for every row"},
	{[]string{"event_tags_labels"}, "all domain flags false, domain Other"},
	{[]string{"outcomes_raw"}, "is_binary_like false for every row"},
}

// Table normalizes every row of raw. Rows repeating an already seen
// market_id are dropped. The returned notices describe absent columns and
// dropped rows.
func Table(raw domain.RawTable) ([]domain.Market, []string) {
	notices := missingColumns(raw)

	markets := make([]domain.Market, 0, len(raw.Rows))
	seen := make(map[string]bool, len(raw.Rows))
	dupes := 0
	for _, row := range raw.Rows {
		m := Row(row)
		if m.ID != "" {
			if seen[m.ID] {
				dupes++
				continue
			}
			seen[m.ID] = true
		}
		markets = append(markets, m)
	}
	if dupes > 0 {
		notices = append(notices, fmt.Sprintf("dropped %d rows with a duplicate market_id", dupes))
	}
	return markets, notices
}

// Row normalizes a single raw row.
func Row(row map[string]string) domain.Market {
	m := domain.NewMarket()
	for col, cell := range row {
		switch {
		case floatFields[col] != nil:
			*floatFields[col](&m) = Float(cell)
		case timeFields[col] != nil:
			*timeFields[col](&m) = Time(cell)
		case stringFields[col] != nil:
			*stringFields[col](&m) = strings.TrimSpace(cell)
		default:
			if bf, ok := boolFields[col]; ok {
				*bf.ptr(&m) = Bool(cell, bf.def)
				continue
			}
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[col] = cell
		}
	}
	return m
}

func missingColumns(raw domain.RawTable) []string {
	var notices []string
	for _, e := range absentEffects {
		present := false
		for _, c := range e.cols {
			if raw.Has(c) {
				present = true
				break
			}
		}
		if !present {
			notices = append(notices, fmt.Sprintf("column %s absent: %s", strings.Join(e.cols, "/"), e.effect))
		}
	}
	return notices
}

// Float parses s as a finite float. Blank, malformed and infinite values
// return NaN.
func Float(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

// Gamma mixes RFC 3339 with Postgres-style short offsets ("+00") and
// colon-less offsets ("+0000"), notably in closedTime.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999-07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Time parses s as a timestamp and returns it in UTC. Values without a zone
// are taken as UTC. Unparseable values return the zero time.
func Time(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Bool parses the usual spellings of a boolean and returns def for anything
// else.
func Bool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "1.0":
		return true
	case "false", "0", "no", "0.0":
		return false
	default:
		return def
	}
}
