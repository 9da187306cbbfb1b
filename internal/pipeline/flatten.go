package pipeline

import (
	"strconv"
	"strings"

	"github.com/alanyoungcy/polyscreen/internal/platform/polymarket"
)

// FlattenOptions controls which markets of an event become rows.
type FlattenOptions struct {
	// OnlyTradeable drops markets without an order book or not accepting
	// orders.
	OnlyTradeable bool
	// MinLiquidity drops markets whose liquidity is below this value.
	MinLiquidity float64
}

// FlattenEvent turns every open, active market of ev into one dataset row
// carrying the event context. Keys follow the stored dataset's column names.
func FlattenEvent(ev polymarket.APIEvent, opts FlattenOptions) []map[string]string {
	eventActive := ev.Active.Or(true)
	eventClosed := ev.Closed.Or(false)

	base := map[string]string{
		"event_id":           string(ev.ID),
		"event_slug":         ev.Slug,
		"event_title":        ev.Title,
		"event_subtitle":     ev.Subtitle,
		"event_description":  ev.Description,
		"event_category":     ev.Category,
		"event_subcategory":  ev.Subcategory,
		"event_active":       strconv.FormatBool(eventActive),
		"event_closed":       strconv.FormatBool(eventClosed),
		"event_startDate":    ev.StartDate,
		"event_endDate":      ev.EndDate,
		"event_liquidity":    formatFloat(float64(ev.Liquidity)),
		"event_volume":       formatFloat(float64(ev.Volume)),
		"event_openInterest": formatFloat(float64(ev.OpenInterest)),
		"event_tags_labels":  joinTags(ev.Tags, labelOf),
		"event_tags_slugs":   joinTags(ev.Tags, slugOf),
	}

	var rows []map[string]string
	for i := range ev.Markets {
		m := &ev.Markets[i]

		closed := m.Closed.Or(eventClosed)
		if closed {
			continue
		}
		active := m.Active.Or(true)
		if !active {
			continue
		}
		orderBook := m.EnableOrderBook.Or(true)
		accepting := m.AcceptingOrders.Or(true)
		if opts.OnlyTradeable && (!orderBook || !accepting) {
			continue
		}
		liquidity := m.LiquidityValue()
		if liquidity < opts.MinLiquidity {
			continue
		}

		row := make(map[string]string, len(base)+48)
		for k, v := range base {
			row[k] = v
		}

		row["market_id"] = string(m.ID)
		row["market_slug"] = m.Slug
		row["market_question"] = m.Question
		row["market_description"] = m.Description
		row["market_resolutionSource"] = m.ResolutionSource
		row["market_category"] = m.Category
		row["market_type"] = m.MarketType
		row["format_type"] = m.FormatType
		row["outcome_type"] = m.OutcomeType
		row["denomination_token"] = m.DenominationToken

		row["market_startDate"] = m.StartDate
		row["market_endDate"] = m.EndDate
		row["market_startDateIso"] = m.StartDateISO
		row["market_endDateIso"] = m.EndDateISO
		row["umaEndDateIso"] = m.UMAEndDateISO

		row["market_active"] = strconv.FormatBool(active)
		row["market_closed"] = strconv.FormatBool(closed)
		row["enable_order_book"] = strconv.FormatBool(orderBook)
		row["accepting_orders"] = strconv.FormatBool(accepting)
		row["notifications_enabled"] = m.NotificationsEnabled.String()
		row["ready"] = m.Ready.String()
		row["funded"] = m.Funded.String()

		row["liquidity_num"] = formatFloat(liquidity)
		row["liquidity_amm"] = formatFloat(m.LiquidityAMM.Value())
		row["liquidity_clob"] = formatFloat(m.LiquidityCLOB.Value())
		row["volume_num"] = formatFloat(m.VolumeValue())
		row["volume_24h"] = formatFloat(m.Volume24hr.Value())
		row["volume_1w"] = formatFloat(m.Volume1wk.Value())
		row["volume_1m"] = formatFloat(m.Volume1mo.Value())
		row["volume_1y"] = formatFloat(m.Volume1yr.Value())

		row["lastTradePrice"] = formatFloat(m.LastTradePrice.Value())
		row["bestBid"] = formatFloat(m.BestBid.Value())
		row["bestAsk"] = formatFloat(m.BestAsk.Value())

		row["outcomes_raw"] = m.Outcomes.String()
		row["shortOutcomes_raw"] = m.ShortOutcomes.String()
		row["clobTokenIds"] = m.ClobTokenIDs.String()

		row["createdAt"] = m.CreatedAt
		row["updatedAt"] = m.UpdatedAt
		row["closedTime"] = m.ClosedTime

		row["market_tags_labels"] = joinTags(m.Tags, labelOf)
		row["market_tags_slugs"] = joinTags(m.Tags, slugOf)
		row["market_categories_labels"] = joinTags(m.Categories, labelOf)
		row["market_categories_slugs"] = joinTags(m.Categories, slugOf)

		rows = append(rows, row)
	}
	return rows
}

func labelOf(t polymarket.APITag) string { return t.Label }
func slugOf(t polymarket.APITag) string  { return t.Slug }

func joinTags(tags []polymarket.APITag, field func(polymarket.APITag) string) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		if v := strings.TrimSpace(field(t)); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "|")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
