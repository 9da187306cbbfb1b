package polymarket

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// flexBool unmarshals from a JSON bool or a string ("true"/"false"/"1").
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// Or returns the flag value, or def when the field was absent or null.
func (f *flexBool) Or(def bool) bool {
	if f == nil {
		return def
	}
	return bool(*f)
}

// String renders the flag as "true" or "false", or "" when absent.
func (f *flexBool) String() string {
	if f == nil {
		return ""
	}
	return strconv.FormatBool(bool(*f))
}

// flexFloat unmarshals from a JSON number or a numeric string. Anything
// unparseable decodes to 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		v = 0
	}
	*f = flexFloat(v)
	return nil
}

// Value returns the number, or 0 when the field was absent.
func (f *flexFloat) Value() float64 {
	if f == nil {
		return 0
	}
	return float64(*f)
}

// flexString unmarshals from a JSON string or number. Gamma sends ids as
// strings on most endpoints and as numbers on a few.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// rawCell keeps a field that Gamma sends either as a JSON-encoded string
// (e.g. "[\"Yes\",\"No\"]") or as a real JSON array.
type rawCell json.RawMessage

func (r *rawCell) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// String renders the cell for the dataset: strings are unquoted, null is
// empty, and lists or objects stay as compact JSON.
func (r rawCell) String() string {
	data := bytes.TrimSpace(r)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return string(data)
	}
	return buf.String()
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APITag is a tag or category attached to an event or market.
type APITag struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// APIEvent is an event from GET /events. An event groups related markets.
type APIEvent struct {
	ID           flexString  `json:"id"`
	Slug         string      `json:"slug"`
	Title        string      `json:"title"`
	Subtitle     string      `json:"subtitle"`
	Description  string      `json:"description"`
	Category     string      `json:"category"`
	Subcategory  string      `json:"subcategory"`
	Active       *flexBool   `json:"active"`
	Closed       *flexBool   `json:"closed"`
	Liquidity    flexFloat   `json:"liquidity"`
	Volume       flexFloat   `json:"volume"`
	OpenInterest flexFloat   `json:"openInterest"`
	StartDate    string      `json:"startDate"`
	EndDate      string      `json:"endDate"`
	Tags         []APITag    `json:"tags"`
	Markets      []APIMarket `json:"markets"`
}

// APIMarket is a market nested inside an APIEvent.
type APIMarket struct {
	ID                flexString `json:"id"`
	Slug              string     `json:"slug"`
	Question          string     `json:"question"`
	Description       string     `json:"description"`
	ResolutionSource  string     `json:"resolutionSource"`
	Category          string     `json:"category"`
	MarketType        string     `json:"marketType"`
	FormatType        string     `json:"formatType"`
	OutcomeType       string     `json:"outcomeType"`
	DenominationToken string     `json:"denominationToken"`

	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	StartDateISO  string `json:"startDateIso"`
	EndDateISO    string `json:"endDateIso"`
	UMAEndDateISO string `json:"umaEndDateIso"`

	Active               *flexBool `json:"active"`
	Closed               *flexBool `json:"closed"`
	EnableOrderBook      *flexBool `json:"enableOrderBook"`
	AcceptingOrders      *flexBool `json:"acceptingOrders"`
	NotificationsEnabled *flexBool `json:"notificationsEnabled"`
	Ready                *flexBool `json:"ready"`
	Funded               *flexBool `json:"funded"`

	LiquidityNum  *flexFloat `json:"liquidityNum"`
	Liquidity     *flexFloat `json:"liquidity"`
	LiquidityAMM  *flexFloat `json:"liquidityAmm"`
	LiquidityCLOB *flexFloat `json:"liquidityClob"`
	VolumeNum     *flexFloat `json:"volumeNum"`
	Volume        *flexFloat `json:"volume"`
	Volume24hr    *flexFloat `json:"volume24hr"`
	Volume1wk     *flexFloat `json:"volume1wk"`
	Volume1mo     *flexFloat `json:"volume1mo"`
	Volume1yr     *flexFloat `json:"volume1yr"`

	LastTradePrice *flexFloat `json:"lastTradePrice"`
	BestBid        *flexFloat `json:"bestBid"`
	BestAsk        *flexFloat `json:"bestAsk"`

	Outcomes      rawCell `json:"outcomes"`
	ShortOutcomes rawCell `json:"shortOutcomes"`
	ClobTokenIDs  rawCell `json:"clobTokenIds"`

	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
	ClosedTime string `json:"closedTime"`

	Tags       []APITag `json:"tags"`
	Categories []APITag `json:"categories"`
}

// LiquidityValue prefers liquidityNum over liquidity.
func (m *APIMarket) LiquidityValue() float64 {
	if m.LiquidityNum != nil {
		return m.LiquidityNum.Value()
	}
	return m.Liquidity.Value()
}

// VolumeValue prefers volumeNum over volume.
func (m *APIMarket) VolumeValue() float64 {
	if m.VolumeNum != nil {
		return m.VolumeNum.Value()
	}
	return m.Volume.Value()
}

// eventsEnvelope is the object form of the /events response.
type eventsEnvelope struct {
	Events []APIEvent `json:"events"`
}
