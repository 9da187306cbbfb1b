package domain

import (
	"math"
	"time"
)

// Domain labels assigned by the classifier.
const (
	DomainSports         = "Sports"
	DomainElections      = "Elections"
	DomainGlobalElection = "Global Elections"
	DomainPolitics       = "Politics"
	DomainCryptoPrices   = "Crypto Prices"
	DomainCrypto         = "Crypto"
	DomainTech           = "Tech"
	DomainFinance        = "Finance"
	DomainCulture        = "Culture"
	DomainOther          = "Other"
)

// DomainFlags are the independent tag matches behind the single domain label.
type DomainFlags struct {
	Elections       bool `json:"is_elections"`
	GlobalElections bool `json:"is_global_elections"`
	Politics        bool `json:"is_politics"`
	Crypto          bool `json:"is_crypto"`
	CryptoPrices    bool `json:"is_crypto_prices"`
	Tech            bool `json:"is_tech"`
	Finance         bool `json:"is_finance"`
	Sports          bool `json:"is_sports"`
	Culture         bool `json:"is_culture"`
}

// Market is one Polymarket market row after normalization, together with the
// columns derived from it. Float fields use NaN for missing values and time
// fields use the zero time.
type Market struct {
	// Identity
	ID         string
	Slug       string
	EventID    string
	EventSlug  string
	EventTitle string
	Question   string

	// Status
	Active          bool
	Closed          bool
	EnableOrderBook bool
	AcceptingOrders bool

	// Liquidity and volume
	Liquidity         float64
	LiquidityAMM      float64
	LiquidityCLOB     float64
	EventLiquidity    float64
	EventVolume       float64
	EventOpenInterest float64
	Volume            float64
	Volume24h         float64
	Volume1w          float64
	Volume1m          float64
	Volume1y          float64

	// Pricing
	BestBid        float64
	BestAsk        float64
	LastTradePrice float64

	// Temporal
	EventStartDate     time.Time
	EventEndDate       time.Time
	MarketStartDate    time.Time
	MarketEndDate      time.Time
	MarketStartDateISO time.Time
	MarketEndDateISO   time.Time
	UMAEndDateISO      time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ClosedTime         time.Time

	TagsLabels  string
	OutcomesRaw string

	// Extra holds every column without a typed field above, keyed by its
	// original column name.
	Extra map[string]string

	// Derived
	Spread               float64
	MidPrice             float64
	TimeToResolutionDays float64
	IsBinaryLike         bool
	Flags                DomainFlags
	Domain               string
	QualityScore         float64
	AlphaScore           float64
	ScreenerScore        float64
	PTrue                float64
	ImpliedProb          float64
	Edge                 float64
	URL                  string
}

// NewMarket returns a Market with every numeric field missing and the status
// flags at their permissive defaults.
func NewMarket() Market {
	nan := math.NaN()
	return Market{
		Active:               true,
		EnableOrderBook:      true,
		AcceptingOrders:      true,
		Liquidity:            nan,
		LiquidityAMM:         nan,
		LiquidityCLOB:        nan,
		EventLiquidity:       nan,
		EventVolume:          nan,
		EventOpenInterest:    nan,
		Volume:               nan,
		Volume24h:            nan,
		Volume1w:             nan,
		Volume1m:             nan,
		Volume1y:             nan,
		BestBid:              nan,
		BestAsk:              nan,
		LastTradePrice:       nan,
		Spread:               nan,
		MidPrice:             nan,
		TimeToResolutionDays: nan,
		QualityScore:         nan,
		AlphaScore:           nan,
		ScreenerScore:        nan,
		PTrue:                nan,
		ImpliedProb:          nan,
		Edge:                 nan,
		Domain:               DomainOther,
	}
}

// Tradeable reports whether the market is open for trading right now.
func (m Market) Tradeable() bool {
	return m.Active && !m.Closed && m.EnableOrderBook && m.AcceptingOrders
}

// OrZero returns v, or 0 when v is missing.
func OrZero(v float64) float64 {
	return Or(v, 0)
}

// Or returns v, or def when v is missing.
func Or(v, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return v
}
