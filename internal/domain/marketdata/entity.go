package marketdata

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot captures the current market state for one ticker. Optional fields
// are pointers because the upstream quote feed omits them for many listings.
type Snapshot struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	ChangePercent float64         `json:"change_percent"`
	Timestamp     time.Time       `json:"timestamp"`

	FiftyTwoWeekChange *float64 `json:"52_week_change,omitempty"`
	AllTimeHigh        *float64 `json:"all_time_high,omitempty"`
	AllTimeLow         *float64 `json:"all_time_low,omitempty"`
	AverageVolume      *int64   `json:"average_volume,omitempty"`
	DayHigh            *float64 `json:"day_high,omitempty"`
	DayLow             *float64 `json:"day_low,omitempty"`
	MarketCap          *int64   `json:"market_cap,omitempty"`
	QuoteType          string   `json:"quote_type,omitempty"`
	Sector             string   `json:"sector,omitempty"`
	TargetHighPrice    *float64 `json:"target_high_price,omitempty"`
	TargetLowPrice     *float64 `json:"target_low_price,omitempty"`
	TargetMeanPrice    *float64 `json:"target_mean_price,omitempty"`
	TargetMedianPrice  *float64 `json:"target_median_price,omitempty"`
	Website            string   `json:"website,omitempty"`
}

// PriceString renders the snapshot price as "123.45 USD"
func (s *Snapshot) PriceString() string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("%s %s", s.Price.StringFixed(2), s.Currency)
}

// Bar is one daily OHLCV candle
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// EquityMatch is one row of the symbol search endpoint, filtered to equities
type EquityMatch struct {
	Exchange  string  `json:"exchange"`
	Symbol    string  `json:"symbol"`
	ShortName string  `json:"shortname"`
	Sector    string  `json:"sector"`
	LongName  string  `json:"longname"`
	QuoteType string  `json:"quote_type"`
	Score     float64 `json:"score"`
}
