package core

import "time"

// Side represents the direction of a position or order.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Opposite returns the closing side for this side.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// InstrumentType represents the kind of tradable instrument.
type InstrumentType string

const (
	InstrumentEquity InstrumentType = "EQUITY"
	InstrumentIndex  InstrumentType = "INDEX"
	InstrumentFuture InstrumentType = "FUTURE"
	InstrumentOption InstrumentType = "OPTION"
)

// ProductType represents the settlement product for an order.
type ProductType string

const (
	ProductIntraday ProductType = "INTRADAY"
	ProductDelivery ProductType = "DELIVERY"
)

// OrderType represents the order execution type.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Candle is one OHLCV bar for a symbol over a timeframe.
// Candles are immutable once emitted and ordered by timestamp per symbol.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"` // "1m", "5m", "1d"
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// IsValid checks the OHLC ordering invariant:
// low <= min(open, close) <= max(open, close) <= high.
func (c Candle) IsValid() bool {
	lo, hi := c.Open, c.Close
	if lo > hi {
		lo, hi = hi, lo
	}
	return c.Symbol != "" && c.Low <= lo && c.High >= hi
}

// TradingDate returns the calendar date of the candle, used for
// daily risk-counter boundaries.
func (c Candle) TradingDate() string {
	return c.Timestamp.Format("2006-01-02")
}

// CandleHandler receives one candle per call from a data source.
type CandleHandler func(c Candle)

// TimeOfDay is a clock time without a date, parsed from "HH:MM".
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return t, err
	}
	t.Hour = parsed.Hour()
	t.Minute = parsed.Minute()
	return t, nil
}

// Minutes returns the time of day as minutes after midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// String formats the time of day as "HH:MM".
func (t TimeOfDay) String() string {
	return time.Date(0, 1, 1, t.Hour, t.Minute, 0, 0, time.UTC).Format("15:04")
}

// Contains reports whether ts falls inside the half-open window [t, end).
func (t TimeOfDay) Contains(end TimeOfDay, ts time.Time) bool {
	m := ts.Hour()*60 + ts.Minute()
	return m >= t.Minutes() && m < end.Minutes()
}

// AtOrAfter reports whether ts's time of day is at or past t.
func (t TimeOfDay) AtOrAfter(ts time.Time) bool {
	return ts.Hour()*60+ts.Minute() >= t.Minutes()
}
