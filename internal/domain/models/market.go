package models

import "time"

// Quote is a point-in-time snapshot for one symbol.
type Quote struct {
	Symbol        string
	Price         float64
	Change        float64
	ChangePercent float64
	Volume        *int64
	AverageVolume *int64
	Timestamp     time.Time
}

// AbnormalVolume reports volume at or above twice the average.
func (q Quote) AbnormalVolume() bool {
	if q.Volume == nil || q.AverageVolume == nil || *q.AverageVolume <= 0 {
		return false
	}
	return *q.Volume >= 2*(*q.AverageVolume)
}

// Bar is one OHLCV bar.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Series is an ordered price history, most recent bar first.
type Series struct {
	Symbol string
	Bars   []Bar
}

// Len returns the number of bars.
func (s Series) Len() int {
	return len(s.Bars)
}

// Closes returns closing prices, most recent first.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns high prices, most recent first.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Fundamentals holds ratio statistics for one symbol. Fields are nil when the
// provider does not report them.
type Fundamentals struct {
	Symbol          string
	NetMargin       *float64
	GrossMargin     *float64
	OperatingMargin *float64
	DebtToEquity    *float64
	CurrentRatio    *float64
	ROE             *float64
	ROA             *float64
	PERatio         *float64
	MarketCap       *float64
}

// Article is one news item.
type Article struct {
	Title       string
	Description string
	Source      string
	URL         string
	PublishedAt time.Time
}

// Tick is a streamed price event.
type Tick struct {
	Symbol    string
	Price     float64
	Timestamp time.Time
}
