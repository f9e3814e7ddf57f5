package models

// Rating labels shared by fundamental and trend classification.
const (
	RatingBullish = "BULLISH"
	RatingNeutral = "NEUTRAL"
	RatingBearish = "BEARISH"
)

// Entry timing labels.
const (
	TimingEarly   = "EARLY"
	TimingOptimal = "OPTIMAL"
	TimingLate    = "LATE"
	TimingNeutral = "NEUTRAL"
)

// RSI signal labels.
const (
	RSIOverbought = "OVERBOUGHT"
	RSIOversold   = "OVERSOLD"
	RSINeutral    = "NEUTRAL"
)

// Sentiment labels, highest tier first.
const (
	SentimentVeryPositive = "VERY_POSITIVE"
	SentimentPositive     = "POSITIVE"
	SentimentNeutral      = "NEUTRAL"
	SentimentNegative     = "NEGATIVE"
	SentimentVeryNegative = "VERY_NEGATIVE"
)

// Volatility regime labels.
const (
	VolatilityNormal  = "NORMAL"
	VolatilityHigh    = "HIGH"
	VolatilityExtreme = "EXTREME"
)

// MacroFactor is one scored macro input.
type MacroFactor struct {
	Name           string  // "treasury_10y", "dollar_index", "fed_tone"
	Value          float64
	Score          float64
	Interpretation string
}

// MacroAnalysis is the process-wide macro environment score.
type MacroAnalysis struct {
	Score          float64 // clamped [-3, +1]
	Factors        []MacroFactor
	Recommendation string
	Verdict        Verdict
}

// MarketContext is the process-wide market breadth/stress score.
type MarketContext struct {
	Score             float64 // clamped [-2, +1]
	MeanChangePercent float64
	Advancing         int
	Declining         int
	AbnormalVolume    []string // symbols at >= 2x average volume
	SP500Drawdown     *float64 // percent from 52-week high
	VIX               *float64
	VolatilityLevel   string // NORMAL, HIGH, EXTREME
	Recommendation    string
	Verdict           Verdict
}

// FundamentalScore is a per-symbol fundamentals/momentum score.
type FundamentalScore struct {
	Symbol     string
	Score      float64 // 0-3 momentum variant, 0-5 ratio variant
	Momentum30 *float64 // fractional 30-day momentum, momentum variant only
	Components map[string]float64
	Rating     string // BULLISH, NEUTRAL, BEARISH
	Verdict    Verdict
}

// TechnicalScore is a per-symbol technical setup score.
type TechnicalScore struct {
	Symbol          string
	Price           float64
	MA50            float64
	RSI             float64
	DistancePercent float64 // price distance from MA50
	DaysAboveMA     int
	Momentum5d      float64
	Momentum20d     float64
	Accelerating    bool
	Timing          string // EARLY, OPTIMAL, LATE, NEUTRAL
	Trend           string // BULLISH, NEUTRAL, BEARISH
	RSISignal       string // OVERBOUGHT, OVERSOLD, NEUTRAL
	Score           float64 // 0-3
	Verdict         Verdict
}

// Eligible reports whether the symbol passes the technical gate: valid
// analysis, price above MA50, and not overbought.
func (t TechnicalScore) Eligible() bool {
	return t.Verdict.OK() && t.Price > t.MA50 && t.RSISignal != RSIOverbought
}

// SentimentScore is a per-symbol news sentiment score.
type SentimentScore struct {
	Symbol        string
	Score         float64 // one of 0, 1, 1.5, 2, 3
	Label         string
	Positive      int
	Negative      int
	Neutral       int
	Analyzed      int
	AvgConfidence float64
	Verdict       Verdict
}
