package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScout/internal/domain/models"
	"FinScout/pkg/logger"
)

// trendingSeries is a steady uptrend, most recent close first: price gains
// slope per bar for the whole window.
func trendingSeries(symbol string, last, slope float64, bars int) models.Series {
	closes := make([]float64, bars)
	for i := range closes {
		closes[i] = last - slope*float64(i)
	}
	return seriesOf(symbol, closes...)
}

// consolidatingSeries oscillates between 105 and 104 for the latest 14 bars
// after a long flat base at 100.
func consolidatingSeries(symbol string) models.Series {
	closes := make([]float64, 60)
	for i := 0; i < 14; i++ {
		closes[i] = 104
		if i%2 == 0 {
			closes[i] = 105
		}
	}
	for i := 14; i < 60; i++ {
		closes[i] = 100
	}
	return seriesOf(symbol, closes...)
}

func flatSeries(symbol string, bars int) models.Series {
	closes := make([]float64, bars)
	for i := range closes {
		closes[i] = 100
	}
	return seriesOf(symbol, closes...)
}

func TestEntryTiming(t *testing.T) {
	tests := []struct {
		name      string
		daysAbove int
		mom5      float64
		mom20     float64
		distance  float64
		want      string
	}{
		{"below the average", 0, 5, 2, 10, models.TimingNeutral},
		{"fresh cross with momentum", 3, 2.0, 4.0, 4, models.TimingEarly},
		{"fresh cross without momentum", 3, 0.5, 4.0, 4, models.TimingNeutral},
		{"fresh cross from flat base", 4, 1.0, 0, 4, models.TimingEarly},
		{"established move near average", 10, 0.5, 4.0, 5, models.TimingOptimal},
		{"established move still accelerating", 10, 3.0, 4.0, 12, models.TimingOptimal},
		{"stretched but momentum positive", 10, 0.5, 4.0, 20, models.TimingNeutral},
		{"old move rolling over", 20, -1.0, 4.0, 10, models.TimingLate},
		{"old move stalled", 16, 0, 2, 5, models.TimingLate},
		{"old move still going", 20, 2.0, 8.0, 10, models.TimingNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, entryTiming(tt.daysAbove, tt.mom5, tt.mom20, tt.distance))
		})
	}
}

func TestTechnicalScoreComposition(t *testing.T) {
	tests := []struct {
		name      string
		above     bool
		distance  float64
		rsi       float64
		rsiOK     bool
		rsiSignal string
		timing    string
		accel     bool
		want      float64
	}{
		{"ideal early entry caps at three", true, 5, 35, true, models.RSINeutral, models.TimingEarly, true, 3.0},
		{"overbought and late", true, 12, 75, true, models.RSIOverbought, models.TimingLate, true, 1.0},
		{"pullback just under the average", false, -2, 65, true, models.RSINeutral, models.TimingNeutral, false, 1.1},
		{"deep below but washed out", false, -8, 35, true, models.RSINeutral, models.TimingEarly, false, 2.0},
		{"healthy established trend", true, 8, 50, true, models.RSINeutral, models.TimingOptimal, false, 2.5},
		{"no rsi reading scores the middle", true, 3, 0, false, models.RSINeutral, models.TimingNeutral, false, 1.9},
		{"oversold early accelerator", true, 4, 25, true, models.RSIOversold, models.TimingEarly, true, 3.0},
		{"recovering from oversold", true, 4, 35, true, models.RSINeutral, models.TimingNeutral, false, 2.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := technicalScore(tt.above, tt.distance, tt.rsi, tt.rsiOK, tt.rsiSignal, tt.timing, tt.accel)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestTechnicalSteadyUptrend(t *testing.T) {
	market := &fakeMarketData{series: map[string]models.Series{
		"NVDA": trendingSeries("NVDA", 100, 0.36, 60),
	}}

	res := NewTechnical(market, logger.Nop()).AnalyzeSymbol(context.Background(), "NVDA")

	require.True(t, res.Verdict.Valid)
	assert.Equal(t, 100.0, res.Price)
	assert.InDelta(t, 91.18, res.MA50, 1e-6)
	assert.InDelta(t, 9.7, res.DistancePercent, 1e-9)
	assert.Equal(t, models.RatingBullish, res.Trend)

	// monotonic rise has no losing bars, so RSI pins at the ceiling
	assert.Equal(t, 100.0, res.RSI)
	assert.Equal(t, models.RSIOverbought, res.RSISignal)

	assert.Equal(t, 10, res.DaysAboveMA)
	assert.InDelta(t, 1.83, res.Momentum5d, 1e-9)
	assert.InDelta(t, 7.76, res.Momentum20d, 1e-9)
	assert.False(t, res.Accelerating)
	assert.Equal(t, models.TimingNeutral, res.Timing)

	assert.InDelta(t, 1.4, res.Score, 1e-9)
	assert.False(t, res.Eligible(), "overbought symbols stay out of the pipeline")
}

func TestTechnicalConsolidationIsEligible(t *testing.T) {
	market := &fakeMarketData{series: map[string]models.Series{
		"MSFT": consolidatingSeries("MSFT"),
	}}

	res := NewTechnical(market, logger.Nop()).AnalyzeSymbol(context.Background(), "MSFT")

	require.True(t, res.Verdict.Valid)
	assert.InDelta(t, 101.26, res.MA50, 1e-6)
	assert.InDelta(t, 3.7, res.DistancePercent, 1e-9)
	assert.Equal(t, models.RatingNeutral, res.Trend)
	assert.Equal(t, models.RSINeutral, res.RSISignal)
	assert.Equal(t, 10, res.DaysAboveMA)
	assert.InDelta(t, 0.96, res.Momentum5d, 1e-9)
	assert.InDelta(t, 5.0, res.Momentum20d, 1e-9)
	assert.False(t, res.Accelerating)
	assert.Equal(t, models.TimingOptimal, res.Timing)
	assert.True(t, res.Eligible())
}

func TestTechnicalFlatTape(t *testing.T) {
	market := &fakeMarketData{series: map[string]models.Series{
		"KO": flatSeries("KO", 60),
	}}

	res := NewTechnical(market, logger.Nop()).AnalyzeSymbol(context.Background(), "KO")

	require.True(t, res.Verdict.Valid)
	assert.Equal(t, 0, res.DaysAboveMA)
	assert.Equal(t, models.TimingNeutral, res.Timing)
	assert.InDelta(t, 0.7, res.Score, 1e-9)
	assert.False(t, res.Eligible(), "price sitting on the average is not above it")
}

func TestTechnicalInsufficientHistory(t *testing.T) {
	market := &fakeMarketData{series: map[string]models.Series{
		"IPO": flatSeries("IPO", 30),
	}}

	res := NewTechnical(market, logger.Nop()).AnalyzeSymbol(context.Background(), "IPO")

	assert.False(t, res.Verdict.Valid)
	assert.Contains(t, res.Verdict.Err, "insufficient history (30 days)")
	assert.Equal(t, models.TimingNeutral, res.Timing)
	assert.Equal(t, 0.0, res.Score)
	assert.False(t, res.Eligible())
}

func TestTechnicalHistoryFailure(t *testing.T) {
	market := &fakeMarketData{seriesErrs: map[string]error{
		"AAPL": errors.New("api error"),
	}}

	res := NewTechnical(market, logger.Nop()).AnalyzeSymbol(context.Background(), "AAPL")

	assert.False(t, res.Verdict.Valid)
	assert.Contains(t, res.Verdict.Err, "history unavailable")
}

func TestTechnicalBatchSortsInvalidLast(t *testing.T) {
	market := &fakeMarketData{
		series: map[string]models.Series{
			"MSFT": consolidatingSeries("MSFT"),
			"KO":   flatSeries("KO", 60),
		},
		seriesErrs: map[string]error{"AAPL": errors.New("api error")},
	}

	out := NewTechnical(market, logger.Nop()).AnalyzeBatch(context.Background(), []string{"AAPL", "KO", "MSFT"})

	require.Len(t, out, 3)
	assert.Equal(t, "MSFT", out[0].Symbol)
	assert.Equal(t, "KO", out[1].Symbol)
	assert.Equal(t, "AAPL", out[2].Symbol)
	assert.False(t, out[2].Verdict.Valid)
}
