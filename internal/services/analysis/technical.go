package analysis

import (
	"context"
	"math"
	"sort"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/service"
	"FinScout/internal/services/indicators"
	"FinScout/pkg/logger"
)

const (
	// technicalBars leaves headroom over the MA period for RSI seeding and
	// the days-above walk.
	technicalBars = 60
	maPeriod      = 50
	rsiPeriod     = 14

	rsiOverboughtLevel = 70.0
	rsiOversoldLevel   = 30.0
)

// Technical scores the entry setup of a symbol from its position against the
// 50-day moving average, RSI(14) and an entry-timing read built on how long
// price has held above the average and whether short momentum still leads.
type Technical struct {
	market service.MarketData
	log    *logger.Logger
}

func NewTechnical(market service.MarketData, lgr *logger.Logger) *Technical {
	return &Technical{market: market, log: lgr}
}

// AnalyzeSymbol scores one symbol in [0,3]. Symbols with less history than
// the MA period come back invalid, never biased.
func (t *Technical) AnalyzeSymbol(ctx context.Context, symbol string) models.TechnicalScore {
	invalid := func(format string, args ...interface{}) models.TechnicalScore {
		return models.TechnicalScore{
			Symbol:    symbol,
			Timing:    models.TimingNeutral,
			Trend:     models.RatingNeutral,
			RSISignal: models.RSINeutral,
			Verdict:   models.InvalidVerdict(format, args...),
		}
	}

	history, err := t.market.History(ctx, symbol, "1day", technicalBars)
	if err != nil {
		t.log.Warn("technical history failed", logger.String("symbol", symbol), logger.Error(err))
		return invalid("history unavailable")
	}
	closes := history.Closes()
	if len(closes) < maPeriod {
		return invalid("insufficient history (%d days)", len(closes))
	}

	price := closes[0]
	ma50, ok := indicators.SMA(closes, maPeriod)
	if !ok || ma50 <= 0 {
		return invalid("bad history")
	}

	above := price > ma50
	distance := (price - ma50) / ma50 * 100
	trend := models.RatingNeutral
	switch {
	case distance > 5:
		trend = models.RatingBullish
	case distance < -5:
		trend = models.RatingBearish
	}

	rsi, rsiOK := indicators.RSI(closes, rsiPeriod)
	rsiSignal := models.RSINeutral
	if rsiOK {
		switch {
		case rsi > rsiOverboughtLevel:
			rsiSignal = models.RSIOverbought
		case rsi < rsiOversoldLevel:
			rsiSignal = models.RSIOversold
		}
	}

	daysAbove := indicators.DaysAboveMA(closes, maPeriod)
	mom5 := indicators.Momentum(closes, 5)
	mom20 := indicators.Momentum(closes, 20)
	accelerating := mom5 > mom20/4
	if mom20 == 0 {
		accelerating = mom5 > 0
	}
	timing := entryTiming(daysAbove, mom5, mom20, distance)

	return models.TechnicalScore{
		Symbol:          symbol,
		Price:           price,
		MA50:            round2(ma50),
		RSI:             rsi,
		DistancePercent: round1(distance),
		DaysAboveMA:     daysAbove,
		Momentum5d:      round2(mom5),
		Momentum20d:     round2(mom20),
		Accelerating:    accelerating,
		Timing:          timing,
		Trend:           trend,
		RSISignal:       rsiSignal,
		Score:           technicalScore(above, distance, rsi, rsiOK, rsiSignal, timing, accelerating),
		Verdict:         models.OKVerdict(),
	}
}

// AnalyzeBatch scores symbols sequentially, best score first; invalid
// results sort below every valid one.
func (t *Technical) AnalyzeBatch(ctx context.Context, symbols []string) []models.TechnicalScore {
	out := make([]models.TechnicalScore, 0, len(symbols))
	for _, symbol := range symbols {
		res := t.AnalyzeSymbol(ctx, symbol)
		out = append(out, res)
		if res.Verdict.OK() {
			t.log.Debug("technical score",
				logger.String("symbol", symbol),
				logger.Float64("score", res.Score),
				logger.Float64("ma50_distance", res.DistancePercent),
				logger.Float64("rsi", res.RSI))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return technicalSortKey(out[i]) > technicalSortKey(out[j])
	})

	valid, aboveMA := 0, 0
	for _, res := range out {
		if !res.Verdict.OK() {
			continue
		}
		valid++
		if res.Price > res.MA50 {
			aboveMA++
		}
	}
	t.log.Info("technical done",
		logger.Int("analyzed", valid),
		logger.Int("above_ma50", aboveMA))
	return out
}

// entryTiming classifies how fresh the setup is. Days above the MA anchor
// the phase; momentum acceleration separates a young move from a stale one.
func entryTiming(daysAbove int, mom5, mom20, distance float64) string {
	if daysAbove == 0 {
		return models.TimingNeutral
	}
	if daysAbove <= 5 && mom5 > mom20/4 {
		return models.TimingEarly
	}
	if daysAbove > 5 && daysAbove <= 15 {
		if distance < 8 || mom5 > mom20/4 {
			return models.TimingOptimal
		}
	}
	if (daysAbove > 15 || distance > 15) && mom5 <= 0 {
		return models.TimingLate
	}
	return models.TimingNeutral
}

// technicalScore sums an MA-position part, an RSI part and a timing part,
// each worth up to one point, plus a small acceleration bonus, clamped to 3.
func technicalScore(above bool, distance, rsi float64, rsiOK bool, rsiSignal, timing string, accelerating bool) float64 {
	score := 0.0

	if above {
		score += 0.5
		switch {
		case distance > 0 && distance <= 10:
			score += 0.5
		case distance > 10:
			// stretched above the average, late-entry risk
			score += 0.25
		}
	} else if distance > -3 {
		// just under the average, pullback entry
		score += 0.3
	}

	switch {
	case !rsiOK:
		score += 0.5
	case rsiSignal == models.RSIOverbought:
		// overbought earns nothing
	case rsiSignal == models.RSIOversold:
		score += 0.75
	case rsi >= 40 && rsi <= 60:
		score += 0.75
	case rsi >= 30 && rsi < 40:
		score += 1.0
	case rsi > 60 && rsi <= 70:
		score += 0.4
	default:
		score += 0.5
	}

	switch timing {
	case models.TimingEarly:
		score += 1.0
	case models.TimingOptimal:
		score += 0.75
	case models.TimingLate:
		// too late earns nothing
	default:
		score += 0.4
	}

	if accelerating && above {
		score += 0.25
	}
	return round1(math.Min(3, score))
}

func technicalSortKey(s models.TechnicalScore) float64 {
	if s.Verdict.OK() {
		return s.Score
	}
	return -1
}
