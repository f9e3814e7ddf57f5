package analysis

import (
	"context"
	"sort"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/service"
	"FinScout/pkg/config"
	"FinScout/pkg/logger"
)

// Fundamentals modes.
const (
	fundamentalsMomentum = "momentum"
	fundamentalsRatios   = "ratios"
)

// momentumWindow is the history window of the momentum proxy, in daily bars.
const momentumWindow = 30

// momentumRatingBand is the clamped-momentum threshold for a directional
// rating.
const momentumRatingBand = 0.3

// Fundamentals scores each symbol either from 30-day price momentum (the
// cheap proxy, one history request per symbol) or from margin, leverage and
// return ratios when the richer statistics endpoint is enabled.
type Fundamentals struct {
	market service.MarketData
	cfg    config.FundamentalsConfig
	log    *logger.Logger
}

func NewFundamentals(market service.MarketData, cfg config.FundamentalsConfig, lgr *logger.Logger) *Fundamentals {
	return &Fundamentals{market: market, cfg: cfg, log: lgr}
}

// AnalyzeSymbol scores one symbol according to the configured mode.
func (f *Fundamentals) AnalyzeSymbol(ctx context.Context, symbol string) models.FundamentalScore {
	if f.cfg.Mode == fundamentalsRatios {
		return f.ratioScore(ctx, symbol)
	}
	return f.momentumScore(ctx, symbol)
}

// AnalyzeBatch scores all symbols sequentially and returns them sorted by
// score, best first. Invalid results sort below every valid one. Pacing
// between provider calls comes from the shared credit window.
func (f *Fundamentals) AnalyzeBatch(ctx context.Context, symbols []string) []models.FundamentalScore {
	out := make([]models.FundamentalScore, 0, len(symbols))
	for _, symbol := range symbols {
		out = append(out, f.AnalyzeSymbol(ctx, symbol))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return fundamentalSortKey(out[i]) > fundamentalSortKey(out[j])
	})

	if len(out) > 0 && out[0].Verdict.OK() {
		f.log.Info("fundamentals done",
			logger.String("top", out[0].Symbol),
			logger.Float64("top_score", out[0].Score),
			logger.Int("symbols", len(out)))
	}
	return out
}

// momentumScore maps the clamped, 5x-scaled 30-day change onto [0,3].
func (f *Fundamentals) momentumScore(ctx context.Context, symbol string) models.FundamentalScore {
	invalid := func(format string, args ...interface{}) models.FundamentalScore {
		return models.FundamentalScore{
			Symbol:  symbol,
			Rating:  models.RatingNeutral,
			Verdict: models.InvalidVerdict(format, args...),
		}
	}

	history, err := f.market.History(ctx, symbol, "1day", momentumWindow)
	if err != nil {
		f.log.Warn("momentum history failed", logger.String("symbol", symbol), logger.Error(err))
		return invalid("history unavailable")
	}
	closes := history.Closes()
	if len(closes) < 2 {
		return invalid("insufficient history (%d days)", len(closes))
	}
	oldest := closes[len(closes)-1]
	if oldest <= 0 {
		return invalid("bad history")
	}

	raw := (closes[0] - oldest) / oldest
	scaled := clampf(raw*5, -1, 1)

	rating := models.RatingNeutral
	switch {
	case scaled > momentumRatingBand:
		rating = models.RatingBullish
	case scaled < -momentumRatingBand:
		rating = models.RatingBearish
	}

	return models.FundamentalScore{
		Symbol:     symbol,
		Score:      round1((scaled + 1) * 1.5),
		Momentum30: &raw,
		Rating:     rating,
		Verdict:    models.OKVerdict(),
	}
}

// ratioScore awards point buckets per threshold crossing, 0-5 total:
// net margin >20 scores 2, >5 scores 1; debt/equity <0.5 scores 2, <1.5
// scores 1; ROE >10 scores 1.
func (f *Fundamentals) ratioScore(ctx context.Context, symbol string) models.FundamentalScore {
	fund, err := f.market.Fundamentals(ctx, symbol)
	if err != nil {
		f.log.Warn("fundamentals fetch failed", logger.String("symbol", symbol), logger.Error(err))
		return models.FundamentalScore{
			Symbol:  symbol,
			Rating:  models.RatingNeutral,
			Verdict: models.InvalidVerdict("fundamentals unavailable"),
		}
	}

	components := make(map[string]float64)
	score := 0.0

	if fund.NetMargin != nil {
		margin := normalizePercent(*fund.NetMargin)
		pts := 0.0
		switch {
		case margin > 20:
			pts = 2
		case margin > 5:
			pts = 1
		}
		components["net_margin"] = pts
		score += pts
	}
	if fund.DebtToEquity != nil {
		leverage := normalizeLeverage(*fund.DebtToEquity)
		pts := 0.0
		switch {
		case leverage < 0.5:
			pts = 2
		case leverage < 1.5:
			pts = 1
		}
		components["debt_to_equity"] = pts
		score += pts
	}
	if fund.ROE != nil {
		pts := 0.0
		if normalizePercent(*fund.ROE) > 10 {
			pts = 1
		}
		components["roe"] = pts
		score += pts
	}

	if len(components) == 0 {
		return models.FundamentalScore{
			Symbol:  symbol,
			Rating:  models.RatingNeutral,
			Verdict: models.InvalidVerdict("no ratio data"),
		}
	}

	rating := models.RatingNeutral
	switch {
	case score >= 4:
		rating = models.RatingBullish
	case score <= 1:
		rating = models.RatingBearish
	}

	return models.FundamentalScore{
		Symbol:     symbol,
		Score:      score,
		Components: components,
		Rating:     rating,
		Verdict:    models.OKVerdict(),
	}
}

// normalizePercent lifts fraction-form ratios to percent form: providers
// report 0.23 and 23.0 for the same margin.
func normalizePercent(v float64) float64 {
	if v < 1 && v > -1 {
		return v * 100
	}
	return v
}

// normalizeLeverage lowers percent-form leverage to ratio form.
func normalizeLeverage(v float64) float64 {
	if v > 10 {
		return v / 100
	}
	return v
}

func fundamentalSortKey(s models.FundamentalScore) float64 {
	if s.Verdict.OK() {
		return s.Score
	}
	return -1
}
