package analysis

import (
	"context"
	"errors"
	"strings"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/service"
	"FinScout/pkg/config"
	"FinScout/pkg/logger"
)

// Market context modes.
const (
	modeBreadth  = "breadth"
	modeIndex    = "index"
	modeCombined = "combined"
)

const (
	yearBars = 252

	bearDrawdown       = -20.0
	correctionDrawdown = -10.0
	nearHighDrawdown   = -5.0

	vixExtreme = 35.0
	vixHigh    = 25.0
)

// Market scores overall market conditions. Breadth mode reads the whole
// watchlist in one batched quote; index mode reads the benchmark index and
// the volatility index; combined sums both and clamps.
type Market struct {
	market    service.MarketData
	watchlist []string
	cfg       config.MarketConfig
	log       *logger.Logger
}

func NewMarket(market service.MarketData, watchlist []string, cfg config.MarketConfig, lgr *logger.Logger) *Market {
	return &Market{market: market, watchlist: watchlist, cfg: cfg, log: lgr}
}

// Analyze scores current market conditions in [-2, +1].
func (m *Market) Analyze(ctx context.Context) models.MarketContext {
	var mc models.MarketContext
	var errs []string
	score := 0.0

	mode := m.cfg.Mode
	if mode == "" {
		mode = modeBreadth
	}

	if mode == modeBreadth || mode == modeCombined {
		s, err := m.breadth(ctx, &mc)
		if err != nil {
			errs = append(errs, err.Error())
		}
		score += s
	}
	if mode == modeIndex || mode == modeCombined {
		s, indexErrs := m.index(ctx, &mc)
		errs = append(errs, indexErrs...)
		score += s
	}

	mc.Score = clampf(score, -2, 1)
	mc.Recommendation = marketRecommendation(&mc)
	if len(errs) == 0 {
		mc.Verdict = models.OKVerdict()
	} else {
		mc.Verdict = models.InvalidVerdict("%s", strings.Join(errs, "; "))
	}

	m.log.Info("market context done",
		logger.String("mode", mode),
		logger.Float64("score", mc.Score),
		logger.Int("advancing", mc.Advancing),
		logger.Int("declining", mc.Declining),
		logger.Bool("valid", mc.Verdict.Valid))
	return mc
}

// breadth reads the capped watchlist sample in one batch and scores the mean
// daily change at the +/-1% bands.
func (m *Market) breadth(ctx context.Context, mc *models.MarketContext) (float64, error) {
	sample := m.watchlist
	if m.cfg.BreadthSample > 0 && len(sample) > m.cfg.BreadthSample {
		sample = sample[:m.cfg.BreadthSample]
	}
	if len(sample) == 0 {
		return 0, errors.New("empty breadth sample")
	}

	quotes, err := m.market.QuotesBatch(ctx, sample)
	if err != nil {
		m.log.Warn("breadth batch failed", logger.Error(err))
		return 0, errors.New("market breadth unavailable")
	}

	sum := 0.0
	n := 0
	for _, symbol := range sample {
		q, ok := quotes[symbol]
		if !ok {
			continue
		}
		n++
		sum += q.ChangePercent
		switch {
		case q.ChangePercent > 0:
			mc.Advancing++
		case q.ChangePercent < 0:
			mc.Declining++
		}
		if q.AbnormalVolume() {
			mc.AbnormalVolume = append(mc.AbnormalVolume, symbol)
		}
	}
	if n == 0 {
		return 0, errors.New("market breadth unavailable")
	}

	mean := sum / float64(n)
	mc.MeanChangePercent = mean
	switch {
	case mean > 1:
		return 1, nil
	case mean < -1:
		return -1, nil
	}
	return 0, nil
}

// index reads the benchmark drawdown from its 52-week high plus the
// volatility index. A failed index quote skips the history request.
func (m *Market) index(ctx context.Context, mc *models.MarketContext) (float64, []string) {
	var errs []string

	quote, err := m.market.Quote(ctx, m.cfg.IndexSymbol)
	if err != nil {
		m.log.Warn("index quote failed", logger.Error(err))
		errs = append(errs, "index price unavailable")
	} else {
		history, err := m.market.History(ctx, m.cfg.IndexSymbol, "1day", yearBars)
		if err != nil || history.Len() == 0 {
			errs = append(errs, "index history unavailable")
		} else {
			high := 0.0
			for _, h := range history.Highs() {
				if h > high {
					high = h
				}
			}
			if high > 0 {
				dd := (quote.Price - high) / high * 100
				mc.SP500Drawdown = &dd
			}
		}
	}

	vix, err := m.market.Quote(ctx, m.cfg.VIXSymbol)
	if err != nil {
		m.log.Warn("volatility quote failed", logger.Error(err))
		errs = append(errs, "volatility index unavailable")
	} else {
		v := vix.Price
		mc.VIX = &v
		switch {
		case v > vixExtreme:
			mc.VolatilityLevel = models.VolatilityExtreme
		case v > vixHigh:
			mc.VolatilityLevel = models.VolatilityHigh
		default:
			mc.VolatilityLevel = models.VolatilityNormal
		}
	}

	score := 0.0
	switch {
	case bearMarket(mc):
		score -= 2
	case inCorrection(mc):
		score -= 1
	case mc.SP500Drawdown != nil && *mc.SP500Drawdown > nearHighDrawdown:
		score++
	}
	if mc.VolatilityLevel == models.VolatilityExtreme {
		score--
	}
	return score, errs
}

func bearMarket(mc *models.MarketContext) bool {
	return mc.SP500Drawdown != nil && *mc.SP500Drawdown <= bearDrawdown
}

func inCorrection(mc *models.MarketContext) bool {
	return !bearMarket(mc) && mc.SP500Drawdown != nil && *mc.SP500Drawdown <= correctionDrawdown
}

func marketRecommendation(mc *models.MarketContext) string {
	switch {
	case bearMarket(mc):
		return "BEAR MARKET - elevated risk. Favor cash and defensive positioning."
	case mc.VolatilityLevel == models.VolatilityExtreme:
		return "EXTREME VOLATILITY - wait for stabilization before opening positions."
	case mc.VolatilityLevel == models.VolatilityHigh:
		return "HIGH VOLATILITY - reduce position sizes and keep stops tight."
	case inCorrection(mc):
		return "CORRECTION - potential entries on quality names."
	case mc.Score >= 0:
		return "MARKET FAVORABLE - conditions support new positions."
	default:
		return "CAUTION - uncertain tape."
	}
}
