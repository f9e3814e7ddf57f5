package analysis

import (
	"context"
	"fmt"
	"strings"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/service"
	"FinScout/pkg/config"
	"FinScout/pkg/logger"
)

// Factor names reported by the macro analyzer.
const (
	FactorTreasury = "treasury_10y"
	FactorDollar   = "dollar_index"
	FactorFedTone  = "fed_tone"
)

// Macro scores the macro environment from long yields, dollar strength and
// the tone of recent central-bank coverage. The score runs -3 to +1: a bad
// macro read can veto a run, a good one never carries it alone.
type Macro struct {
	market     service.MarketData
	news       service.News
	classifier service.Classifier
	cfg        config.MacroConfig
	log        *logger.Logger
}

func NewMacro(market service.MarketData, news service.News, classifier service.Classifier, cfg config.MacroConfig, lgr *logger.Logger) *Macro {
	return &Macro{market: market, news: news, classifier: classifier, cfg: cfg, log: lgr}
}

// Analyze scores the current macro environment. Quote factors that cannot be
// fetched score zero and invalidate the analysis; a missing Fed read only
// weakens it.
func (m *Macro) Analyze(ctx context.Context) models.MacroAnalysis {
	var factors []models.MacroFactor
	var errs []string

	treasury, err := m.treasuryFactor(ctx)
	factors = append(factors, treasury)
	if err != nil {
		errs = append(errs, "treasury 10y data unavailable")
	}

	dollar, err := m.dollarFactor(ctx)
	factors = append(factors, dollar)
	if err != nil {
		errs = append(errs, "dollar index data unavailable")
	}

	factors = append(factors, m.fedToneFactor(ctx))

	total := 0.0
	for _, f := range factors {
		total += f.Score
	}
	total = clampf(total, -3, 1)

	verdict := models.OKVerdict()
	if len(errs) > 0 {
		verdict = models.InvalidVerdict("%s", strings.Join(errs, "; "))
	}

	m.log.Info("macro analysis done",
		logger.Float64("score", total),
		logger.Bool("valid", verdict.Valid))

	return models.MacroAnalysis{
		Score:          total,
		Factors:        factors,
		Recommendation: macroRecommendation(total),
		Verdict:        verdict,
	}
}

// treasuryFactor scores the 10-year yield: expensive money pressures equity
// valuations, cheap money supports them.
func (m *Macro) treasuryFactor(ctx context.Context) (models.MacroFactor, error) {
	quote, err := m.market.Quote(ctx, m.cfg.TreasurySymbol)
	if err != nil {
		m.log.Warn("treasury quote failed", logger.Error(err))
		return models.MacroFactor{Name: FactorTreasury, Interpretation: "data unavailable"}, err
	}

	rate := quote.Price
	f := models.MacroFactor{Name: FactorTreasury, Value: rate}
	switch {
	case rate > m.cfg.YieldHigh:
		f.Score = -2
		f.Interpretation = fmt.Sprintf("high yields (%.2f%%) pressure valuations", rate)
	case rate < m.cfg.YieldLow:
		f.Score = 1
		f.Interpretation = fmt.Sprintf("low yields (%.2f%%) support risk assets", rate)
	default:
		f.Interpretation = fmt.Sprintf("neutral yields (%.2f%%)", rate)
	}
	return f, nil
}

// dollarFactor scores dollar strength: a rich dollar squeezes multinational
// earnings, a soft one helps them.
func (m *Macro) dollarFactor(ctx context.Context) (models.MacroFactor, error) {
	quote, err := m.market.Quote(ctx, m.cfg.DollarSymbol)
	if err != nil {
		m.log.Warn("dollar index quote failed", logger.Error(err))
		return models.MacroFactor{Name: FactorDollar, Interpretation: "data unavailable"}, err
	}

	dxy := quote.Price
	f := models.MacroFactor{Name: FactorDollar, Value: dxy}
	switch {
	case dxy > m.cfg.DollarHigh:
		f.Score = -1
		f.Interpretation = fmt.Sprintf("strong dollar (%.1f) squeezes exporters", dxy)
	case dxy < m.cfg.DollarLow:
		f.Score = 1
		f.Interpretation = fmt.Sprintf("weak dollar (%.1f) helps exporters", dxy)
	default:
		f.Interpretation = fmt.Sprintf("neutral dollar (%.1f)", dxy)
	}
	return f, nil
}

// fedToneFactor classifies the tone of recent Fed coverage. A hawkish
// plurality scores -1, a dovish one +1.
func (m *Macro) fedToneFactor(ctx context.Context) models.MacroFactor {
	articles, err := m.news.MacroNews(ctx, m.cfg.Articles)
	if err != nil || len(articles) == 0 {
		if err != nil {
			m.log.Warn("macro news fetch failed", logger.Error(err))
		}
		return models.MacroFactor{Name: FactorFedTone, Interpretation: "no recent fed coverage"}
	}

	limit := m.cfg.ClassifyLimit
	if limit > len(articles) {
		limit = len(articles)
	}

	hawkish, dovish, classified := 0, 0, 0
	for _, article := range articles[:limit] {
		res, err := m.classifier.FedTone(ctx, articleText(article))
		if err != nil {
			continue
		}
		classified++
		switch res.Category {
		case models.CategoryHawkish:
			hawkish++
		case models.CategoryDovish:
			dovish++
		}
	}

	if classified == 0 {
		return models.MacroFactor{Name: FactorFedTone, Interpretation: "could not classify fed coverage"}
	}

	f := models.MacroFactor{Name: FactorFedTone}
	switch {
	case hawkish > dovish:
		f.Value = -1
		f.Score = -1
		f.Interpretation = fmt.Sprintf("fed tone hawkish (%d/%d articles)", hawkish, classified)
	case dovish > hawkish:
		f.Value = 1
		f.Score = 1
		f.Interpretation = fmt.Sprintf("fed tone dovish (%d/%d articles)", dovish, classified)
	default:
		f.Interpretation = "fed tone neutral"
	}
	return f
}

func macroRecommendation(score float64) string {
	switch {
	case score <= -2:
		return "MAXIMUM CAUTION - macro environment hostile to risk. Favor cash and defensive exposure."
	case score < 0:
		return "CAUTION - mildly negative macro backdrop. Trim cyclical exposure."
	case score == 0:
		return "NEUTRAL - no strong macro signal. Let market context decide."
	default:
		return "FAVORABLE - supportive macro backdrop. Quality names can be added."
	}
}

