package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/service"
	"FinScout/pkg/clock"
	"FinScout/pkg/config"
	"FinScout/pkg/logger"
	"FinScout/pkg/util"
)

// Weight policies for combining stage scores.
const (
	PolicyFourFactor = "four_factor"
	PolicyFiveFactor = "five_factor"
)

const (
	// defaultSentiment substitutes for symbols the sentiment stage skipped
	// or could not score.
	defaultSentiment = 1.5

	// summaryLimit caps each per-stage summary stored on a signal.
	summaryLimit = 50
)

// Synthesizer combines stage scores into signals. Only candidates clearing
// the alert threshold under a non-negative market context are promoted.
type Synthesizer struct {
	market service.MarketData
	cfg    config.ScoringConfig
	clk    clock.Clock
	log    *logger.Logger
}

// NewSynthesizer builds a synthesizer. market supplies the entry quote
// stamped on promoted signals.
func NewSynthesizer(market service.MarketData, cfg config.ScoringConfig, clk clock.Clock, lgr *logger.Logger) *Synthesizer {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Synthesizer{market: market, cfg: cfg, clk: clk, log: lgr}
}

// candidate is one symbol's collected stage outputs.
type candidate struct {
	symbol      string
	fundamental models.FundamentalScore
	technical   *models.TechnicalScore
	sentiment   *models.SentimentScore
}

// Synthesize scores every surviving candidate and returns the promoted
// signal records, highest-ranked first. A negative market context marks the
// run suppressed and emits nothing.
func (s *Synthesizer) Synthesize(ctx context.Context, res *models.RunResult) []*models.SignalRecord {
	if res.Market != nil && res.Market.Score < 0 {
		res.Suppressed = true
		s.log.Info("emission suppressed by market context",
			logger.Float64("market_score", res.Market.Score))
		return nil
	}

	var out []*models.SignalRecord
	for _, c := range candidatesOf(res) {
		total, normalized := s.scoreOf(res, c)
		s.log.Debug("candidate scored",
			logger.String("symbol", c.symbol),
			logger.Float64("total", total),
			logger.Float64("normalized", normalized))
		if normalized < s.cfg.AlertThreshold {
			continue
		}
		out = append(out, s.buildRecord(ctx, res, c, normalized))
	}
	return out
}

// candidatesOf derives the scoring set from accumulated stage results. When
// the technical stage ran, its eligible symbols drive the set; otherwise
// every symbol with a valid fundamental score is a candidate.
func candidatesOf(res *models.RunResult) []candidate {
	fundamentals := make(map[string]models.FundamentalScore, len(res.Fundamentals))
	for _, f := range res.Fundamentals {
		fundamentals[f.Symbol] = f
	}

	var out []candidate
	add := func(symbol string, tech *models.TechnicalScore) {
		f, ok := fundamentals[symbol]
		if !ok || !f.Verdict.OK() {
			return
		}
		c := candidate{symbol: symbol, fundamental: f, technical: tech}
		if sent, ok := res.Sentiments[symbol]; ok {
			c.sentiment = &sent
		}
		out = append(out, c)
	}

	if len(res.Technicals) > 0 {
		for i := range res.Technicals {
			t := res.Technicals[i]
			if !t.Eligible() {
				continue
			}
			add(t.Symbol, &t)
		}
		return out
	}
	for _, f := range res.Fundamentals {
		add(f.Symbol, nil)
	}
	return out
}

// scoreOf computes the candidate's raw total and its 0-10 normalization
// under the configured weight policy.
func (s *Synthesizer) scoreOf(res *models.RunResult, c candidate) (total, normalized float64) {
	var macro, market float64
	if res.Macro != nil {
		macro = res.Macro.Score
	}
	if res.Market != nil {
		market = res.Market.Score
	}

	total = macro + market + c.fundamental.Score + s.sentimentOf(c)
	span := 15.0
	if s.cfg.Policy == PolicyFiveFactor {
		if c.technical != nil {
			total += c.technical.Score
		}
		span = 18.0
	}
	normalized = math.Min(10, math.Max(0, (total+5)*10/span))
	return total, normalized
}

// sentimentOf returns the effective sentiment score, defaulting symbols the
// stage skipped or failed on.
func (s *Synthesizer) sentimentOf(c candidate) float64 {
	if c.sentiment != nil && c.sentiment.Verdict.OK() {
		return c.sentiment.Score
	}
	return defaultSentiment
}

// confidence estimates signal quality from stage validity plus setup
// bonuses. Stages that never ran count as valid; stages that ran and failed
// count zero.
func (s *Synthesizer) confidence(res *models.RunResult, c candidate) float64 {
	conf := 0.0
	if res.Macro == nil || res.Macro.Verdict.OK() {
		conf += 0.15
	}
	if res.Market == nil || res.Market.Verdict.OK() {
		conf += 0.15
	}
	if c.fundamental.Verdict.OK() {
		conf += 0.20
	}
	if c.technical != nil {
		if c.technical.Verdict.OK() {
			conf += 0.15
		}
	} else if len(res.Technicals) == 0 {
		conf += 0.15
	}
	if c.sentiment != nil {
		if c.sentiment.Verdict.OK() {
			conf += 0.15
		}
	} else if res.Sentiments == nil {
		conf += 0.15
	}

	if t := c.technical; t != nil {
		if t.RSI >= 40 && t.RSI <= 60 {
			conf += 0.05
		}
		if t.DistancePercent > 0 && t.DistancePercent <= 10 {
			conf += 0.05
		}
	}
	if c.sentiment != nil && c.sentiment.Analyzed >= 3 {
		conf += 0.05
	}
	if res.Market != nil && contains(res.Market.AbnormalVolume, c.symbol) {
		conf += 0.05
	}

	return math.Round(math.Min(1, math.Max(0, conf))*100) / 100
}

// buildRecord assembles the signal record for a promoted candidate. The
// entry quote is best-effort: a failed quote leaves Price nil but still
// emits the record.
func (s *Synthesizer) buildRecord(ctx context.Context, res *models.RunResult, c candidate, normalized float64) *models.SignalRecord {
	scores := map[string]float64{
		models.ScoreMacro:       0,
		models.ScoreMarket:      0,
		models.ScoreFundamental: c.fundamental.Score,
		models.ScoreSentiment:   s.sentimentOf(c),
	}
	if res.Macro != nil {
		scores[models.ScoreMacro] = res.Macro.Score
	}
	if res.Market != nil {
		scores[models.ScoreMarket] = res.Market.Score
	}
	if s.cfg.Policy == PolicyFiveFactor && c.technical != nil {
		scores[models.ScoreTechnical] = c.technical.Score
	}

	rec := &models.SignalRecord{
		ID:         newSignalID(),
		CreatedAt:  s.clk.Now(),
		Symbol:     c.symbol,
		Scores:     scores,
		TotalScore: normalized,
		Confidence: s.confidence(res, c),
		Summaries:  summariesOf(res, c),
	}

	q, err := s.market.Quote(ctx, c.symbol)
	if err != nil {
		s.log.Warn("entry quote unavailable",
			logger.String("symbol", c.symbol), logger.Error(err))
	} else {
		price := q.Price
		rec.Price = &price
	}
	return rec
}

// summariesOf collects one short line per stage that produced output for
// the candidate.
func summariesOf(res *models.RunResult, c candidate) map[string]string {
	out := make(map[string]string)
	if res.Macro != nil && res.Macro.Recommendation != "" {
		out[models.ScoreMacro] = util.Truncate(res.Macro.Recommendation, summaryLimit)
	}
	if res.Market != nil && res.Market.Recommendation != "" {
		out[models.ScoreMarket] = util.Truncate(res.Market.Recommendation, summaryLimit)
	}
	out[models.ScoreFundamental] = util.Truncate(fundamentalSummary(c.fundamental), summaryLimit)
	if t := c.technical; t != nil {
		out[models.ScoreTechnical] = util.Truncate(technicalSummary(*t), summaryLimit)
	}
	if c.sentiment != nil && c.sentiment.Verdict.OK() {
		out[models.ScoreSentiment] = util.Truncate(sentimentSummary(*c.sentiment), summaryLimit)
	}
	return out
}

func fundamentalSummary(f models.FundamentalScore) string {
	label := strings.ToLower(f.Rating)
	if f.Momentum30 != nil {
		return fmt.Sprintf("%s, 30d %+.1f%%", label, *f.Momentum30*100)
	}
	return fmt.Sprintf("%s ratios", label)
}

func technicalSummary(t models.TechnicalScore) string {
	return fmt.Sprintf("%s, RSI %.0f, %s entry",
		strings.ToLower(t.Trend), t.RSI, strings.ToLower(t.Timing))
}

func sentimentSummary(s models.SentimentScore) string {
	label := strings.ToLower(strings.ReplaceAll(s.Label, "_", " "))
	return fmt.Sprintf("%s, %d articles", label, s.Analyzed)
}

// newSignalID returns a short opaque id, safe for filenames and URLs.
func newSignalID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
