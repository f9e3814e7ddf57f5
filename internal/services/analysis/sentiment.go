package analysis

import (
	"context"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/service"
	"FinScout/pkg/config"
	"FinScout/pkg/logger"
)

// Sentiment scores recent per-symbol news coverage in [0,3] from classified
// headline sentiment.
type Sentiment struct {
	news       service.News
	classifier service.Classifier
	names      map[string]string
	cfg        config.SentimentConfig
	log        *logger.Logger
}

// NewSentiment builds the sentiment stage. names maps tickers to company
// display names used to widen the news query.
func NewSentiment(news service.News, classifier service.Classifier, names map[string]string, cfg config.SentimentConfig, lgr *logger.Logger) *Sentiment {
	return &Sentiment{news: news, classifier: classifier, names: names, cfg: cfg, log: lgr}
}

// AnalyzeSymbol scores one symbol. No retrievable articles, or none that
// classify, yields an invalid result rather than a neutral-looking score.
func (s *Sentiment) AnalyzeSymbol(ctx context.Context, symbol string) models.SentimentScore {
	invalid := func(msg string) models.SentimentScore {
		return models.SentimentScore{Symbol: symbol, Verdict: models.InvalidVerdict(msg)}
	}

	articles, err := s.news.StockNews(ctx, symbol, s.names[symbol], s.cfg.NewsCount)
	if err != nil {
		s.log.Warn("stock news failed", logger.String("symbol", symbol), logger.Error(err))
		return invalid("news unavailable")
	}
	if len(articles) == 0 {
		return invalid("no recent news")
	}
	if s.cfg.NewsCount > 0 && len(articles) > s.cfg.NewsCount {
		articles = articles[:s.cfg.NewsCount]
	}

	var pos, neg, neu, analyzed int
	confSum := 0.0
	for _, article := range articles {
		if article.Title == "" {
			continue
		}
		res, err := s.classifier.Sentiment(ctx, articleText(article))
		if err != nil {
			continue
		}
		analyzed++
		confSum += res.Confidence
		switch res.Category {
		case models.CategoryPositive:
			pos++
		case models.CategoryNegative:
			neg++
		default:
			neu++
		}
	}
	if analyzed == 0 {
		return invalid("no classifiable news")
	}

	posRatio := float64(pos) / float64(analyzed)
	negRatio := float64(neg) / float64(analyzed)

	score, label := 1.5, models.SentimentNeutral
	switch {
	case posRatio >= 0.6:
		score, label = 3.0, models.SentimentVeryPositive
	case posRatio >= 0.4:
		score, label = 2.0, models.SentimentPositive
	case negRatio >= 0.6:
		score, label = 0.0, models.SentimentVeryNegative
	case negRatio >= 0.4:
		score, label = 1.0, models.SentimentNegative
	}

	return models.SentimentScore{
		Symbol:        symbol,
		Score:         score,
		Label:         label,
		Positive:      pos,
		Negative:      neg,
		Neutral:       neu,
		Analyzed:      analyzed,
		AvgConfidence: confSum / float64(analyzed),
		Verdict:       models.OKVerdict(),
	}
}

// AnalyzeBatch scores the given symbols sequentially.
func (s *Sentiment) AnalyzeBatch(ctx context.Context, symbols []string) map[string]models.SentimentScore {
	out := make(map[string]models.SentimentScore, len(symbols))
	for _, symbol := range symbols {
		res := s.AnalyzeSymbol(ctx, symbol)
		out[symbol] = res
		if res.Verdict.OK() {
			s.log.Debug("sentiment score",
				logger.String("symbol", symbol),
				logger.Float64("score", res.Score),
				logger.String("label", res.Label),
				logger.Int("analyzed", res.Analyzed))
		}
	}
	return out
}
