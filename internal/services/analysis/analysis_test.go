package analysis

import (
	"context"
	"fmt"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/service"
)

type fakeMarketData struct {
	quotes       map[string]models.Quote
	quoteErrs    map[string]error
	batch        map[string]models.Quote
	batchErr     error
	batchCalls   [][]string
	series       map[string]models.Series
	seriesErrs   map[string]error
	historyCalls []string
	funds        map[string]models.Fundamentals
	fundErrs     map[string]error
}

var _ service.MarketData = (*fakeMarketData)(nil)

func (f *fakeMarketData) Quote(_ context.Context, symbol string) (models.Quote, error) {
	if err, ok := f.quoteErrs[symbol]; ok {
		return models.Quote{}, err
	}
	if q, ok := f.quotes[symbol]; ok {
		return q, nil
	}
	return models.Quote{}, fmt.Errorf("no quote for %s", symbol)
}

func (f *fakeMarketData) QuotesBatch(_ context.Context, symbols []string) (map[string]models.Quote, error) {
	f.batchCalls = append(f.batchCalls, symbols)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make(map[string]models.Quote)
	for _, s := range symbols {
		if q, ok := f.batch[s]; ok {
			out[s] = q
		}
	}
	return out, nil
}

func (f *fakeMarketData) History(_ context.Context, symbol, _ string, _ int) (models.Series, error) {
	f.historyCalls = append(f.historyCalls, symbol)
	if err, ok := f.seriesErrs[symbol]; ok {
		return models.Series{}, err
	}
	if s, ok := f.series[symbol]; ok {
		return s, nil
	}
	return models.Series{}, fmt.Errorf("no history for %s", symbol)
}

func (f *fakeMarketData) Fundamentals(_ context.Context, symbol string) (models.Fundamentals, error) {
	if err, ok := f.fundErrs[symbol]; ok {
		return models.Fundamentals{}, err
	}
	if fd, ok := f.funds[symbol]; ok {
		return fd, nil
	}
	return models.Fundamentals{}, fmt.Errorf("no fundamentals for %s", symbol)
}

type stockCall struct{ symbol, name string }

type fakeNews struct {
	macro      []models.Article
	macroErr   error
	stock      map[string][]models.Article
	stockErrs  map[string]error
	stockCalls []stockCall
}

var _ service.News = (*fakeNews)(nil)

func (f *fakeNews) MacroNews(_ context.Context, pageSize int) ([]models.Article, error) {
	if f.macroErr != nil {
		return nil, f.macroErr
	}
	if pageSize > 0 && len(f.macro) > pageSize {
		return f.macro[:pageSize], nil
	}
	return f.macro, nil
}

func (f *fakeNews) StockNews(_ context.Context, symbol, name string, pageSize int) ([]models.Article, error) {
	f.stockCalls = append(f.stockCalls, stockCall{symbol: symbol, name: name})
	if err, ok := f.stockErrs[symbol]; ok {
		return nil, err
	}
	articles := f.stock[symbol]
	if pageSize > 0 && len(articles) > pageSize {
		return articles[:pageSize], nil
	}
	return articles, nil
}

type fakeClassifier struct {
	sentimentFn    func(text string) (models.Classification, error)
	toneFn         func(text string) (models.Classification, error)
	sentimentCalls int
	toneCalls      int
}

var _ service.Classifier = (*fakeClassifier)(nil)

func (f *fakeClassifier) Sentiment(_ context.Context, text string) (models.Classification, error) {
	f.sentimentCalls++
	if f.sentimentFn == nil {
		return models.Classification{Category: models.CategoryNeutral, Confidence: 0.5}, nil
	}
	return f.sentimentFn(text)
}

func (f *fakeClassifier) FedTone(_ context.Context, text string) (models.Classification, error) {
	f.toneCalls++
	if f.toneFn == nil {
		return models.Classification{Category: models.CategoryNeutral, Confidence: 0.5}, nil
	}
	return f.toneFn(text)
}

// sequential returns a classifier func that answers with the given
// categories in order, then NEUTRAL.
func sequential(categories ...string) func(string) (models.Classification, error) {
	i := 0
	return func(string) (models.Classification, error) {
		category := models.CategoryNeutral
		if i < len(categories) {
			category = categories[i]
		}
		i++
		return models.Classification{Category: category, Confidence: 0.9}, nil
	}
}

func quoteAt(symbol string, price float64) models.Quote {
	return models.Quote{Symbol: symbol, Price: price}
}

func quoteChange(symbol string, changePct float64) models.Quote {
	return models.Quote{Symbol: symbol, Price: 100, ChangePercent: changePct}
}

func quoteVolume(symbol string, changePct float64, volume, average int64) models.Quote {
	q := quoteChange(symbol, changePct)
	q.Volume = &volume
	q.AverageVolume = &average
	return q
}

// seriesOf builds a daily series, most recent close first, with highs equal
// to closes.
func seriesOf(symbol string, closes ...float64) models.Series {
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return models.Series{Symbol: symbol, Bars: bars}
}

func article(title string) models.Article {
	return models.Article{Title: title, Description: "wire coverage"}
}

func articles(titles ...string) []models.Article {
	out := make([]models.Article, len(titles))
	for i, title := range titles {
		out[i] = article(title)
	}
	return out
}
