package service

import (
	"context"

	"FinScout/internal/domain/models"
)

// MarketData provides quotes, price history, and fundamentals for symbols.
type MarketData interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	// QuotesBatch returns one quote per symbol; symbols the provider did not
	// answer for are absent from the map.
	QuotesBatch(ctx context.Context, symbols []string) (map[string]models.Quote, error)
	History(ctx context.Context, symbol, interval string, outputSize int) (models.Series, error)
	Fundamentals(ctx context.Context, symbol string) (models.Fundamentals, error)
}

// News searches recent articles.
type News interface {
	MacroNews(ctx context.Context, pageSize int) ([]models.Article, error)
	StockNews(ctx context.Context, symbol, name string, pageSize int) ([]models.Article, error)
}

// LLM is a local text-generation backend.
type LLM interface {
	Available(ctx context.Context) bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classifier assigns a category to a piece of text.
type Classifier interface {
	Sentiment(ctx context.Context, text string) (models.Classification, error)
	FedTone(ctx context.Context, text string) (models.Classification, error)
}
