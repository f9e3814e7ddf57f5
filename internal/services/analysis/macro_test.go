package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScout/internal/domain/models"
	"FinScout/pkg/config"
	"FinScout/pkg/logger"
)

func macroCfg() config.MacroConfig {
	return config.MacroConfig{
		TreasurySymbol: "TNX",
		DollarSymbol:   "DXY",
		YieldHigh:      4.5,
		YieldLow:       3.0,
		DollarHigh:     105,
		DollarLow:      100,
		Articles:       5,
		ClassifyLimit:  3,
	}
}

func findFactor(t *testing.T, res models.MacroAnalysis, name string) models.MacroFactor {
	t.Helper()
	for _, f := range res.Factors {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("factor %s not found", name)
	return models.MacroFactor{}
}

func TestMacroFavorableEnvironment(t *testing.T) {
	market := &fakeMarketData{quotes: map[string]models.Quote{
		"TNX": quoteAt("TNX", 2.8),
		"DXY": quoteAt("DXY", 102),
	}}
	news := &fakeNews{macro: articles("Fed signals pause", "Rate cut chatter grows", "Easing ahead")}
	classifier := &fakeClassifier{toneFn: sequential(
		models.CategoryDovish, models.CategoryDovish, models.CategoryNeutral,
	)}

	res := NewMacro(market, news, classifier, macroCfg(), logger.Nop()).Analyze(context.Background())

	require.True(t, res.Verdict.Valid)
	assert.Equal(t, 1.0, res.Score) // +1 yields, 0 dollar, +1 dovish, clamped
	assert.Contains(t, res.Recommendation, "FAVORABLE")

	fed := findFactor(t, res, FactorFedTone)
	assert.Equal(t, 1.0, fed.Score)
	assert.Contains(t, fed.Interpretation, "dovish (2/3")
}

func TestMacroHostileEnvironmentClampsAtFloor(t *testing.T) {
	market := &fakeMarketData{quotes: map[string]models.Quote{
		"TNX": quoteAt("TNX", 4.8),
		"DXY": quoteAt("DXY", 106.5),
	}}
	news := &fakeNews{macro: articles("Powell stresses inflation fight", "More hikes coming", "Restrictive for longer")}
	classifier := &fakeClassifier{toneFn: sequential(
		models.CategoryHawkish, models.CategoryHawkish, models.CategoryHawkish,
	)}

	res := NewMacro(market, news, classifier, macroCfg(), logger.Nop()).Analyze(context.Background())

	require.True(t, res.Verdict.Valid)
	assert.Equal(t, -3.0, res.Score) // -2 -1 -1 clamped to the floor
	assert.Contains(t, res.Recommendation, "MAXIMUM CAUTION")
	assert.Equal(t, -2.0, findFactor(t, res, FactorTreasury).Score)
	assert.Equal(t, -1.0, findFactor(t, res, FactorDollar).Score)
}

func TestMacroQuoteFailureInvalidates(t *testing.T) {
	market := &fakeMarketData{
		quotes:    map[string]models.Quote{"DXY": quoteAt("DXY", 102)},
		quoteErrs: map[string]error{"TNX": errors.New("credit window exhausted")},
	}
	news := &fakeNews{}
	classifier := &fakeClassifier{}

	res := NewMacro(market, news, classifier, macroCfg(), logger.Nop()).Analyze(context.Background())

	assert.False(t, res.Verdict.Valid)
	assert.Contains(t, res.Verdict.Err, "treasury 10y")
	require.Len(t, res.Factors, 3)

	treasury := findFactor(t, res, FactorTreasury)
	assert.Equal(t, 0.0, treasury.Score)
	assert.Equal(t, "data unavailable", treasury.Interpretation)
}

func TestMacroFedNewsFailureDoesNotInvalidate(t *testing.T) {
	market := &fakeMarketData{quotes: map[string]models.Quote{
		"TNX": quoteAt("TNX", 3.8),
		"DXY": quoteAt("DXY", 102),
	}}
	news := &fakeNews{macroErr: errors.New("newsapi 426")}
	classifier := &fakeClassifier{}

	res := NewMacro(market, news, classifier, macroCfg(), logger.Nop()).Analyze(context.Background())

	assert.True(t, res.Verdict.Valid)
	assert.Equal(t, 0.0, res.Score)
	assert.Contains(t, res.Recommendation, "NEUTRAL")

	fed := findFactor(t, res, FactorFedTone)
	assert.Equal(t, 0.0, fed.Score)
	assert.Equal(t, "no recent fed coverage", fed.Interpretation)
	assert.Equal(t, 0, classifier.toneCalls)
}

func TestMacroFedToneTieIsNeutral(t *testing.T) {
	market := &fakeMarketData{quotes: map[string]models.Quote{
		"TNX": quoteAt("TNX", 3.8),
		"DXY": quoteAt("DXY", 102),
	}}
	news := &fakeNews{macro: articles("Hike talk", "Cut talk", "No talk")}
	classifier := &fakeClassifier{toneFn: sequential(
		models.CategoryHawkish, models.CategoryDovish, models.CategoryNeutral,
	)}

	res := NewMacro(market, news, classifier, macroCfg(), logger.Nop()).Analyze(context.Background())

	fed := findFactor(t, res, FactorFedTone)
	assert.Equal(t, 0.0, fed.Score)
	assert.Equal(t, "fed tone neutral", fed.Interpretation)
}

func TestMacroClassifiesLimitedArticles(t *testing.T) {
	market := &fakeMarketData{quotes: map[string]models.Quote{
		"TNX": quoteAt("TNX", 3.8),
		"DXY": quoteAt("DXY", 102),
	}}
	news := &fakeNews{macro: articles("one", "two", "three", "four", "five")}
	classifier := &fakeClassifier{}

	NewMacro(market, news, classifier, macroCfg(), logger.Nop()).Analyze(context.Background())

	assert.Equal(t, 3, classifier.toneCalls)
}
