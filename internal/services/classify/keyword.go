package classify

import (
	"context"
	"strings"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/service"
)

// keywordConfidence is the fixed confidence of the heuristic: it knows the
// direction of a headline, never the strength.
const keywordConfidence = 0.3

var positiveWords = []string{
	"surge", "soar", "gain", "profit", "growth", "beat",
	"positive", "bullish", "upgrade", "record", "strong",
}

var negativeWords = []string{
	"fall", "drop", "loss", "decline", "crash", "miss",
	"negative", "bearish", "downgrade", "weak", "warning",
}

var hawkishWords = []string{
	"rate hike", "tightening", "inflation fight", "restrictive",
	"higher rates", "reduce balance", "hawkish",
}

var dovishWords = []string{
	"rate cut", "easing", "accommodation", "supportive",
	"lower rates", "stimulus", "dovish", "pause",
}

// Keyword is a deterministic word-presence classifier. It backs the LLM when
// the model is down or replies with garbage, and works offline by design.
type Keyword struct{}

var _ service.Classifier = (*Keyword)(nil)

func NewKeyword() *Keyword {
	return &Keyword{}
}

// Sentiment counts positive and negative markers; the larger side wins,
// ties are NEUTRAL.
func (k *Keyword) Sentiment(_ context.Context, text string) (models.Classification, error) {
	pos := countPresent(text, positiveWords)
	neg := countPresent(text, negativeWords)
	return vote(pos, neg, models.CategoryPositive, models.CategoryNegative), nil
}

// FedTone counts hawkish and dovish markers the same way.
func (k *Keyword) FedTone(_ context.Context, text string) (models.Classification, error) {
	hawk := countPresent(text, hawkishWords)
	dove := countPresent(text, dovishWords)
	return vote(hawk, dove, models.CategoryHawkish, models.CategoryDovish), nil
}

// countPresent counts how many of the words occur in text at least once.
// Repeats of the same word do not add weight.
func countPresent(text string, words []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

func vote(a, b int, catA, catB string) models.Classification {
	category := models.CategoryNeutral
	switch {
	case a > b:
		category = catA
	case b > a:
		category = catB
	}
	return models.Classification{
		Category:   category,
		Confidence: keywordConfidence,
		Reasoning:  "keyword match",
	}
}
