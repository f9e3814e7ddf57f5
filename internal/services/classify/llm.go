package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/service"
	"FinScout/internal/service/provider"
	"FinScout/pkg/util"
)

const (
	// maxTextLen caps prompt payloads so one oversized article cannot blow
	// the model context window.
	maxTextLen = 500
	// minTextLen is the shortest text worth classifying.
	minTextLen = 10
)

// ErrTextTooShort is returned for inputs below minTextLen. Callers count the
// item as unclassified instead of falling back to the keyword heuristic.
var ErrTextTooShort = errors.New("text too short to classify")

const sentimentPrompt = `Analyze the sentiment of this financial news.
Reply ONLY with a JSON in this exact format:
{"sentiment": "POSITIF" or "NEGATIF" or "NEUTRE", "confidence": 0.0-1.0, "reason": "short explanation"}

News to analyze:
%s

JSON:`

const fedTonePrompt = `Analyze the Federal Reserve communication tone.
HAWKISH = restrictive monetary policy, rate hikes, fighting inflation (negative for stocks)
DOVISH = accommodative policy, rate cuts, supporting growth (positive for stocks)

Reply ONLY with a JSON:
{"tone": "HAWKISH" or "DOVISH" or "NEUTRAL", "confidence": 0.0-1.0, "reason": "short explanation"}

Text to analyze:
%s

JSON:`

// jsonObject matches the first brace-delimited object in a model reply.
// Small local models wrap the JSON in prose more often than not.
var jsonObject = regexp.MustCompile(`\{[^}]+\}`)

// sentimentTokens accepts both the prompted tokens and their English forms,
// which smaller models tend to substitute.
var sentimentTokens = map[string]string{
	"POSITIF":  models.CategoryPositive,
	"POSITIVE": models.CategoryPositive,
	"NEGATIF":  models.CategoryNegative,
	"NEGATIVE": models.CategoryNegative,
	"NEUTRE":   models.CategoryNeutral,
	"NEUTRAL":  models.CategoryNeutral,
}

var toneTokens = map[string]string{
	"HAWKISH": models.CategoryHawkish,
	"DOVISH":  models.CategoryDovish,
	"NEUTRAL": models.CategoryNeutral,
}

// LLM classifies text by prompting a generation backend for one-line JSON.
type LLM struct {
	backend service.LLM
}

var _ service.Classifier = (*LLM)(nil)

func NewLLM(backend service.LLM) *LLM {
	return &LLM{backend: backend}
}

// Sentiment classifies a headline as POSITIVE, NEGATIVE or NEUTRAL.
func (l *LLM) Sentiment(ctx context.Context, text string) (models.Classification, error) {
	return l.classify(ctx, text, sentimentPrompt, "sentiment", sentimentTokens)
}

// FedTone classifies central-bank communication as HAWKISH, DOVISH or NEUTRAL.
func (l *LLM) FedTone(ctx context.Context, text string) (models.Classification, error) {
	return l.classify(ctx, text, fedTonePrompt, "tone", toneTokens)
}

func (l *LLM) classify(ctx context.Context, text, prompt, field string, tokens map[string]string) (models.Classification, error) {
	text = strings.TrimSpace(text)
	if len(text) < minTextLen {
		return models.Classification{}, ErrTextTooShort
	}
	text = util.Truncate(text, maxTextLen)

	reply, err := l.backend.Generate(ctx, fmt.Sprintf(prompt, text))
	if err != nil {
		return models.Classification{}, provider.FromTransport("ollama", err)
	}
	return parseReply(reply, field, tokens)
}

type modelReply struct {
	Sentiment  string   `json:"sentiment"`
	Tone       string   `json:"tone"`
	Confidence *float64 `json:"confidence"`
	Reason     string   `json:"reason"`
}

// parseReply extracts the first JSON object from a raw model reply and maps
// its category token. An unrecognized token still parses: the caller gets
// UNKNOWN rather than a fallback classification.
func parseReply(reply, field string, tokens map[string]string) (models.Classification, error) {
	raw := jsonObject.FindString(strings.TrimSpace(reply))
	if raw == "" {
		return models.Classification{}, provider.Parse("ollama", "no JSON object in reply", nil)
	}
	var parsed modelReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return models.Classification{}, provider.Parse("ollama", "malformed JSON reply", err)
	}

	token := parsed.Sentiment
	if field == "tone" {
		token = parsed.Tone
	}
	category, ok := tokens[strings.ToUpper(strings.TrimSpace(token))]
	if !ok {
		category = models.CategoryUnknown
	}

	confidence := 0.5
	if parsed.Confidence != nil {
		confidence = clamp01(*parsed.Confidence)
	}
	return models.Classification{
		Category:   category,
		Confidence: confidence,
		Reasoning:  parsed.Reason,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
