package classify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScout/internal/domain/models"
	"FinScout/internal/service/provider"
	"FinScout/pkg/cache"
	"FinScout/pkg/clock"
	"FinScout/pkg/logger"
)

type fakeBackend struct {
	mu        sync.Mutex
	available bool
	replyFn   func(prompt string) (string, error)
	probes    int
	prompts   []string
}

func (f *fakeBackend) Available(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.available
}

func (f *fakeBackend) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.replyFn(prompt)
}

func (f *fakeBackend) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

func staticReply(reply string) func(string) (string, error) {
	return func(string) (string, error) { return reply, nil }
}

func TestLLMSentimentParsesReply(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		replyFn:   staticReply(`Sure, here it is: {"sentiment": "POSITIF", "confidence": 0.9, "reason": "record revenue"}`),
	}
	llm := NewLLM(backend)

	res, err := llm.Sentiment(context.Background(), "Acme posts record quarterly revenue")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryPositive, res.Category)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Equal(t, "record revenue", res.Reasoning)
	assert.False(t, res.Fallback)
}

func TestLLMSentimentAcceptsEnglishTokens(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		replyFn:   staticReply(`{"sentiment": "negative"}`),
	}
	llm := NewLLM(backend)

	res, err := llm.Sentiment(context.Background(), "Acme shares tumble after earnings miss")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryNegative, res.Category)
	// Missing confidence defaults to the midpoint.
	assert.Equal(t, 0.5, res.Confidence)
}

func TestLLMSentimentUnknownTokenIsNotAnError(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		replyFn:   staticReply(`{"sentiment": "MIXED", "confidence": 0.8}`),
	}
	llm := NewLLM(backend)

	res, err := llm.Sentiment(context.Background(), "Markets end the week without direction")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryUnknown, res.Category)
	assert.Equal(t, 0.8, res.Confidence)
}

func TestLLMSentimentClampsConfidence(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		replyFn:   staticReply(`{"sentiment": "NEUTRE", "confidence": 1.7}`),
	}
	llm := NewLLM(backend)

	res, err := llm.Sentiment(context.Background(), "Index futures are flat ahead of the open")
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestLLMSentimentParseFailure(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		replyFn:   staticReply("I would call this one positive overall."),
	}
	llm := NewLLM(backend)

	_, err := llm.Sentiment(context.Background(), "Acme raises its full year guidance")
	require.Error(t, err)
	var perr *provider.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, provider.KindParse, perr.Kind)
}

func TestLLMSentimentRejectsShortText(t *testing.T) {
	llm := NewLLM(&fakeBackend{available: true, replyFn: staticReply("{}")})

	_, err := llm.Sentiment(context.Background(), "Acme")
	assert.ErrorIs(t, err, ErrTextTooShort)
}

func TestLLMTruncatesLongText(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		replyFn:   staticReply(`{"sentiment": "NEUTRE"}`),
	}
	llm := NewLLM(backend)

	head := strings.Repeat("a", maxTextLen)
	_, err := llm.Sentiment(context.Background(), head+"OVERFLOW")
	require.NoError(t, err)

	require.Len(t, backend.prompts, 1)
	assert.Contains(t, backend.prompts[0], head)
	assert.NotContains(t, backend.prompts[0], "OVERFLOW")
}

func TestLLMFedTone(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		replyFn:   staticReply(`{"tone": "HAWKISH", "confidence": 0.7, "reason": "rate path"}`),
	}
	llm := NewLLM(backend)

	res, err := llm.FedTone(context.Background(), "Powell stresses the inflation fight is not over")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryHawkish, res.Category)
	assert.Equal(t, 0.7, res.Confidence)
}

func TestKeywordSentiment(t *testing.T) {
	kw := NewKeyword()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"positive", "Stock prices surge on strong profit growth", models.CategoryPositive},
		{"negative", "Shares fall after warning of weak demand", models.CategoryNegative},
		{"tie", "Early surge gives way to a late decline", models.CategoryNeutral},
		{"no markers", "Board meets on Thursday as scheduled", models.CategoryNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := kw.Sentiment(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Category)
			assert.Equal(t, keywordConfidence, res.Confidence)
		})
	}
}

func TestKeywordFedTone(t *testing.T) {
	kw := NewKeyword()

	res, err := kw.FedTone(context.Background(), "Fed signals another rate hike and a restrictive stance")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryHawkish, res.Category)

	res, err = kw.FedTone(context.Background(), "Officials discuss a rate cut and fresh stimulus")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryDovish, res.Category)

	res, err = kw.FedTone(context.Background(), "Minutes mention a rate hike but also a future rate cut")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryNeutral, res.Category)
}

func newTestChain(backend *fakeBackend, opts ...ChainOption) *Chain {
	return NewChain(backend, logger.Nop(), opts...)
}

func TestChainUsesModelWhenHealthy(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		replyFn:   staticReply(`{"sentiment": "POSITIF", "confidence": 0.8}`),
	}
	chain := newTestChain(backend)

	res, err := chain.Sentiment(context.Background(), "Acme beats expectations again")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryPositive, res.Category)
	assert.False(t, res.Fallback)

	diag := chain.Diagnostics()
	assert.Equal(t, 1, diag.TotalRequests)
	assert.Equal(t, 1, diag.ParseSuccesses)
	assert.Equal(t, 0, diag.Fallbacks)
	assert.Equal(t, 0.8, diag.AvgConfidence)
	assert.Equal(t, 1.0, diag.SuccessRate)
	assert.Equal(t, 1, diag.Categories[models.CategoryPositive])
}

func TestChainFallsBackWhenModelDown(t *testing.T) {
	backend := &fakeBackend{available: false}
	chain := newTestChain(backend)

	res, err := chain.Sentiment(context.Background(), "Stock prices surge on strong profit growth")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryPositive, res.Category)
	assert.True(t, res.Fallback)
	assert.Equal(t, keywordConfidence, res.Confidence)

	diag := chain.Diagnostics()
	assert.Equal(t, 1, diag.TotalRequests)
	assert.Equal(t, 1, diag.LLMUnavailable)
	assert.Equal(t, 1, diag.Fallbacks)
	assert.Equal(t, 1, diag.ParseFailures)
	assert.Equal(t, 0.0, diag.SuccessRate)
}

func TestChainFallsBackOnUnparseableReply(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		replyFn:   staticReply("definitely bullish, trust me"),
	}
	chain := newTestChain(backend)

	res, err := chain.Sentiment(context.Background(), "Shares fall after warning of weak demand")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryNegative, res.Category)
	assert.True(t, res.Fallback)
	assert.Equal(t, keywordConfidence, res.Confidence)

	diag := chain.Diagnostics()
	assert.Equal(t, 1, diag.ParseFailures)
	assert.Equal(t, 0, diag.LLMUnavailable)
}

func TestChainFallsBackOnTransportError(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		replyFn: func(string) (string, error) {
			return "", errors.New("connection reset")
		},
	}
	chain := newTestChain(backend)

	res, err := chain.Sentiment(context.Background(), "Shares fall after warning of weak demand")
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	// Less trust than a clean keyword fallback.
	assert.Equal(t, transportFallbackConfidence, res.Confidence)
}

func TestChainShortTextSkipsDiagnostics(t *testing.T) {
	chain := newTestChain(&fakeBackend{available: true, replyFn: staticReply("{}")})

	_, err := chain.Sentiment(context.Background(), "short")
	assert.ErrorIs(t, err, ErrTextTooShort)
	assert.Equal(t, 0, chain.Diagnostics().TotalRequests)
}

func TestChainCachesAvailabilityProbe(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		replyFn:   staticReply(`{"sentiment": "NEUTRE"}`),
	}
	clk := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	chain := newTestChain(backend, WithClock(clk), WithProbeTTL(time.Minute))

	for i := 0; i < 3; i++ {
		_, err := chain.Sentiment(context.Background(), "Index futures are flat ahead of the open")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backend.probeCount())

	clk.Advance(2 * time.Minute)
	_, err := chain.Sentiment(context.Background(), "Index futures are flat ahead of the open")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.probeCount())
}

func TestChainServesRepeatsFromCache(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		replyFn:   staticReply(`{"sentiment": "POSITIF", "confidence": 0.8}`),
	}
	chain := newTestChain(backend, WithCache(cache.NewMemoryCache(), time.Hour))

	first, err := chain.Sentiment(context.Background(), "Acme raises full year guidance")
	require.NoError(t, err)
	second, err := chain.Sentiment(context.Background(), "Acme raises full year guidance")
	require.NoError(t, err)

	assert.Equal(t, first.Category, second.Category)
	assert.Len(t, backend.prompts, 1)
	assert.Equal(t, 1, chain.Diagnostics().TotalRequests)

	// the tone cache is keyed separately from sentiment
	_, err = chain.FedTone(context.Background(), "Acme raises full year guidance")
	require.NoError(t, err)
	assert.Len(t, backend.prompts, 2)
}

func TestQualityCheckWithModel(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		replyFn: func(prompt string) (string, error) {
			switch {
			case strings.Contains(prompt, "soars"):
				return `{"sentiment": "POSITIF", "confidence": 0.9}`, nil
			case strings.Contains(prompt, "layoffs"):
				return `{"sentiment": "NEGATIF", "confidence": 0.9}`, nil
			case strings.Contains(prompt, "meet analyst"):
				return `{"sentiment": "NEUTRE", "confidence": 0.6}`, nil
			case strings.Contains(prompt, "beats expectations"):
				return `{"sentiment": "POSITIVE", "confidence": 0.8}`, nil
			default:
				return `{"sentiment": "NEGATIVE", "confidence": 0.8}`, nil
			}
		},
	}
	chain := newTestChain(backend)

	report := chain.QualityCheck(context.Background())
	assert.Equal(t, 1.0, report.Accuracy)
	assert.Equal(t, "5/5", report.Score)
	assert.Equal(t, QualityOK, report.Status)
	require.Len(t, report.Cases, 5)
	for _, c := range report.Cases {
		assert.True(t, c.Correct, c.Text)
	}
}

func TestQualityCheckGradesKeywordFallback(t *testing.T) {
	// With the model down the keyword heuristic reads four of the five
	// canned headlines correctly; the scandal headline has no marker words.
	chain := newTestChain(&fakeBackend{available: false})

	report := chain.QualityCheck(context.Background())
	assert.Equal(t, 0.8, report.Accuracy)
	assert.Equal(t, "4/5", report.Score)
	assert.Equal(t, QualityOK, report.Status)
}
