package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"FinScout/internal/domain/models"
	domrepo "FinScout/internal/domain/repository"
)

// stubMarketData serves canned quotes to the usecases under test.
type stubMarketData struct {
	mu       sync.Mutex
	quotes   map[string]models.Quote
	quoteErr error
	asked    []string
}

func (m *stubMarketData) Quote(_ context.Context, symbol string) (models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asked = append(m.asked, symbol)
	if m.quoteErr != nil {
		return models.Quote{}, m.quoteErr
	}
	q, ok := m.quotes[symbol]
	if !ok {
		return models.Quote{}, errors.New("no quote for " + symbol)
	}
	return q, nil
}

func (m *stubMarketData) QuotesBatch(_ context.Context, symbols []string) (map[string]models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	out := make(map[string]models.Quote, len(symbols))
	for _, sym := range symbols {
		if q, ok := m.quotes[sym]; ok {
			out[sym] = q
		}
	}
	return out, nil
}

func (m *stubMarketData) History(context.Context, string, string, int) (models.Series, error) {
	return models.Series{}, errors.New("history not stubbed")
}

func (m *stubMarketData) Fundamentals(context.Context, string) (models.Fundamentals, error) {
	return models.Fundamentals{}, errors.New("fundamentals not stubbed")
}

// recordingNotifier captures every delivered message; failWith forces the
// delivery error path.
type recordingNotifier struct {
	mu       sync.Mutex
	failWith error

	alerts    []*models.SignalRecord
	prompts   []*models.SignalRecord
	warnings  []*models.MacroAnalysis
	summaries []*models.RunResult
	reviews   [][]*models.SignalRecord
	prices    []map[string]float64
	stats     []*models.SignalStatistics
	runErrs   []error
	startups  int
}

func (n *recordingNotifier) SignalAlert(_ context.Context, rec *models.SignalRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, rec)
	return n.failWith
}

func (n *recordingNotifier) RatingPrompt(_ context.Context, rec *models.SignalRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prompts = append(n.prompts, rec)
	return n.failWith
}

func (n *recordingNotifier) MacroWarning(_ context.Context, m *models.MacroAnalysis) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, m)
	return n.failWith
}

func (n *recordingNotifier) DailySummary(_ context.Context, res *models.RunResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, res)
	return n.failWith
}

func (n *recordingNotifier) ReviewList(_ context.Context, recs []*models.SignalRecord, prices map[string]float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reviews = append(n.reviews, recs)
	n.prices = append(n.prices, prices)
	return n.failWith
}

func (n *recordingNotifier) Stats(_ context.Context, st *models.SignalStatistics) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stats = append(n.stats, st)
	return n.failWith
}

func (n *recordingNotifier) ErrorAlert(_ context.Context, runErr error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.runErrs = append(n.runErrs, runErr)
	return n.failWith
}

func (n *recordingNotifier) Startup(context.Context, int, bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.startups++
	return n.failWith
}

func (n *recordingNotifier) alertCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func (n *recordingNotifier) warningCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.warnings)
}

func (n *recordingNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.runErrs)
}

func (n *recordingNotifier) reviewCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reviews)
}

func (n *recordingNotifier) startupCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.startups
}

// Stage fakes. Each records the symbols it was asked about.

type stageMacro struct {
	out   models.MacroAnalysis
	block chan struct{}
	calls int
}

func (s *stageMacro) Analyze(context.Context) models.MacroAnalysis {
	if s.block != nil {
		<-s.block
	}
	s.calls++
	return s.out
}

type stageMarket struct {
	out   models.MarketContext
	calls int
}

func (s *stageMarket) Analyze(context.Context) models.MarketContext {
	s.calls++
	return s.out
}

type stageFundamentals struct {
	out []models.FundamentalScore
	got []string
}

func (s *stageFundamentals) AnalyzeBatch(_ context.Context, symbols []string) []models.FundamentalScore {
	s.got = symbols
	return s.out
}

type stageTechnical struct {
	out []models.TechnicalScore
	got []string
}

func (s *stageTechnical) AnalyzeBatch(_ context.Context, symbols []string) []models.TechnicalScore {
	s.got = symbols
	return s.out
}

type stageSentiment struct {
	out map[string]models.SentimentScore
	got []string
}

func (s *stageSentiment) AnalyzeBatch(_ context.Context, symbols []string) map[string]models.SentimentScore {
	s.got = symbols
	if s.out == nil {
		return map[string]models.SentimentScore{}
	}
	return s.out
}

func disabled() *bool {
	v := false
	return &v
}

func fundamentalOf(symbol string, score float64) models.FundamentalScore {
	return models.FundamentalScore{
		Symbol:  symbol,
		Score:   score,
		Rating:  models.RatingBullish,
		Verdict: models.OKVerdict(),
	}
}

// technicalOf builds an eligible technical score: price above MA50, neutral
// RSI.
func technicalOf(symbol string, score float64) models.TechnicalScore {
	return models.TechnicalScore{
		Symbol:          symbol,
		Price:           110,
		MA50:            100,
		RSI:             50,
		DistancePercent: 10,
		Timing:          models.TimingOptimal,
		Trend:           models.RatingBullish,
		RSISignal:       models.RSINeutral,
		Score:           score,
		Verdict:         models.OKVerdict(),
	}
}

func sentimentOf(symbol string, score float64, analyzed int) models.SentimentScore {
	return models.SentimentScore{
		Symbol:   symbol,
		Score:    score,
		Label:    models.SentimentPositive,
		Analyzed: analyzed,
		Verdict:  models.OKVerdict(),
	}
}

// recordingPublisher captures published records.
type recordingPublisher struct {
	mu        sync.Mutex
	published []*models.SignalRecord
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, rec *models.SignalRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, rec)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// runMetrics counts run and signal recordings.
type runMetrics struct {
	domrepo.NopMetrics
	mu      sync.Mutex
	runs    []string
	signals int
}

func (m *runMetrics) RecordRun(status string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, status)
}

func (m *runMetrics) RecordSignal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals++
}

type countingSweeper struct {
	swept int
}

func (s *countingSweeper) CleanupExpired() int {
	s.swept++
	return 3
}

// storedSignal builds a persisted-shape record for store-backed tests.
func storedSignal(id, symbol string, created time.Time) *models.SignalRecord {
	return &models.SignalRecord{
		ID:        id,
		CreatedAt: created,
		Symbol:    symbol,
		Scores: map[string]float64{
			models.ScoreMacro:       1,
			models.ScoreMarket:      1,
			models.ScoreFundamental: 1.5,
			models.ScoreSentiment:   1.5,
		},
		TotalScore: 7.5,
		Confidence: 0.7,
	}
}
