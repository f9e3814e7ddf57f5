package usecase

import (
	"context"
	"errors"
	"sync"

	"FinScout/internal/domain/models"
	domrepo "FinScout/internal/domain/repository"
	domsvc "FinScout/internal/domain/service"
	"FinScout/pkg/clock"
	"FinScout/pkg/config"
	"FinScout/pkg/logger"
)

// ErrRunInFlight is returned when a run is requested while another is active.
var ErrRunInFlight = errors.New("analysis run already in flight")

// macroAlertFloor is the macro score at or below which the run stops and
// only the macro warning goes out.
const macroAlertFloor = -2.0

// Stage analyzers driven by the orchestrator. Satisfied by the concrete
// analyzers in internal/services/analysis.
type (
	MacroAnalyzer interface {
		Analyze(ctx context.Context) models.MacroAnalysis
	}
	MarketAnalyzer interface {
		Analyze(ctx context.Context) models.MarketContext
	}
	FundamentalsAnalyzer interface {
		AnalyzeBatch(ctx context.Context, symbols []string) []models.FundamentalScore
	}
	TechnicalAnalyzer interface {
		AnalyzeBatch(ctx context.Context, symbols []string) []models.TechnicalScore
	}
	SentimentAnalyzer interface {
		AnalyzeBatch(ctx context.Context, symbols []string) map[string]models.SentimentScore
	}
)

// Stages groups the five analyzers one run walks through.
type Stages struct {
	Macro        MacroAnalyzer
	Market       MarketAnalyzer
	Fundamentals FundamentalsAnalyzer
	Technical    TechnicalAnalyzer
	Sentiment    SentimentAnalyzer
}

// Sweeper evicts expired cache entries; satisfied by the cache backends.
type Sweeper interface {
	CleanupExpired() int
}

// Research orchestrates one analysis run over the watchlist: macro and
// market gates, per-symbol scoring stages, synthesis, and emission of the
// promoted signals. At most one run is active per process.
type Research struct {
	stages    Stages
	synth     *Synthesizer
	store     domrepo.SignalStore
	publisher domrepo.Publisher
	notifier  domsvc.Notifier
	sweeper   Sweeper
	cfg       *config.Config
	met       domrepo.Metrics
	clk       clock.Clock
	log       *logger.Logger

	mu      sync.Mutex
	running bool
}

// NewResearch builds the orchestrator. sweeper may be nil when no cache
// needs end-of-run maintenance.
func NewResearch(
	stages Stages,
	synth *Synthesizer,
	store domrepo.SignalStore,
	publisher domrepo.Publisher,
	notifier domsvc.Notifier,
	sweeper Sweeper,
	cfg *config.Config,
	met domrepo.Metrics,
	clk clock.Clock,
	lgr *logger.Logger,
) *Research {
	if met == nil {
		met = domrepo.NopMetrics{}
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Research{
		stages:    stages,
		synth:     synth,
		store:     store,
		publisher: publisher,
		notifier:  notifier,
		sweeper:   sweeper,
		cfg:       cfg,
		met:       met,
		clk:       clk,
		log:       lgr,
	}
}

// Run executes one full analysis run and blocks until it finishes. testMode
// suppresses every notification.
func (r *Research) Run(ctx context.Context, testMode bool) (*models.RunResult, error) {
	if !r.begin() {
		return nil, ErrRunInFlight
	}
	defer r.end()
	return r.run(ctx, testMode)
}

// RunAsync starts a run in the background, detached from the caller's
// cancellation. Returns ErrRunInFlight when one is already active.
func (r *Research) RunAsync(ctx context.Context, testMode bool) error {
	if !r.begin() {
		return ErrRunInFlight
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		defer r.end()
		if _, err := r.run(bg, testMode); err != nil {
			r.log.Error("background run failed", logger.Error(err))
		}
	}()
	return nil
}

// InFlight reports whether a run is currently active.
func (r *Research) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Research) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *Research) end() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Research) run(ctx context.Context, testMode bool) (res *models.RunResult, err error) {
	started := r.clk.Now()
	res = &models.RunResult{State: models.StateInit, StartedAt: started}
	defer func() {
		res.Duration = r.clk.Now().Sub(started)
		res.State = models.StateTerminal
		r.met.RecordRun(runStatus(res), res.Duration.Seconds())
		r.sweep()
		r.log.Info("analysis run finished",
			logger.String("status", runStatus(res)),
			logger.Int("signals", len(res.Signals)),
			logger.Duration("took", res.Duration))
	}()

	symbols := r.cfg.Watchlist.Symbols
	r.log.Info("analysis run started",
		logger.Int("watchlist", len(symbols)),
		logger.Bool("test_mode", testMode))

	if r.cfg.Analysis.Macro.IsEnabled() {
		res.State = models.StateMacro
		m := r.stages.Macro.Analyze(ctx)
		res.Macro = &m
		if m.Score <= macroAlertFloor {
			res.MacroAlert = true
			r.log.Warn("macro gate tripped, run is alert-only",
				logger.Float64("macro_score", m.Score))
			r.deliver(testMode, "macro warning", func() error {
				return r.notifier.MacroWarning(ctx, &m)
			})
			return res, nil
		}
	}
	if err := r.gate(ctx, res, testMode); err != nil {
		return res, err
	}

	res.State = models.StateMarket
	mc := r.stages.Market.Analyze(ctx)
	res.Market = &mc
	if err := r.gate(ctx, res, testMode); err != nil {
		return res, err
	}

	res.State = models.StateMomentum
	res.Fundamentals = r.stages.Fundamentals.AnalyzeBatch(ctx, symbols)
	if err := r.gate(ctx, res, testMode); err != nil {
		return res, err
	}

	// AnalyzeBatch sorts descending, so a prefix is the top of the board.
	candidates := validSymbols(res.Fundamentals)

	if r.cfg.Analysis.Technical.IsEnabled() {
		res.State = models.StateTechnical
		topK := candidates
		if k := r.cfg.Analysis.Technical.TopK; k > 0 && len(topK) > k {
			topK = topK[:k]
		}
		res.Technicals = r.stages.Technical.AnalyzeBatch(ctx, topK)
		candidates = eligibleSymbols(res.Technicals)
		if err := r.gate(ctx, res, testMode); err != nil {
			return res, err
		}
	}

	if r.cfg.Analysis.Sentiment.IsEnabled() {
		res.State = models.StateSentiment
		capped := candidates
		if m := r.cfg.Analysis.Sentiment.MaxSymbols; m > 0 && len(capped) > m {
			capped = capped[:m]
		}
		res.Sentiments = r.stages.Sentiment.AnalyzeBatch(ctx, capped)
		if err := r.gate(ctx, res, testMode); err != nil {
			return res, err
		}
	}

	res.State = models.StateSynthesize
	res.Signals = r.synth.Synthesize(ctx, res)
	r.emit(ctx, res, testMode)

	r.deliver(testMode, "daily summary", func() error {
		return r.notifier.DailySummary(ctx, res)
	})
	return res, nil
}

// gate aborts between stages once the context is done, keeping the partial
// results collected so far.
func (r *Research) gate(ctx context.Context, res *models.RunResult, testMode bool) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	res.Err = err.Error()
	r.log.Error("run aborted",
		logger.String("state", string(res.State)), logger.Error(err))
	r.deliver(testMode, "error alert", func() error {
		return r.notifier.ErrorAlert(context.WithoutCancel(ctx), err)
	})
	return err
}

// emit persists, publishes, and alert-notifies every promoted signal.
// Per-signal failures are logged and the rest keep going.
func (r *Research) emit(ctx context.Context, res *models.RunResult, testMode bool) {
	for _, rec := range res.Signals {
		if err := r.store.Save(ctx, rec); err != nil {
			r.log.Error("persist signal",
				logger.String("id", rec.ID),
				logger.String("symbol", rec.Symbol),
				logger.Error(err))
		} else {
			r.met.RecordSignal()
		}
		if err := r.publisher.Publish(ctx, rec); err != nil {
			r.log.Warn("publish signal",
				logger.String("id", rec.ID), logger.Error(err))
		}
		r.deliver(testMode, "signal alert", func() error {
			return r.notifier.SignalAlert(ctx, rec)
		})
	}
}

// deliver sends one notification, dropping failures. Test mode sends
// nothing at all.
func (r *Research) deliver(testMode bool, kind string, send func() error) {
	if testMode {
		return
	}
	if err := send(); err != nil {
		r.log.Warn("notification failed",
			logger.String("kind", kind), logger.Error(err))
	}
}

func (r *Research) sweep() {
	if r.sweeper == nil {
		return
	}
	if n := r.sweeper.CleanupExpired(); n > 0 {
		r.log.Debug("cache swept", logger.Int("evicted", n))
	}
}

func runStatus(res *models.RunResult) string {
	switch {
	case res.Err != "":
		return "error"
	case res.MacroAlert:
		return "macro_alert"
	case res.Suppressed:
		return "suppressed"
	default:
		return "ok"
	}
}

func validSymbols(scores []models.FundamentalScore) []string {
	out := make([]string, 0, len(scores))
	for _, f := range scores {
		if f.Verdict.OK() {
			out = append(out, f.Symbol)
		}
	}
	return out
}

func eligibleSymbols(scores []models.TechnicalScore) []string {
	out := make([]string, 0, len(scores))
	for _, t := range scores {
		if t.Eligible() {
			out = append(out, t.Symbol)
		}
	}
	return out
}
