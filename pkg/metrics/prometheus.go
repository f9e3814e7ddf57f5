package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	signalsEmitted  prometheus.Counter
	providerReqs    *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	llmFallbacks    prometheus.Counter
	streamTicks     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finscout",
				Name:      "runs_total",
				Help:      "Total number of analysis runs by terminal status",
			},
			[]string{"status"},
		),
		runDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "finscout",
				Name:      "run_duration_seconds",
				Help:      "Duration of analysis runs in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
		),
		signalsEmitted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "finscout",
				Name:      "signals_emitted_total",
				Help:      "Total number of buy-candidate signals emitted",
			},
		),
		providerReqs: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finscout",
				Name:      "provider_requests_total",
				Help:      "Total provider requests by outcome",
			},
			[]string{"provider", "outcome"},
		),
		providerLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "finscout",
				Name:      "provider_latency_seconds",
				Help:      "Provider request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finscout",
				Name:      "cache_hits_total",
				Help:      "Cache hits by named cache",
			},
			[]string{"cache"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finscout",
				Name:      "cache_misses_total",
				Help:      "Cache misses by named cache",
			},
			[]string{"cache"},
		),
		breakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "finscout",
				Name:      "breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"provider"},
		),
		llmFallbacks: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "finscout",
				Name:      "llm_fallbacks_total",
				Help:      "Classifications served by the keyword fallback",
			},
		),
		streamTicks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finscout",
				Name:      "stream_ticks_total",
				Help:      "Price ticks accepted from the quote stream",
			},
			[]string{"symbol"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "finscout",
				Name:      "last_price",
				Help:      "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordRun records a finished analysis run.
func (r *Recorder) RecordRun(status string, seconds float64) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(seconds)
}

// RecordSignal records an emitted signal.
func (r *Recorder) RecordSignal() {
	r.signalsEmitted.Inc()
}

// RecordProviderRequest records a provider call outcome.
func (r *Recorder) RecordProviderRequest(provider, outcome string) {
	r.providerReqs.WithLabelValues(provider, outcome).Inc()
}

// RecordProviderLatency records provider call latency in seconds.
func (r *Recorder) RecordProviderLatency(provider string, seconds float64) {
	r.providerLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordCacheHit records a hit on a named cache.
func (r *Recorder) RecordCacheHit(cache string) {
	r.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a miss on a named cache.
func (r *Recorder) RecordCacheMiss(cache string) {
	r.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordBreakerState records a breaker position change.
func (r *Recorder) RecordBreakerState(provider string, state int) {
	r.breakerState.WithLabelValues(provider).Set(float64(state))
}

// RecordLLMFallback records a keyword-fallback classification.
func (r *Recorder) RecordLLMFallback() {
	r.llmFallbacks.Inc()
}

// RecordStreamTick records an accepted stream tick.
func (r *Recorder) RecordStreamTick(symbol string) {
	r.streamTicks.WithLabelValues(symbol).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}
