package repository

import (
	"context"
	"errors"
	"time"

	"FinScout/internal/domain/models"
)

// ErrSignalNotFound is returned when no signal exists for an id.
var ErrSignalNotFound = errors.New("signal not found")

// SignalStore persists emitted signals. Updates are by id only; last write
// for an id wins.
type SignalStore interface {
	Init(ctx context.Context) error // ensure dirs/tables, health checks
	Save(ctx context.Context, rec *models.SignalRecord) error
	Get(ctx context.Context, id string) (*models.SignalRecord, error)
	ListAll(ctx context.Context, limit int) ([]*models.SignalRecord, error)
	ListUnrated(ctx context.Context, limit int) ([]*models.SignalRecord, error)
	ListDuePerformance(ctx context.Context, olderThan time.Time) ([]*models.SignalRecord, error)
	Rate(ctx context.Context, id string, stars int, at time.Time) error
	UpdatePerformance(ctx context.Context, id string, price float64, at time.Time) error
	Statistics(ctx context.Context) (*models.SignalStatistics, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Publisher emits signal events to an external bus.
type Publisher interface {
	Publish(ctx context.Context, rec *models.SignalRecord) error
	Close() error
}

// MarketStream is a live quote feed used to warm the market cache.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records pipeline telemetry.
type Metrics interface {
	RecordRun(status string, seconds float64)
	RecordSignal()
	RecordProviderRequest(provider, outcome string)
	RecordProviderLatency(provider string, seconds float64)
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
	RecordBreakerState(provider string, state int)
	RecordLLMFallback()
	RecordStreamTick(symbol string)
	RecordLastPrice(symbol string, price float64)
}

// NopMetrics discards all telemetry.
type NopMetrics struct{}

func (NopMetrics) RecordRun(string, float64)              {}
func (NopMetrics) RecordSignal()                          {}
func (NopMetrics) RecordProviderRequest(string, string)   {}
func (NopMetrics) RecordProviderLatency(string, float64)  {}
func (NopMetrics) RecordCacheHit(string)                  {}
func (NopMetrics) RecordCacheMiss(string)                 {}
func (NopMetrics) RecordBreakerState(string, int)         {}
func (NopMetrics) RecordLLMFallback()                     {}
func (NopMetrics) RecordStreamTick(string)                {}
func (NopMetrics) RecordLastPrice(string, float64)        {}

var _ Metrics = NopMetrics{}
