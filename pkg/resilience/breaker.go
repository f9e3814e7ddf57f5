package resilience

import (
	"errors"
	"sync"
	"time"

	"FinScout/pkg/clock"
)

// ErrBreakerOpen is returned without calling the wrapped operation while
// the breaker is open or a half-open trial is already in flight.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// BreakerState reports the current position of a Breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerConfig controls when a Breaker trips and when it probes again.
type BreakerConfig struct {
	Threshold       int           `yaml:"threshold" default:"5"`
	RecoveryTimeout time.Duration `yaml:"recovery_timeout" default:"120s"`
}

// Breaker fails fast after Threshold consecutive failures. After
// RecoveryTimeout exactly one trial call is admitted; its outcome decides
// whether the breaker closes again or re-opens for another timeout.
type Breaker struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	classify func(error) bool
	clk      clock.Clock
	state    BreakerState
	failures int
	openedAt time.Time
}

// NewBreaker builds a closed Breaker on top of the given clock. classify
// reports which errors count toward the trip threshold; errors it rejects
// prove the downstream responded and are treated as successes. A nil
// classify counts every error.
func NewBreaker(cfg BreakerConfig, classify func(error) bool, clk clock.Clock) *Breaker {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Breaker{cfg: cfg, classify: classify, clk: clk, state: BreakerClosed}
}

// State returns the breaker position for diagnostics.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs fn under the breaker. Admission and the half-open transition
// happen under the lock, so concurrent callers cannot win more than one
// trial slot per recovery window.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.clk.Now().Sub(b.openedAt) < b.cfg.RecoveryTimeout {
			return ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
		return nil
	default:
		// half-open: the trial slot is taken
		return ErrBreakerOpen
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil && b.classify != nil && !b.classify(err) {
		err = nil
	}
	if err != nil {
		b.failures++
		if b.state == BreakerHalfOpen || b.failures >= b.cfg.Threshold {
			b.state = BreakerOpen
			b.openedAt = b.clk.Now()
			b.failures = 0
		}
		return
	}
	b.failures = 0
	if b.state == BreakerHalfOpen {
		b.state = BreakerClosed
	}
}
