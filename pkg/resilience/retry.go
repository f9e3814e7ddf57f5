package resilience

import (
	"context"
	"fmt"
	"time"

	"FinScout/pkg/clock"
)

// RetryConfig controls retry attempts and exponential backoff.
type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries" default:"3"`
	InitialDelay  time.Duration `yaml:"initial_delay" default:"2s"`
	BackoffFactor float64       `yaml:"backoff_factor" default:"2"`
	MaxDelay      time.Duration `yaml:"max_delay" default:"60s"`
}

// Retry re-runs a failing operation with exponentially growing delays.
// Classify decides whether an error is worth another attempt; a nil
// Classify retries everything.
type Retry struct {
	cfg      RetryConfig
	classify func(error) bool
	clk      clock.Clock
}

// NewRetry builds a Retry policy on top of the given clock.
func NewRetry(cfg RetryConfig, classify func(error) bool, clk clock.Clock) *Retry {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Retry{cfg: cfg, classify: classify, clk: clk}
}

// Do runs fn up to MaxRetries+1 times. The last error is returned as-is
// so callers can classify it; non-retryable errors propagate immediately.
func (r *Retry) Do(ctx context.Context, fn func() error) error {
	delay := r.cfg.InitialDelay
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if r.classify != nil && !r.classify(err) {
			return err
		}
		if attempt >= r.cfg.MaxRetries {
			return err
		}
		if serr := r.clk.Sleep(ctx, delay); serr != nil {
			return fmt.Errorf("retry interrupted: %w", serr)
		}
		delay = time.Duration(float64(delay) * r.cfg.BackoffFactor)
		if r.cfg.MaxDelay > 0 && delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}
}
