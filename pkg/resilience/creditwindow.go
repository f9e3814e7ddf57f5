package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinScout/pkg/clock"
)

const creditWindowSpan = time.Minute

// CreditWindowConfig sizes the rolling per-minute credit budget.
type CreditWindowConfig struct {
	Cap      int           `yaml:"cap" default:"8"`
	MinDelay time.Duration `yaml:"min_delay" default:"8s"`
	Margin   time.Duration `yaml:"margin" default:"100ms"`
}

type creditEntry struct {
	at      time.Time
	credits int
}

// CreditWindow meters spend against a rolling one-minute credit budget.
// Acquire blocks until the requested credits fit in the window and the
// minimum spacing since the previous acquisition has elapsed.
type CreditWindow struct {
	mu      sync.Mutex
	cfg     CreditWindowConfig
	clk     clock.Clock
	entries []creditEntry
	lastAt  time.Time
}

// NewCreditWindow builds a CreditWindow on top of the given clock.
func NewCreditWindow(cfg CreditWindowConfig, clk clock.Clock) *CreditWindow {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &CreditWindow{cfg: cfg, clk: clk}
}

// Acquire blocks until credits fit in the rolling window, then records
// them. A request larger than the cap can never fit and fails at once.
func (w *CreditWindow) Acquire(ctx context.Context, credits int) error {
	if credits > w.cfg.Cap {
		return fmt.Errorf("request needs %d credits, window cap is %d", credits, w.cfg.Cap)
	}
	if credits <= 0 {
		credits = 1
	}
	for {
		w.mu.Lock()
		now := w.clk.Now()
		w.prune(now)
		wait := w.waitFor(now, credits)
		if wait <= 0 {
			w.entries = append(w.entries, creditEntry{at: now, credits: credits})
			w.lastAt = now
			w.mu.Unlock()
			return nil
		}
		w.mu.Unlock()
		if err := w.clk.Sleep(ctx, wait); err != nil {
			return fmt.Errorf("credit window wait interrupted: %w", err)
		}
	}
}

// Used reports the credits currently counted against the window.
func (w *CreditWindow) Used() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.clk.Now())
	return w.used()
}

func (w *CreditWindow) prune(now time.Time) {
	cut := 0
	for cut < len(w.entries) && now.Sub(w.entries[cut].at) >= creditWindowSpan {
		cut++
	}
	if cut > 0 {
		w.entries = append(w.entries[:0], w.entries[cut:]...)
	}
}

func (w *CreditWindow) waitFor(now time.Time, credits int) time.Duration {
	var wait time.Duration
	if w.cfg.MinDelay > 0 && !w.lastAt.IsZero() {
		if d := w.cfg.MinDelay - now.Sub(w.lastAt); d > wait {
			wait = d
		}
	}
	if w.used()+credits > w.cfg.Cap {
		oldest := w.entries[0].at
		if d := creditWindowSpan - now.Sub(oldest) + w.cfg.Margin; d > wait {
			wait = d
		}
	}
	return wait
}

func (w *CreditWindow) used() int {
	total := 0
	for _, e := range w.entries {
		total += e.credits
	}
	return total
}
