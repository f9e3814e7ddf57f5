package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScout/pkg/clock"
)

func TestCreditWindowRejectsRequestsBeyondCap(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	w := NewCreditWindow(CreditWindowConfig{Cap: 8}, clk)

	err := w.Acquire(context.Background(), 9)
	require.Error(t, err)
	assert.Empty(t, clk.Sleeps())
}

func TestCreditWindowBlocksUntilOldestExpires(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	w := NewCreditWindow(CreditWindowConfig{Cap: 8}, clk)

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		require.NoError(t, w.Acquire(ctx, 1))
	}
	assert.Empty(t, clk.Sleeps(), "first eight credits fit without waiting")
	assert.Equal(t, 8, w.Used())

	require.NoError(t, w.Acquire(ctx, 1))
	assert.Equal(t, []time.Duration{time.Minute}, clk.Sleeps())
	assert.Equal(t, 1, w.Used(), "expired credits drop out of the window")
}

func TestCreditWindowEnforcesMinDelay(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	w := NewCreditWindow(CreditWindowConfig{Cap: 8, MinDelay: 8 * time.Second}, clk)

	ctx := context.Background()
	require.NoError(t, w.Acquire(ctx, 1))
	require.NoError(t, w.Acquire(ctx, 1))

	assert.Equal(t, []time.Duration{8 * time.Second}, clk.Sleeps())
}

func TestCreditWindowCountsBatchedCredits(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	w := NewCreditWindow(CreditWindowConfig{Cap: 8}, clk)

	ctx := context.Background()
	require.NoError(t, w.Acquire(ctx, 5))
	require.NoError(t, w.Acquire(ctx, 4))

	assert.Equal(t, []time.Duration{time.Minute}, clk.Sleeps())
	assert.Equal(t, 4, w.Used())
}

func TestCreditWindowAppliesMargin(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	w := NewCreditWindow(CreditWindowConfig{Cap: 1, Margin: 500 * time.Millisecond}, clk)

	ctx := context.Background()
	require.NoError(t, w.Acquire(ctx, 1))
	require.NoError(t, w.Acquire(ctx, 1))

	assert.Equal(t, []time.Duration{time.Minute + 500*time.Millisecond}, clk.Sleeps())
}

func TestCreditWindowStopsWhenContextCancelled(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	w := NewCreditWindow(CreditWindowConfig{Cap: 1}, clk)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Acquire(ctx, 1))
	cancel()

	err := w.Acquire(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
}
