package middleware

import (
	"context"
	"sync"
	"time"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/repository"
	"FinScout/pkg/clock"
	"FinScout/pkg/config"
	"FinScout/pkg/logger"
)

const (
	defaultReconnectDelay = 5 * time.Second
	reconnectBackoffCap   = time.Minute
)

// Sink consumes ticks accepted by the pump.
type Sink interface {
	Process(ctx context.Context, tick *models.Tick) error
}

// TickPump bridges the websocket stream and the quote cache. Ticks are
// throttled to one per symbol per MinTickGap before they reach the
// sink, and a dropped connection is re-dialed with capped backoff.
type TickPump struct {
	stream  repository.MarketStream
	sink    Sink
	symbols []string
	cfg     config.StreamConfig
	clk     clock.Clock
	log     *logger.Logger

	mu       sync.Mutex
	lastSeen map[string]time.Time
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewTickPump creates a pump feeding sink from stream.
func NewTickPump(stream repository.MarketStream, sink Sink, symbols []string, cfg config.StreamConfig, clk clock.Clock, lgr *logger.Logger) *TickPump {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &TickPump{
		stream:   stream,
		sink:     sink,
		symbols:  append([]string(nil), symbols...),
		cfg:      cfg,
		clk:      clk,
		log:      lgr,
		lastSeen: make(map[string]time.Time),
	}
}

// Start launches the pump. It returns immediately; the stream is dialed
// and drained in the background until Stop or context cancellation.
func (p *TickPump) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.mu.Unlock()
	go p.run(ctx)
}

// Stop cancels the run loop, closes the stream, and waits for the loop
// to exit.
func (p *TickPump) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	cancel()
	_ = p.stream.Close()
	<-done
}

// IsConnected reports the underlying stream status.
func (p *TickPump) IsConnected() bool {
	return p.stream.IsConnected()
}

func (p *TickPump) run(ctx context.Context) {
	defer close(p.done)
	defer func() { _ = p.stream.Close() }()

	backoff := p.reconnectDelay()
	dialed := false
	for {
		if ctx.Err() != nil {
			return
		}
		if !p.stream.IsConnected() {
			if err := p.dial(ctx, dialed); err != nil {
				p.log.Warn("stream dial failed", logger.Error(err), logger.Duration("backoff", backoff))
				if p.clk.Sleep(ctx, backoff) != nil {
					return
				}
				backoff *= 2
				if backoff > reconnectBackoffCap {
					backoff = reconnectBackoffCap
				}
				continue
			}
			dialed = true
			backoff = p.reconnectDelay()
		}
		p.drain(ctx)
	}
}

// dial performs the first Connect+Subscribe; later attempts go through
// Reconnect, which restores the subscription on its own.
func (p *TickPump) dial(ctx context.Context, again bool) error {
	if again {
		return p.stream.Reconnect(ctx)
	}
	if err := p.stream.Connect(ctx); err != nil {
		return err
	}
	if err := p.stream.Subscribe(ctx, p.symbols); err != nil {
		_ = p.stream.Close()
		return err
	}
	return nil
}

// drain consumes one read session, returning when the stream drops or
// the context ends. The connection is closed on the way out so the run
// loop sees a disconnected stream.
func (p *TickPump) drain(ctx context.Context) {
	ticks, errs := p.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok || err != nil {
				if err != nil {
					p.log.Warn("stream dropped", logger.Error(err))
				}
				_ = p.stream.Close()
				return
			}
		case tick, ok := <-ticks:
			if !ok {
				_ = p.stream.Close()
				return
			}
			p.handle(ctx, tick)
		}
	}
}

func (p *TickPump) handle(ctx context.Context, tick *models.Tick) {
	if tick == nil || tick.Symbol == "" {
		return
	}
	if !p.allow(tick.Symbol) {
		return
	}
	if err := p.sink.Process(ctx, tick); err != nil {
		p.log.Debug("tick rejected", logger.String("symbol", tick.Symbol), logger.Error(err))
	}
}

// allow enforces the per-symbol minimum gap between accepted ticks.
func (p *TickPump) allow(symbol string) bool {
	if p.cfg.MinTickGap <= 0 {
		return true
	}
	now := p.clk.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.lastSeen[symbol]; ok && now.Sub(last) < p.cfg.MinTickGap {
		return false
	}
	p.lastSeen[symbol] = now
	return true
}

func (p *TickPump) reconnectDelay() time.Duration {
	if p.cfg.ReconnectDelay > 0 {
		return p.cfg.ReconnectDelay
	}
	return defaultReconnectDelay
}
