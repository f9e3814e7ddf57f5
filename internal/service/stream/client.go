package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/repository"
	"FinScout/pkg/config"
	"FinScout/pkg/logger"

	"github.com/gorilla/websocket"
)

var _ repository.MarketStream = (*Client)(nil)

const (
	defaultPingInterval = 30 * time.Second
	defaultBufferSize   = 256
)

// Client implements a MarketStream backed by the Twelve Data websocket.
// One connection carries every subscribed symbol; the read loop fans
// price events into a buffered channel and drops frames when the
// consumer falls behind.
type Client struct {
	apiKey string
	cfg    config.StreamConfig
	log    *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	symbols   []string
}

// New creates a Twelve Data MarketStream client.
func New(apiKey string, cfg config.StreamConfig, lgr *logger.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		cfg:    cfg,
		log:    lgr,
	}
}

// Connect establishes the websocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?apikey=%s", c.cfg.URL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("price stream connected")
	return nil
}

type subscribeParams struct {
	Symbols string `json:"symbols"`
}

type subscribeFrame struct {
	Action string          `json:"action"`
	Params subscribeParams `json:"params"`
}

// Subscribe requests price events for the given symbols. The set is
// remembered so Reconnect can restore it.
func (c *Client) Subscribe(_ context.Context, symbols []string) error {
	c.mu.Lock()
	conn, ok := c.conn, c.connected
	if ok && conn != nil {
		c.symbols = append([]string(nil), symbols...)
	}
	c.mu.Unlock()
	if !ok || conn == nil {
		return fmt.Errorf("stream not connected")
	}
	frame := subscribeFrame{
		Action: "subscribe",
		Params: subscribeParams{Symbols: strings.Join(symbols, ",")},
	}
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("stream subscribe: %w", err)
	}
	c.log.Info("price stream subscribed", logger.Int("symbols", len(symbols)))
	return nil
}

type streamEvent struct {
	Event     string  `json:"event"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // unix seconds
	Status    string  `json:"status"`
}

// Read streams price ticks and errors. The tick channel closes together
// with the error channel once the connection is lost or the context is
// cancelled; callers reconnect and call Read again.
func (c *Client) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	size := c.cfg.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	ticks := make(chan *models.Tick, size)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	// ping loop
	go func() {
		interval := c.cfg.PingInterval
		if interval <= 0 {
			interval = defaultPingInterval
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if conn == nil {
					errs <- fmt.Errorf("stream conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("stream read: %w", err)
					return
				}
				var ev streamEvent
				if err := json.Unmarshal(b, &ev); err != nil {
					continue
				}
				switch ev.Event {
				case "price":
					tick := &models.Tick{
						Symbol:    ev.Symbol,
						Price:     ev.Price,
						Timestamp: time.Unix(ev.Timestamp, 0).UTC(),
					}
					select {
					case ticks <- tick:
					default:
						// drop on backpressure
					}
				case "subscribe-status":
					if ev.Status != "ok" {
						c.log.Warn("stream subscribe rejected", logger.String("status", ev.Status))
					}
				default:
					// heartbeat and other frames
				}
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes the connection, waits out the reconnect delay, then
// dials and resubscribes the remembered symbols.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.cfg.ReconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	symbols := append([]string(nil), c.symbols...)
	c.mu.Unlock()
	if len(symbols) == 0 {
		return nil
	}
	return c.Subscribe(ctx, symbols)
}

// Close closes the websocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected reports connection status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
