package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScout/internal/domain/models"
	"FinScout/pkg/config"
	"FinScout/pkg/logger"
)

func wsServer(t *testing.T, handler func(r *http.Request, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(r, conn)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func streamCfg(url string) config.StreamConfig {
	return config.StreamConfig{
		Enabled:        true,
		URL:            url,
		ReconnectDelay: 10 * time.Millisecond,
		PingInterval:   time.Minute,
		BufferSize:     8,
	}
}

func recvTick(t *testing.T, ticks <-chan *models.Tick) *models.Tick {
	t.Helper()
	select {
	case tick := <-ticks:
		require.NotNil(t, tick)
		return tick
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
		return nil
	}
}

func TestConnectSubscribeAndRead(t *testing.T) {
	keys := make(chan string, 1)
	frames := make(chan subscribeFrame, 1)
	srv := wsServer(t, func(r *http.Request, conn *websocket.Conn) {
		keys <- r.URL.Query().Get("apikey")
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame subscribeFrame
		if json.Unmarshal(msg, &frame) == nil {
			frames <- frame
		}
		push := func(raw string) { _ = conn.WriteMessage(websocket.TextMessage, []byte(raw)) }
		push(`{"event":"subscribe-status","status":"ok"}`)
		push(`{"event":"heartbeat","status":"ok"}`)
		push(`{"event":"price","symbol":"AAPL","price":189.84,"timestamp":1756104300}`)
		push(`{"event":"price","symbol":"MSFT","price":415.25,"timestamp":1756104301}`)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	cli := New("stream-key", streamCfg(wsURL(srv)), logger.Nop())
	ctx := context.Background()
	require.NoError(t, cli.Connect(ctx))
	assert.True(t, cli.IsConnected())
	require.NoError(t, cli.Subscribe(ctx, []string{"AAPL", "MSFT"}))

	ticks, _ := cli.Read(ctx)

	// status and heartbeat frames arrive first and must not become ticks
	first := recvTick(t, ticks)
	assert.Equal(t, "AAPL", first.Symbol)
	assert.InDelta(t, 189.84, first.Price, 1e-9)
	assert.Equal(t, time.Unix(1756104300, 0).UTC(), first.Timestamp)

	second := recvTick(t, ticks)
	assert.Equal(t, "MSFT", second.Symbol)
	assert.InDelta(t, 415.25, second.Price, 1e-9)

	assert.Equal(t, "stream-key", <-keys)
	frame := <-frames
	assert.Equal(t, "subscribe", frame.Action)
	assert.Equal(t, "AAPL,MSFT", frame.Params.Symbols)

	require.NoError(t, cli.Close())
	assert.False(t, cli.IsConnected())
}

func TestSubscribeRequiresConnection(t *testing.T) {
	cli := New("key", streamCfg("ws://127.0.0.1:0"), logger.Nop())

	err := cli.Subscribe(context.Background(), []string{"AAPL"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestReadSurfacesConnectionLoss(t *testing.T) {
	srv := wsServer(t, func(_ *http.Request, _ *websocket.Conn) {
		// handler returns immediately and the deferred close drops the socket
	})
	defer srv.Close()

	cli := New("key", streamCfg(wsURL(srv)), logger.Nop())
	require.NoError(t, cli.Connect(context.Background()))

	ticks, errs := cli.Read(context.Background())

	select {
	case err := <-errs:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stream read")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for read error")
	}
	_, open := <-ticks
	assert.False(t, open)
}

func TestReconnectRestoresSubscription(t *testing.T) {
	subs := make(chan string, 2)
	srv := wsServer(t, func(_ *http.Request, conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame subscribeFrame
		if json.Unmarshal(msg, &frame) == nil {
			subs <- frame.Params.Symbols
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	cli := New("key", streamCfg(wsURL(srv)), logger.Nop())
	ctx := context.Background()
	require.NoError(t, cli.Connect(ctx))
	require.NoError(t, cli.Subscribe(ctx, []string{"AAPL"}))

	require.NoError(t, cli.Reconnect(ctx))
	assert.True(t, cli.IsConnected())

	recvSub := func() string {
		select {
		case s := <-subs:
			return s
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for subscribe frame")
			return ""
		}
	}
	assert.Equal(t, "AAPL", recvSub())
	assert.Equal(t, "AAPL", recvSub())

	require.NoError(t, cli.Close())
}

func TestReconnectHonoursContext(t *testing.T) {
	cli := New("key", config.StreamConfig{URL: "ws://127.0.0.1:0", ReconnectDelay: time.Hour}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cli.Reconnect(ctx)

	require.ErrorIs(t, err, context.Canceled)
}
