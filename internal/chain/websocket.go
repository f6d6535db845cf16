package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ComponentName tags log records from the websocket engine.
const ComponentName = "ws-engine"

// DefaultReconnectDelay is the wait between connection attempts.
const DefaultReconnectDelay = 2 * time.Second

// Frame types on the engine wire.
const (
	FrameSubscribe = "subscribe"
	FrameStart     = "start"
	FrameMempool   = "mempool"
	FrameBlock     = "block"
)

// Frame is one websocket message exchanged with the engine.
type Frame struct {
	Type   string          `json:"type"`
	Filter json.RawMessage `json:"filter,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// WSEngine connects to a chain engine that streams events over a websocket.
//
// After dialing it sends a subscribe frame carrying the filter and then
// dispatches start, mempool and block frames to the handlers. A dropped
// connection is re-established until the context is cancelled. OnStart
// fires once per Start call, not once per connection.
type WSEngine struct {
	URL            string
	Dialer         *websocket.Dialer
	ReconnectDelay time.Duration
	Logger         *slog.Logger
}

var _ Engine = (*WSEngine)(nil)

// NewWSEngine returns an engine client for url with default settings.
func NewWSEngine(url string) *WSEngine {
	return &WSEngine{
		URL:            url,
		Dialer:         websocket.DefaultDialer,
		ReconnectDelay: DefaultReconnectDelay,
	}
}

// Start implements Engine.
func (e *WSEngine) Start(ctx context.Context, filter json.RawMessage, h Handlers) error {
	logger := e.logger()
	d := &dispatcher{h: h, logger: logger}

	for {
		conn, err := e.subscribe(ctx, filter)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("connecting to engine", "url", e.URL, "error", err)
			if !e.wait(ctx) {
				return nil
			}
			continue
		}
		logger.Info("subscribed", "url", e.URL)

		err = e.read(ctx, conn, d)
		_ = conn.Close()
		if ctx.Err() != nil {
			logger.Info("closed")
			return nil
		}
		logger.Warn("engine connection lost, reconnecting", "error", err)
		if !e.wait(ctx) {
			return nil
		}
	}
}

func (e *WSEngine) subscribe(ctx context.Context, filter json.RawMessage) (*websocket.Conn, error) {
	dialer := e.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, e.URL, nil)
	if err != nil {
		return nil, err
	}

	if err := conn.WriteJSON(Frame{Type: FrameSubscribe, Filter: filter}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send subscribe frame: %w", err)
	}
	return conn, nil
}

// read dispatches frames until the connection fails or ctx is done.
func (e *WSEngine) read(ctx context.Context, conn *websocket.Conn, d *dispatcher) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message from the ws connection: %w", err)
		}

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			d.logger.Warn("skipping malformed frame", "error", err)
			continue
		}
		d.dispatch(f)
	}
}

func (e *WSEngine) wait(ctx context.Context) bool {
	delay := e.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

func (e *WSEngine) logger() *slog.Logger {
	l := e.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", ComponentName)
}

// dispatcher routes frames to handlers and keeps handler panics away from
// the read loop.
type dispatcher struct {
	h      Handlers
	logger *slog.Logger

	startOnce sync.Once
}

func (d *dispatcher) dispatch(f Frame) {
	switch f.Type {
	case FrameStart:
		d.start(f.Data)
	case FrameMempool:
		var ev MempoolEvent
		if err := json.Unmarshal(f.Data, &ev); err != nil {
			d.logger.Warn("skipping malformed mempool frame", "error", err)
			return
		}
		d.start(nil)
		d.call(FrameMempool, func() {
			if d.h.OnMempool != nil {
				d.h.OnMempool(ev)
			}
		})
	case FrameBlock:
		var ev BlockEvent
		if err := json.Unmarshal(f.Data, &ev); err != nil {
			d.logger.Warn("skipping malformed block frame", "error", err)
			return
		}
		d.start(nil)
		d.call(FrameBlock, func() {
			if d.h.OnBlock != nil {
				d.h.OnBlock(ev)
			}
		})
	default:
		d.logger.Debug("ignoring frame", "type", f.Type)
	}
}

// start fires OnStart at most once. Events that arrive before an explicit
// start frame trigger it with an empty payload.
func (d *dispatcher) start(data json.RawMessage) {
	d.startOnce.Do(func() {
		d.call(FrameStart, func() {
			if d.h.OnStart != nil {
				d.h.OnStart(StartEvent{Raw: data})
			}
		})
	})
}

func (d *dispatcher) call(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked", "event", kind, "panic", r)
		}
	}()
	fn()
}
