package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine is a websocket server that records the subscribe frame and
// replays the given frames on every connection.
type fakeEngine struct {
	frames []string

	mu         sync.Mutex
	subscribes []Frame
	conns      int
}

func (f *fakeEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var sub Frame
	if err := conn.ReadJSON(&sub); err != nil {
		return
	}
	f.mu.Lock()
	f.subscribes = append(f.subscribes, sub)
	f.conns++
	f.mu.Unlock()

	for _, frame := range f.frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
	}
}

func (f *fakeEngine) connections() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// recorder collects handler invocations.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnStart:   func(e StartEvent) { r.add("start " + string(e.Payload())) },
		OnMempool: func(e MempoolEvent) { r.add("mempool " + e.Hash()) },
		OnBlock:   func(e BlockEvent) { r.add("block " + e.BlockHash()) },
	}
}

func startEngine(t *testing.T, eng *WSEngine, h Handlers) (cancel func()) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- eng.Start(ctx, json.RawMessage(`{"eventchain":1}`), h)
	}()
	return func() {
		cancelCtx()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("engine did not stop")
		}
	}
}

func TestWSEngine_DispatchesFrames(t *testing.T) {
	fake := &fakeEngine{frames: []string{
		`{"type":"start","data":{"height":10}}`,
		`{"type":"mempool","data":{"tx":{"tx":{"h":"abc"}}}}`,
		`not json`,
		`{"type":"heartbeat"}`,
		`{"type":"block","data":{"tx":[{"blk":{"h":"xyz"}}]}}`,
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	rec := &recorder{}
	eng := NewWSEngine(wsURL(srv))
	eng.ReconnectDelay = time.Hour
	stop := startEngine(t, eng, rec.handlers())

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, 5*time.Second, 10*time.Millisecond)
	stop()

	assert.Equal(t, []string{
		`start {"height":10}`,
		"mempool abc",
		"block xyz",
	}, rec.snapshot())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.subscribes, 1)
	assert.Equal(t, FrameSubscribe, fake.subscribes[0].Type)
	assert.JSONEq(t, `{"eventchain":1}`, string(fake.subscribes[0].Filter))
}

func TestWSEngine_SynthesizesStart(t *testing.T) {
	fake := &fakeEngine{frames: []string{
		`{"type":"mempool","data":{"tx":{"tx":{"h":"abc"}}}}`,
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	rec := &recorder{}
	eng := NewWSEngine(wsURL(srv))
	eng.ReconnectDelay = time.Hour
	stop := startEngine(t, eng, rec.handlers())

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 5*time.Second, 10*time.Millisecond)
	stop()

	assert.Equal(t, []string{"start {}", "mempool abc"}, rec.snapshot())
}

func TestWSEngine_ReconnectsWithoutRestarting(t *testing.T) {
	// The server closes after each replay, forcing reconnects.
	fake := &fakeEngine{frames: []string{
		`{"type":"start"}`,
		`{"type":"mempool","data":{"tx":{"tx":{"h":"abc"}}}}`,
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	rec := &recorder{}
	eng := NewWSEngine(wsURL(srv))
	eng.ReconnectDelay = 10 * time.Millisecond
	stop := startEngine(t, eng, rec.handlers())

	require.Eventually(t, func() bool { return fake.connections() >= 3 }, 5*time.Second, 10*time.Millisecond)
	stop()

	var starts int
	for _, ev := range rec.snapshot() {
		if strings.HasPrefix(ev, "start") {
			starts++
		}
	}
	assert.Equal(t, 1, starts)
}

func TestWSEngine_HandlerPanicDoesNotStopEngine(t *testing.T) {
	fake := &fakeEngine{frames: []string{
		`{"type":"mempool","data":{"tx":{"tx":{"h":"boom"}}}}`,
		`{"type":"mempool","data":{"tx":{"tx":{"h":"ok"}}}}`,
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	rec := &recorder{}
	h := rec.handlers()
	h.OnMempool = func(e MempoolEvent) {
		if e.Hash() == "boom" {
			panic("handler failure")
		}
		rec.add("mempool " + e.Hash())
	}

	eng := NewWSEngine(wsURL(srv))
	eng.ReconnectDelay = time.Hour
	stop := startEngine(t, eng, h)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 5*time.Second, 10*time.Millisecond)
	stop()

	assert.Equal(t, []string{"start {}", "mempool ok"}, rec.snapshot())
}

func TestWSEngine_UnreachableStopsOnCancel(t *testing.T) {
	eng := NewWSEngine("ws://127.0.0.1:1/engine")
	eng.ReconnectDelay = 10 * time.Millisecond

	stop := startEngine(t, eng, Handlers{})
	time.Sleep(50 * time.Millisecond)
	stop()
}
