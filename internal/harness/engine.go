package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/roach88/eventchain/internal/chain"
)

// ReplayEngine is a chain.Engine that plays back scenario events and then
// returns.
type ReplayEngine struct {
	Events     []Event
	Concurrent bool

	mu     sync.Mutex
	filter json.RawMessage
}

var _ chain.Engine = (*ReplayEngine)(nil)

// Filter returns the filter the engine was started with.
func (e *ReplayEngine) Filter() json.RawMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// Start implements chain.Engine.
func (e *ReplayEngine) Start(ctx context.Context, filter json.RawMessage, h chain.Handlers) error {
	e.mu.Lock()
	e.filter = filter
	e.mu.Unlock()

	var wg sync.WaitGroup
	defer wg.Wait()

	for i, ev := range e.Events {
		if ctx.Err() != nil {
			return nil
		}

		deliver, err := handlerFor(ev, h)
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}

		if e.Concurrent && ev.Type != EventStart {
			wg.Add(1)
			go func() {
				defer wg.Done()
				deliver()
			}()
			continue
		}
		deliver()
	}
	return nil
}

func handlerFor(ev Event, h chain.Handlers) (func(), error) {
	data := []byte(ev.Data)

	switch ev.Type {
	case EventStart:
		return func() {
			if h.OnStart != nil {
				h.OnStart(chain.StartEvent{Raw: json.RawMessage(data)})
			}
		}, nil

	case EventMempool:
		var m chain.MempoolEvent
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("mempool data: %w", err)
		}
		return func() {
			if h.OnMempool != nil {
				h.OnMempool(m)
			}
		}, nil

	case EventBlock:
		var b chain.BlockEvent
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("block data: %w", err)
		}
		return func() {
			if h.OnBlock != nil {
				h.OnBlock(b)
			}
		}, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
}
