// Package chain defines the contract with the external chain engine and a
// websocket client for engines that publish events over the network.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
)

// StartEvent is delivered once when the engine begins listening.
type StartEvent struct {
	Raw json.RawMessage
}

// Payload returns the event JSON, "{}" if the engine sent none.
func (e StartEvent) Payload() json.RawMessage {
	if len(e.Raw) == 0 {
		return json.RawMessage("{}")
	}
	return e.Raw
}

// MempoolEvent carries one unconfirmed transaction. Tx is kept raw so the
// logged payload keeps the engine's key order.
type MempoolEvent struct {
	Tx json.RawMessage `json:"tx"`
}

// Hash returns tx.h, or "" if the transaction has no hash.
func (e MempoolEvent) Hash() string {
	return scalar(field(e.Tx, "tx", "h"))
}

// BlockEvent carries the matching transactions of a new block.
type BlockEvent struct {
	Tx json.RawMessage `json:"tx"`
}

// Len returns the number of transactions; 0 if Tx is not an array.
func (e BlockEvent) Len() int {
	var txs []json.RawMessage
	if err := json.Unmarshal(e.Tx, &txs); err != nil {
		return 0
	}
	return len(txs)
}

// BlockHash returns tx[0].blk.h, or "" if there is none. Later
// transactions are not inspected.
func (e BlockEvent) BlockHash() string {
	var txs []json.RawMessage
	if err := json.Unmarshal(e.Tx, &txs); err != nil || len(txs) == 0 {
		return ""
	}
	return scalar(field(txs[0], "blk", "h"))
}

// field follows object keys through raw JSON and returns the value found,
// or nil when any step is missing or not an object.
func field(raw json.RawMessage, path ...string) json.RawMessage {
	for _, key := range path {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		raw = obj[key]
	}
	return raw
}

// scalar renders a string, number or boolean as log text. Anything else
// (null, objects, arrays, absent) renders as "".
func scalar(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64, bool:
		return string(bytes.TrimSpace(raw))
	default:
		return ""
	}
}

// Handlers are the lifecycle callbacks the engine invokes. OnMempool and
// OnBlock may be called concurrently; none of them may fail the engine.
type Handlers struct {
	OnStart   func(StartEvent)
	OnMempool func(MempoolEvent)
	OnBlock   func(BlockEvent)
}

// Engine filters chain activity with a config document and reports it
// through Handlers.
type Engine interface {
	// Start blocks for the engine's lifetime. It returns nil once ctx is
	// cancelled.
	Start(ctx context.Context, filter json.RawMessage, h Handlers) error
}
