package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/citesync/internal/protocol"
)

// ScriptedTransport replays a fixed list of responses, one per round
// trip, and records every request it sees. A nil error with a zero
// Response entry is not valid; script entries carry either a response
// or an error.
//
// Thread-safety: safe for concurrent use via internal mutex.
type ScriptedTransport struct {
	mu       sync.Mutex
	script   []ScriptEntry
	idx      int
	requests []protocol.Request

	// Block, when non-nil, is received from before each reply. Lets
	// tests hold a round trip open to exercise the busy path.
	Block chan struct{}
}

// ScriptEntry is one scripted reply.
type ScriptEntry struct {
	Response protocol.Response
	Err      error
}

// NewScriptedTransport creates a transport that replays entries in order.
func NewScriptedTransport(entries ...ScriptEntry) *ScriptedTransport {
	return &ScriptedTransport{script: entries}
}

// Roundtrip records the request and returns the next scripted reply.
// Returns an error when the script is exhausted.
func (t *ScriptedTransport) Roundtrip(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	if t.Block != nil {
		select {
		case <-t.Block:
		case <-ctx.Done():
			return protocol.Response{}, ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests = append(t.requests, req)
	if t.idx >= len(t.script) {
		return protocol.Response{}, fmt.Errorf("scripted transport exhausted after %d round trips", t.idx)
	}
	entry := t.script[t.idx]
	t.idx++
	return entry.Response, entry.Err
}

// Requests returns a copy of all recorded requests in arrival order.
func (t *ScriptedTransport) Requests() []protocol.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]protocol.Request(nil), t.requests...)
}
