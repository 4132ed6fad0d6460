package bridge

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Frame ops understood by the bridge gateway (rosbridge v2 style).
const (
	opCallService     = "call_service"
	opServiceResponse = "service_response"
)

// callFrame is an outbound service call.
type callFrame struct {
	Op      string          `json:"op"`
	ID      string          `json:"id"`
	Service string          `json:"service"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// responseFrame is an inbound frame. Only service responses are acted on;
// anything else the bridge sends is ignored.
type responseFrame struct {
	Op      string          `json:"op"`
	ID      string          `json:"id"`
	Service string          `json:"service"`
	Values  json.RawMessage `json:"values"`
	// Result reports whether the call reached its service. Older gateways
	// omit it, which means success.
	Result *bool `json:"result,omitempty"`
}

func (f responseFrame) ok() bool {
	return f.Result == nil || *f.Result
}

// callTable matches service responses to in-flight calls by frame ID.
// Each pending call resolves at most once; a closed channel means the
// connection died before a response arrived.
type callTable struct {
	mu      sync.Mutex
	next    uint64
	pending map[string]chan responseFrame
}

func newCallTable() *callTable {
	return &callTable{pending: make(map[string]chan responseFrame)}
}

func (t *callTable) register() (string, chan responseFrame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	id := fmt.Sprintf("call_service:%d", t.next)
	ch := make(chan responseFrame, 1)
	t.pending[id] = ch
	return id, ch
}

// resolve delivers a response to its pending call. Returns false for
// unknown IDs (already timed out, or never ours).
func (t *callTable) resolve(id string, f responseFrame) bool {
	t.mu.Lock()
	ch, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	ch <- f
	return true
}

func (t *callTable) drop(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

// failAll closes every pending channel. Waiters observe the closed channel
// and report a transport failure.
func (t *callTable) failAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, ch := range t.pending {
		close(ch)
		delete(t.pending, id)
	}
}
