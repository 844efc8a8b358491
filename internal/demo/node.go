// Package demo wires the monitored-item engine to a minimal, in-memory
// address space so the engine can be exercised end to end without a real
// OPC UA transport stack, the way the teacher's sensor simulator drove its
// own server loop (spec.md §2 point 7).
package demo

import (
	"context"
	"sync"
	"time"

	"github.com/amine-amaach/opcua-monitoreditems/internal/ua"
)

// VariableNode is a toy ua.Node backed by a single in-memory value, with
// optional engineering-unit bounds for percent-deadband filters.
type VariableNode struct {
	mu sync.RWMutex

	name  string
	value ua.DataValue

	euLow, euHigh float64
	hasEURange    bool

	handlers map[string][]ua.EventHandler
}

// NewVariableNode constructs a node seeded with an initial Good value.
func NewVariableNode(name string, initial ua.Variant) *VariableNode {
	now := time.Now()
	return &VariableNode{
		name: name,
		value: ua.NewDataValue(initial, ua.Good, now, 0, now, 0),
		handlers: make(map[string][]ua.EventHandler),
	}
}

// WithEURange attaches the engineering-unit range used by percent-deadband
// filters.
func (n *VariableNode) WithEURange(low, high float64) *VariableNode {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.euLow, n.euHigh, n.hasEURange = low, high, true
	return n
}

// ReadAttribute implements ua.Node.
func (n *VariableNode) ReadAttribute(attr ua.AttributeID) ua.DataValue {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if attr == ua.AttributeIDValue {
		return n.value
	}
	now := time.Now()
	return ua.NewDataValue(n.name, ua.Good, now, 0, now, 0)
}

// ReadValueAsync implements ua.Node by invoking cb synchronously on the
// caller's goroutine, unless ctx is already cancelled; the engine supplies
// the asynchrony by calling it from its worker pool (spec.md §4.2).
func (n *VariableNode) ReadValueAsync(ctx context.Context, cb func(ua.DataValue)) {
	v := n.ReadAttribute(ua.AttributeIDValue)
	select {
	case <-ctx.Done():
	default:
		cb(v)
	}
}

// On implements ua.Node.
func (n *VariableNode) On(event string, h ua.EventHandler) func() {
	n.mu.Lock()
	n.handlers[event] = append(n.handlers[event], h)
	idx := len(n.handlers[event]) - 1
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		hs := n.handlers[event]
		if idx < 0 || idx >= len(hs) {
			return
		}
		hs[idx] = nil
	}
}

// EURange implements ua.Node.
func (n *VariableNode) EURange() (float64, float64, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.euLow, n.euHigh, n.hasEURange
}

// Write sets the node's Value and fires any value_changed subscribers,
// simulating an external write to the address space.
func (n *VariableNode) Write(value ua.Variant, status ua.StatusCode) {
	now := time.Now()
	n.mu.Lock()
	n.value = ua.NewDataValue(value, status, now, 0, now, 0)
	reading := n.value
	hs := append([]ua.EventHandler(nil), n.handlers["value_changed"]...)
	n.mu.Unlock()

	for _, h := range hs {
		if h != nil {
			h(reading)
		}
	}
}
