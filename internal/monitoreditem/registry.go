package monitoreditem

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Registry is the process-wide live-item counter of spec.md §5, plus a
// lookup table keyed by a generated correlation ID used for diagnostics
// and logging. register/unregister are idempotent on double-unregister,
// matching spec.md §9's registry note.
type Registry struct {
	count   int64
	mu      sync.Mutex
	entries map[uuid.UUID]*Item
}

// NewRegistry constructs an empty Registry; initial live count is 0.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[uuid.UUID]*Item)}
}

// Count returns the number of currently registered (sampler-bound) items.
func (r *Registry) Count() int64 {
	return atomic.LoadInt64(&r.count)
}

// register records item as live and returns its correlation ID. Called on
// sampler bind.
func (r *Registry) register(item *Item) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.entries[id] = item
	r.mu.Unlock()
	atomic.AddInt64(&r.count, 1)
	return id
}

// unregister removes id from the registry. Safe to call more than once
// for the same id; only the first call decrements the live count.
func (r *Registry) unregister(id uuid.UUID) {
	r.mu.Lock()
	_, existed := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if existed {
		atomic.AddInt64(&r.count, -1)
	}
}
