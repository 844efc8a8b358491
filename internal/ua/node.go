package ua

import "context"

// EventHandler receives a reading produced by a node-side change, used by
// the attribute-change and value-change sampler strategies.
type EventHandler func(DataValue)

// Node is the address-space collaborator the monitored-item engine reads
// from and subscribes to. Address-space storage, node typing, and
// reference management are out of scope (spec.md §1); this is the whole
// surface the engine needs.
type Node interface {
	// ReadAttribute synchronously reads attr, used for the initial sample
	// of a non-Value attribute and for periodic/async polling.
	ReadAttribute(attr AttributeID) DataValue

	// ReadValueAsync issues an asynchronous read of the Value attribute,
	// invoking cb with the result on completion. Used by the
	// exception-based Value sampler's initial bind (spec.md §4.2).
	ReadValueAsync(ctx context.Context, cb func(DataValue))

	// On subscribes h to event, returning a function that unsubscribes it.
	// event is either "value_changed" or an attribute-change event name
	// from AttributeChangeEvent.
	On(event string, h EventHandler) (unsubscribe func())

	// EURange returns the engineering-unit range used by percent
	// deadband. ok is false when the node has no such property, which
	// makes a percent-deadband filter configuration invalid.
	EURange() (low, high float64, ok bool)
}
