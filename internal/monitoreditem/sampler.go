package monitoreditem

import (
	"context"

	"github.com/gammazero/workerpool"

	"github.com/amine-amaach/opcua-monitoreditems/internal/ua"
)

// samplerKind tags which of the three strategies of spec.md §4.2 an item
// is bound to. Re-architected from the source's dynamic dispatch into an
// explicit tagged variant, per spec.md §9's design note.
type samplerKind int

const (
	samplerNone samplerKind = iota
	samplerTimer
	samplerAttributeEvent
	samplerValueEvent
)

// samplerBinding is the live resources held while a sampler strategy is
// active: at most one of these may be non-zero at a time (spec.md
// invariant 3).
type samplerBinding struct {
	kind        samplerKind
	unsubscribe func()
}

// bindSampler chooses and activates the sampling strategy for item,
// following spec.md §4.2, and registers item with the diagnostics registry
// (spec.md §5/§9: registration occurs on sampler bind). The caller must
// already hold item.mu (it is invoked from SetMonitoringMode/Modify); every
// operation below either avoids the item's lock or defers it to a later,
// independent goroutine. release undoes the registration symmetrically, so
// every caller that binds through this function is registered exactly
// once regardless of which of SetMonitoringMode/Modify triggered it.
func bindSampler(item *Item, pool *workerpool.WorkerPool, scheduler *Scheduler, recordInitialValue bool) samplerBinding {
	attr := item.itemToMonitor.AttributeID
	var binding samplerBinding
	switch {
	case attr != ua.AttributeIDValue:
		binding = bindAttributeEventSampler(item, recordInitialValue)
	case item.samplingInterval == 0:
		binding = bindValueEventSampler(item, pool, recordInitialValue)
	default:
		binding = bindTimerSampler(item, scheduler, recordInitialValue)
	}
	if item.registry != nil && !item.registered {
		item.registryID = item.registry.register(item)
		item.registered = true
	}
	return binding
}

func bindAttributeEventSampler(item *Item, recordInitialValue bool) samplerBinding {
	event := ua.AttributeChangeEvent(item.itemToMonitor.AttributeID)
	unsubscribe := item.node.On(event, func(v ua.DataValue) {
		item.RecordValue(v, nil)
	})
	if recordInitialValue {
		v := item.node.ReadAttribute(item.itemToMonitor.AttributeID)
		item.recordValueLocked(v, nil, true)
	}
	return samplerBinding{kind: samplerAttributeEvent, unsubscribe: unsubscribe}
}

func bindValueEventSampler(item *Item, pool *workerpool.WorkerPool, recordInitialValue bool) samplerBinding {
	unsubscribe := item.node.On("value_changed", func(v ua.DataValue) {
		item.RecordValue(v, nil)
	})
	if recordInitialValue {
		item.isSampling = true
		pool.Submit(func() {
			item.node.ReadValueAsync(context.Background(), func(v ua.DataValue) {
				item.recordInitial(v)
				item.endSampling()
			})
		})
	}
	return samplerBinding{kind: samplerValueEvent, unsubscribe: unsubscribe}
}

func bindTimerSampler(item *Item, scheduler *Scheduler, recordInitialValue bool) samplerBinding {
	group := scheduler.GetPollGroup(item.samplingPeriod())
	group.Subscribe(item)
	if recordInitialValue {
		v := item.node.ReadAttribute(ua.AttributeIDValue)
		item.recordValueLocked(v, nil, true)
	}
	return samplerBinding{
		kind: samplerTimer,
		unsubscribe: func() {
			group.Unsubscribe(item)
		},
	}
}

// rebindRequired reports whether a parameter change to an already-bound
// item requires tearing down and re-establishing its sampler binding: a
// timer whose period changed, or a Value-attribute item crossing the
// sampling_interval == 0 boundary between the value-event and timer
// strategies. An attribute-event binding never needs rebinding, since its
// governing attribute cannot change via modify().
func rebindRequired(kind samplerKind, intervalChanged bool, newInterval float64) bool {
	switch kind {
	case samplerTimer:
		return newInterval == 0 || intervalChanged
	case samplerValueEvent:
		return newInterval != 0
	default:
		return false
	}
}

// release unbinds whatever strategy is active and deregisters item from
// the diagnostics registry, the symmetric undo of bindSampler's
// registration. Safe to call multiple times, bound or not (spec.md §9,
// registry double-unbind tolerance extends to the sampler binding itself).
func (b *samplerBinding) release(item *Item) {
	if b.kind != samplerNone {
		if b.unsubscribe != nil {
			b.unsubscribe()
		}
		*b = samplerBinding{}
	}
	if item.registered && item.registry != nil {
		item.registry.unregister(item.registryID)
		item.registered = false
	}
}
