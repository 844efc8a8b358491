// Package monitoreditem implements the server-side monitored-item engine
// of an OPC UA server: the per-subscription observer of one (node,
// attribute, index range) triple, its sampling strategy, change-detection
// filter, and bounded notification queue.
package monitoreditem

import (
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/amine-amaach/opcua-monitoreditems/internal/ua"
)

// CreateParams are the constructor-time parameters of spec.md §6.
// MonitoringMode is deliberately absent: mode is set exclusively via
// SetMonitoringMode after construction (spec.md §6's documented
// contract — "Must not accept a monitoring_mode").
type CreateParams struct {
	MonitoredItemID    uint32
	ClientHandle       uint32
	ItemToMonitor      ua.ReadValueID
	SamplingInterval   float64
	QueueSize          uint32
	DiscardOldest      bool
	Filter             *ua.DataChangeFilter
	TimestampsToReturn ua.TimestampsToReturn
}

// ModifyResult mirrors spec.md §4.1's modify() return value. It carries no
// filter result: DataChangeFilter has no result structure.
type ModifyResult struct {
	RevisedSamplingInterval float64
	RevisedQueueSize        uint32
}

// Notification is one entry extracted from an item's queue (spec.md
// Glossary): the item's client handle paired with a timestamp-normalised
// reading.
type Notification struct {
	ClientHandle uint32
	Value        ua.DataValue
}

// Item is the monitored-item engine of spec.md §3/§4.1. The zero value is
// not usable; construct with New.
type Item struct {
	mu sync.RWMutex

	id                 uint32
	clientHandle       uint32
	itemToMonitor      ua.ReadValueID
	indexRange         ua.IndexRange
	samplingInterval   float64
	queueSize          uint32
	discardOldest      bool
	filter             *ua.DataChangeFilter
	timestampsToReturn ua.TimestampsToReturn
	mode               ua.MonitoringMode

	queue      *notificationQueue
	oldReading ua.DataValue

	node       ua.Node
	filterEval filterEvaluator
	binding    samplerBinding
	isSampling bool
	terminated bool

	linked    []*Item
	triggered bool

	bounds    Bounds
	scheduler *Scheduler
	pool      *workerpool.WorkerPool
	registry  *Registry
	registryID uuid.UUID
	registered bool

	log *logrus.Entry
}

// Deps bundles the engine-wide collaborators an Item needs beyond its own
// parameters: the node it observes, the clamp bounds, the shared
// scheduler and worker pool, the diagnostics registry, and a logger.
type Deps struct {
	Node      ua.Node
	Bounds    Bounds
	Scheduler *Scheduler
	Pool      *workerpool.WorkerPool
	Registry  *Registry
	Logger    *logrus.Logger
}

// New constructs a monitored item in mode Invalid (spec.md §3 Lifecycle).
// No sampler is bound and the queue is empty until SetMonitoringMode is
// called. Returns an error if the requested filter cannot be satisfied by
// the node (spec.md §4.3, §7: BadDeadbandFilterInvalid).
func New(params CreateParams, deps Deps) (*Item, error) {
	if deps.Node == nil {
		return nil, errors.New("monitoreditem: node is required")
	}
	idxRange, err := ua.ParseIndexRange(params.ItemToMonitor.IndexRange)
	if err != nil {
		return nil, errors.Wrap(err, "monitoreditem: invalid index range")
	}

	n, err := normalizeParameters(deps.Bounds, params.ItemToMonitor.AttributeID, ua.MonitoringParameters{
		ClientHandle:     params.ClientHandle,
		SamplingInterval: params.SamplingInterval,
		Filter:           params.Filter,
		QueueSize:        params.QueueSize,
		DiscardOldest:    params.DiscardOldest,
	}, deps.Node)
	if err != nil {
		return nil, errors.Wrap(err, "monitoreditem: create")
	}

	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}

	item := &Item{
		id:                 params.MonitoredItemID,
		clientHandle:       params.ClientHandle,
		itemToMonitor:      params.ItemToMonitor,
		indexRange:         idxRange,
		samplingInterval:   n.samplingInterval,
		queueSize:          n.queueSize,
		discardOldest:      n.discardOldest,
		filter:             n.filter,
		timestampsToReturn: params.TimestampsToReturn,
		mode:               ua.ModeInvalid,
		queue:              newNotificationQueue(n.queueSize, n.discardOldest),
		oldReading:         ua.InitialReading(),
		node:               deps.Node,
		filterEval:         newFilterEvaluator(deps.Node),
		bounds:             deps.Bounds,
		scheduler:          deps.Scheduler,
		pool:               deps.Pool,
		registry:           deps.Registry,
		log:                logger.WithField("monitored_item_id", params.MonitoredItemID),
	}
	return item, nil
}

// ID returns the server-assigned handle of the item.
func (item *Item) ID() uint32 { return item.id }

// ClientHandle returns the opaque client-supplied handle.
func (item *Item) ClientHandle() uint32 {
	item.mu.RLock()
	defer item.mu.RUnlock()
	return item.clientHandle
}

// MonitoringMode returns the item's current mode.
func (item *Item) MonitoringMode() ua.MonitoringMode {
	item.mu.RLock()
	defer item.mu.RUnlock()
	return item.mode
}

// IsSampling reports whether a sample is currently in flight (spec.md §9
// re-entrancy guard).
func (item *Item) IsSampling() bool {
	item.mu.RLock()
	defer item.mu.RUnlock()
	return item.isSampling
}

// QueueLength returns the number of readings currently queued.
func (item *Item) QueueLength() int {
	item.mu.RLock()
	defer item.mu.RUnlock()
	return item.queue.Len()
}

// Overflow reports whether the queue currently holds an overflow-marked
// reading (spec.md invariant 2).
func (item *Item) Overflow() bool {
	item.mu.RLock()
	defer item.mu.RUnlock()
	return item.queue.Overflow()
}

func (item *Item) samplingPeriod() time.Duration {
	return time.Duration(item.samplingInterval) * time.Millisecond
}

// SetMonitoringMode transitions the state machine per spec.md §4.1.
func (item *Item) SetMonitoringMode(mode ua.MonitoringMode) {
	item.mu.Lock()
	defer item.mu.Unlock()
	if mode == ua.ModeInvalid {
		item.log.Warn("ignoring attempt to set monitoring mode to Invalid")
		return
	}
	if item.mode == mode {
		return
	}
	previous := item.mode
	item.unbindSamplerLocked()

	item.mode = mode
	if mode == ua.ModeDisabled {
		item.queue.Clear()
		item.oldReading = ua.InitialReading()
		item.log.WithField("from", previous.String()).Info("monitored item disabled")
		return
	}

	recordInitialValue := previous == ua.ModeInvalid || previous == ua.ModeDisabled
	item.binding = bindSampler(item, item.pool, item.scheduler, recordInitialValue)
}

// Modify atomically updates parameters per spec.md §4.1. If the sampling
// interval changed and a timer is bound, the timer is restarted with the
// new period.
func (item *Item) Modify(timestampsToReturn ua.TimestampsToReturn, params ua.MonitoringParameters) (ModifyResult, error) {
	item.mu.Lock()
	defer item.mu.Unlock()

	n, err := normalizeParameters(item.bounds, item.itemToMonitor.AttributeID, params, item.node)
	if err != nil {
		return ModifyResult{}, errors.Wrap(err, "monitoreditem: modify")
	}

	intervalChanged := n.samplingInterval != item.samplingInterval
	wasBound := item.binding.kind != samplerNone
	needsRebind := wasBound && rebindRequired(item.binding.kind, intervalChanged, n.samplingInterval)

	if needsRebind {
		item.unbindSamplerLocked()
	}

	item.clientHandle = params.ClientHandle
	item.discardOldest = n.discardOldest
	item.samplingInterval = n.samplingInterval
	item.filter = n.filter
	item.timestampsToReturn = timestampsToReturn
	item.queue.Resize(n.queueSize, n.discardOldest)
	item.queueSize = n.queueSize

	if needsRebind {
		item.binding = bindSampler(item, item.pool, item.scheduler, false)
	}

	return ModifyResult{
		RevisedSamplingInterval: item.samplingInterval,
		RevisedQueueSize:        item.queueSize,
	}, nil
}

// Terminate unbinds the sampler and deregisters the item. Idempotent.
func (item *Item) Terminate() {
	item.mu.Lock()
	defer item.mu.Unlock()
	if item.terminated {
		return
	}
	item.terminated = true
	item.unbindSamplerLocked()
	item.linked = nil
}

func (item *Item) unbindSamplerLocked() {
	item.binding.release(item)
}

// ExtractNotifications drains the queue into client-ready notifications.
// Returns empty and leaves the queue untouched when mode is not Reporting
// (spec.md §4.1). A Sampling item that a linked item has triggered also
// drains once, the same as a Reporting item (supplemental SetTriggering
// feature, SPEC_FULL.md §SUPPLEMENTED FEATURES).
func (item *Item) ExtractNotifications() []Notification {
	item.mu.Lock()
	defer item.mu.Unlock()
	if item.mode != ua.ModeReporting && !(item.mode == ua.ModeSampling && item.triggered) {
		return nil
	}
	readings := item.queue.DrainAll()
	item.triggered = false
	out := make([]Notification, len(readings))
	for i, r := range readings {
		out[i] = Notification{ClientHandle: item.clientHandle, Value: r}
	}
	return out
}

// RecordValue is the single ingestion path from any sampler (spec.md
// §4.1). deliveredRange is the index range of the reading as delivered by
// the source (e.g. a partial-array write); it is compared against the
// item's own configured index range for overlap.
func (item *Item) RecordValue(reading ua.DataValue, deliveredRange ua.IndexRange) {
	item.mu.Lock()
	defer item.mu.Unlock()
	item.recordValueLocked(reading, deliveredRange, false)
}

// recordInitial enqueues reading unconditionally, bypassing the filter,
// as required when a sampler binds from Disabled/Invalid (spec.md §4.1,
// invariant 8).
func (item *Item) recordInitial(reading ua.DataValue) {
	item.mu.Lock()
	defer item.mu.Unlock()
	item.recordValueLocked(reading, nil, true)
}

func (item *Item) recordValueLocked(reading ua.DataValue, deliveredRange ua.IndexRange, bypassFilter bool) {
	if item.terminated {
		return
	}
	if !item.indexRange.Overlaps(deliveredRange) {
		return
	}
	narrowedValue, err := item.indexRange.Apply(reading.Value)
	if err != nil {
		item.log.WithError(err).Warn("dropping sample: index range could not be applied")
		return
	}
	narrowed := reading
	narrowed.Value = narrowedValue

	if !bypassFilter && !item.filterEval.Accept(item.filter, narrowed, item.oldReading) {
		return
	}

	item.queue.Push(ua.WithTimestamps(narrowed, item.timestampsToReturn))
	item.oldReading = narrowed

	for _, link := range item.linked {
		link.SetTriggered(true)
	}
}

// Poll implements the periodic-timer sampling strategy (spec.md §4.2):
// read the Value attribute synchronously and record it. Guarded by the
// re-entrancy flag of spec.md §9 — if a sample is already in flight, the
// tick is skipped and a warning logged, not queued.
func (item *Item) Poll() {
	if !item.beginSampling() {
		item.log.Warn("skipping sample tick: previous sample still in flight")
		return
	}
	defer item.endSampling()

	item.mu.RLock()
	node := item.node
	terminated := item.terminated
	item.mu.RUnlock()
	if terminated || node == nil {
		return
	}

	v := node.ReadAttribute(ua.AttributeIDValue)
	item.RecordValue(v, nil)
}

func (item *Item) beginSampling() bool {
	item.mu.Lock()
	defer item.mu.Unlock()
	if item.isSampling {
		return false
	}
	item.isSampling = true
	return true
}

func (item *Item) endSampling() {
	item.mu.Lock()
	item.isSampling = false
	item.mu.Unlock()
}

// SetTriggered marks the item as triggered by a linked item's data change
// (supplemental SetTriggering feature, SPEC_FULL.md §SUPPLEMENTED
// FEATURES).
func (item *Item) SetTriggered(val bool) {
	item.mu.Lock()
	item.triggered = val
	item.mu.Unlock()
}

// Triggered reports whether the item is currently triggered.
func (item *Item) Triggered() bool {
	item.mu.RLock()
	defer item.mu.RUnlock()
	return item.triggered
}

// AddLink registers target to be triggered whenever this item records an
// accepted data change while merely Sampling (supplemental SetTriggering
// feature).
func (item *Item) AddLink(target *Item) {
	item.mu.Lock()
	item.linked = append(item.linked, target)
	item.mu.Unlock()
}

// RemoveLink unregisters target. Reports whether it was present.
func (item *Item) RemoveLink(target *Item) bool {
	item.mu.Lock()
	defer item.mu.Unlock()
	for i, l := range item.linked {
		if l == target {
			item.linked = append(item.linked[:i], item.linked[i+1:]...)
			return true
		}
	}
	return false
}

// Resend re-reads the current value and enqueues it if the queue is
// otherwise empty, for a subscription publish cycle that must resend even
// without a fresh data change (supplemental resend-on-publish feature).
func (item *Item) Resend() {
	item.mu.Lock()
	if item.mode != ua.ModeReporting || item.queue.Len() > 0 || item.terminated {
		item.mu.Unlock()
		return
	}
	node := item.node
	item.mu.Unlock()
	if node == nil {
		return
	}
	v := node.ReadAttribute(ua.AttributeIDValue)
	item.mu.Lock()
	defer item.mu.Unlock()
	item.recordValueLocked(v, nil, true)
}
