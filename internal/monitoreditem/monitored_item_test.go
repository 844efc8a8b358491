package monitoreditem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gammazero/workerpool"

	"github.com/amine-amaach/opcua-monitoreditems/internal/ua"
)

// testNode is a minimal mutable ua.Node used to drive the engine under
// test without any transport or address-space layer.
type testNode struct {
	mu       sync.Mutex
	attrs    map[ua.AttributeID]ua.DataValue
	handlers map[string][]ua.EventHandler
	euLow, euHigh float64
	hasEURange    bool
}

func newTestNode() *testNode {
	return &testNode{
		attrs:    make(map[ua.AttributeID]ua.DataValue),
		handlers: make(map[string][]ua.EventHandler),
	}
}

func (n *testNode) set(attr ua.AttributeID, v ua.Variant) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attrs[attr] = ua.NewDataValue(v, ua.Good, time.Now(), 0, time.Now(), 0)
}

func (n *testNode) ReadAttribute(attr ua.AttributeID) ua.DataValue {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attrs[attr]
}

func (n *testNode) ReadValueAsync(ctx context.Context, cb func(ua.DataValue)) {
	cb(n.ReadAttribute(ua.AttributeIDValue))
}

func (n *testNode) On(event string, h ua.EventHandler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[event] = append(n.handlers[event], h)
	idx := len(n.handlers[event]) - 1
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.handlers[event][idx] = nil
	}
}

func (n *testNode) EURange() (float64, float64, bool) { return n.euLow, n.euHigh, n.hasEURange }

func (n *testNode) fire(event string, attr ua.AttributeID, v ua.Variant) {
	n.set(attr, v)
	reading := n.ReadAttribute(attr)
	n.mu.Lock()
	hs := append([]ua.EventHandler(nil), n.handlers[event]...)
	n.mu.Unlock()
	for _, h := range hs {
		if h != nil {
			h(reading)
		}
	}
}

func newTestDeps(t *testing.T, node ua.Node) Deps {
	scheduler := NewScheduler()
	t.Cleanup(scheduler.Close)
	return Deps{
		Node:      node,
		Bounds:    DefaultBounds(),
		Scheduler: scheduler,
		Pool:      workerpool.New(1),
		Registry:  NewRegistry(),
	}
}

func TestLifecycleStartsInvalid(t *testing.T) {
	node := newTestNode()
	node.set(ua.AttributeIDValue, 1.0)
	item, err := New(CreateParams{
		ItemToMonitor: ua.ReadValueID{AttributeID: ua.AttributeIDValue},
		QueueSize:     10,
		DiscardOldest: true,
	}, newTestDeps(t, node))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if item.MonitoringMode() != ua.ModeInvalid {
		t.Errorf("new item mode = %v, want Invalid", item.MonitoringMode())
	}
	if item.QueueLength() != 0 {
		t.Errorf("new item queue length = %d, want 0", item.QueueLength())
	}
}

func TestEnableRecordsInitialSampleForValueEventItem(t *testing.T) {
	node := newTestNode()
	node.set(ua.AttributeIDValue, 42.0)
	deps := newTestDeps(t, node)
	item, err := New(CreateParams{
		ItemToMonitor: ua.ReadValueID{AttributeID: ua.AttributeIDValue},
		SamplingInterval: 0,
		QueueSize:        10,
		DiscardOldest:    true,
	}, deps)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	item.SetMonitoringMode(ua.ModeReporting)
	deps.Pool.StopWait() // drain the async initial-read job before inspecting state

	if item.QueueLength() != 1 {
		t.Fatalf("queue length after enabling = %d, want 1 (initial sample)", item.QueueLength())
	}
	notes := item.ExtractNotifications()
	if len(notes) != 1 || notes[0].Value.Value != 42.0 {
		t.Errorf("extracted notifications = %v, want a single 42.0 reading", notes)
	}
}

func TestValueChangeEventDeliversWhileReporting(t *testing.T) {
	node := newTestNode()
	node.set(ua.AttributeIDValue, 1.0)
	deps := newTestDeps(t, node)
	item, _ := New(CreateParams{
		ItemToMonitor:    ua.ReadValueID{AttributeID: ua.AttributeIDValue},
		SamplingInterval: 0,
		QueueSize:        10,
		DiscardOldest:    true,
	}, deps)
	item.SetMonitoringMode(ua.ModeReporting)
	deps.Pool.StopWait()
	item.ExtractNotifications() // drain the initial sample

	node.fire("value_changed", ua.AttributeIDValue, 2.0)

	notes := item.ExtractNotifications()
	if len(notes) != 1 || notes[0].Value.Value != 2.0 {
		t.Errorf("notifications after value change = %v, want a single 2.0 reading", notes)
	}
}

func TestSamplingModeBuffersButDoesNotReport(t *testing.T) {
	node := newTestNode()
	node.set(ua.AttributeIDValue, 1.0)
	deps := newTestDeps(t, node)
	item, _ := New(CreateParams{
		ItemToMonitor:    ua.ReadValueID{AttributeID: ua.AttributeIDValue},
		SamplingInterval: 0,
		QueueSize:        10,
		DiscardOldest:    true,
	}, deps)
	item.SetMonitoringMode(ua.ModeSampling)
	deps.Pool.StopWait()

	if item.QueueLength() != 1 {
		t.Fatalf("queue length while Sampling = %d, want 1", item.QueueLength())
	}
	notes := item.ExtractNotifications()
	if notes != nil {
		t.Errorf("ExtractNotifications while Sampling returned %v, want nil", notes)
	}
	if item.QueueLength() != 1 {
		t.Errorf("ExtractNotifications while Sampling drained the queue; it must leave it untouched")
	}
}

func TestDisableClearsQueue(t *testing.T) {
	node := newTestNode()
	node.set(ua.AttributeIDValue, 1.0)
	deps := newTestDeps(t, node)
	item, _ := New(CreateParams{
		ItemToMonitor:    ua.ReadValueID{AttributeID: ua.AttributeIDValue},
		SamplingInterval: 0,
		QueueSize:        10,
		DiscardOldest:    true,
	}, deps)
	item.SetMonitoringMode(ua.ModeReporting)
	deps.Pool.StopWait()
	if item.QueueLength() == 0 {
		t.Fatalf("expected an initial sample queued before disabling")
	}
	item.SetMonitoringMode(ua.ModeDisabled)
	if item.QueueLength() != 0 {
		t.Errorf("queue length after disabling = %d, want 0", item.QueueLength())
	}
	if item.MonitoringMode() != ua.ModeDisabled {
		t.Errorf("mode after disabling = %v, want Disabled", item.MonitoringMode())
	}
}

func TestAttributeEventSamplerUsesAttributeChannel(t *testing.T) {
	node := newTestNode()
	node.set(ua.AttributeIDAccessLevel, "RW")
	deps := newTestDeps(t, node)
	item, err := New(CreateParams{
		ItemToMonitor: ua.ReadValueID{AttributeID: ua.AttributeIDAccessLevel},
		QueueSize:     5,
		DiscardOldest: true,
	}, deps)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	item.SetMonitoringMode(ua.ModeReporting)

	if item.QueueLength() != 1 {
		t.Fatalf("queue length after enabling attribute-event item = %d, want 1", item.QueueLength())
	}
	item.ExtractNotifications()

	node.fire("attribute_changed:AccessLevel", ua.AttributeIDAccessLevel, "RO")
	notes := item.ExtractNotifications()
	if len(notes) != 1 || notes[0].Value.Value != "RO" {
		t.Errorf("notifications after attribute change = %v, want a single RO reading", notes)
	}
}

func TestPollDrivesTimerSampler(t *testing.T) {
	node := newTestNode()
	node.set(ua.AttributeIDValue, 1.0)
	deps := newTestDeps(t, node)
	item, err := New(CreateParams{
		ItemToMonitor:    ua.ReadValueID{AttributeID: ua.AttributeIDValue},
		SamplingInterval: 1000,
		QueueSize:        5,
		DiscardOldest:    true,
	}, deps)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	item.SetMonitoringMode(ua.ModeReporting)
	item.ExtractNotifications() // drain the initial sample taken at bind time

	node.set(ua.AttributeIDValue, 2.0)
	item.Poll()

	notes := item.ExtractNotifications()
	if len(notes) != 1 || notes[0].Value.Value != 2.0 {
		t.Errorf("notifications after Poll = %v, want a single 2.0 reading", notes)
	}
}

func TestModifyRevisesQueueSizeAndInterval(t *testing.T) {
	node := newTestNode()
	node.set(ua.AttributeIDValue, 1.0)
	deps := newTestDeps(t, node)
	item, _ := New(CreateParams{
		ItemToMonitor:    ua.ReadValueID{AttributeID: ua.AttributeIDValue},
		SamplingInterval: 1000,
		QueueSize:        5,
		DiscardOldest:    true,
	}, deps)
	item.SetMonitoringMode(ua.ModeReporting)
	item.ExtractNotifications()

	result, err := item.Modify(ua.TimestampsBoth, ua.MonitoringParameters{
		SamplingInterval: 10, // below Min, should clamp
		QueueSize:        0,  // below 1, should clamp
		DiscardOldest:    true,
	})
	if err != nil {
		t.Fatalf("Modify returned error: %v", err)
	}
	if result.RevisedSamplingInterval != DefaultBounds().MinSamplingInterval {
		t.Errorf("RevisedSamplingInterval = %v, want %v", result.RevisedSamplingInterval, DefaultBounds().MinSamplingInterval)
	}
	if result.RevisedQueueSize != 1 {
		t.Errorf("RevisedQueueSize = %v, want 1", result.RevisedQueueSize)
	}
	if deps.Registry.Count() != 1 {
		t.Errorf("registry count after a rebinding Modify = %d, want 1 (item is still live and sampler-bound)", deps.Registry.Count())
	}
}

func TestTerminateIsIdempotentAndStopsSampling(t *testing.T) {
	node := newTestNode()
	node.set(ua.AttributeIDValue, 1.0)
	deps := newTestDeps(t, node)
	item, _ := New(CreateParams{
		ItemToMonitor:    ua.ReadValueID{AttributeID: ua.AttributeIDValue},
		SamplingInterval: 1000,
		QueueSize:        5,
		DiscardOldest:    true,
	}, deps)
	item.SetMonitoringMode(ua.ModeReporting)
	item.ExtractNotifications()

	item.Terminate()
	item.Terminate() // must not panic or double-decrement the registry

	node.set(ua.AttributeIDValue, 99.0)
	item.RecordValue(node.ReadAttribute(ua.AttributeIDValue), nil)
	if item.QueueLength() != 0 {
		t.Errorf("terminated item accepted a new reading; queue length = %d, want 0", item.QueueLength())
	}
	if deps.Registry.Count() != 0 {
		t.Errorf("registry count after terminate = %d, want 0", deps.Registry.Count())
	}
}

func TestTriggeredLinkPropagation(t *testing.T) {
	node := newTestNode()
	node.set(ua.AttributeIDValue, 1.0)
	deps := newTestDeps(t, node)
	triggering, _ := New(CreateParams{
		ItemToMonitor:    ua.ReadValueID{AttributeID: ua.AttributeIDValue},
		SamplingInterval: 0,
		QueueSize:        5,
		DiscardOldest:    true,
	}, deps)
	target, _ := New(CreateParams{
		ItemToMonitor:    ua.ReadValueID{AttributeID: ua.AttributeIDValue},
		SamplingInterval: 0,
		QueueSize:        5,
		DiscardOldest:    true,
	}, deps)

	target.SetMonitoringMode(ua.ModeSampling)
	triggering.AddLink(target)
	triggering.SetMonitoringMode(ua.ModeSampling)
	deps.Pool.StopWait()

	if !target.Triggered() {
		t.Errorf("linked target was not marked triggered after the triggering item recorded a value")
	}

	notes := target.ExtractNotifications()
	if len(notes) != 1 {
		t.Fatalf("triggered Sampling target did not drain its buffered queue: got %v", notes)
	}
	if target.Triggered() {
		t.Errorf("target.Triggered() still true after ExtractNotifications drained it")
	}
	if target.QueueLength() != 0 {
		t.Errorf("target queue length after drain = %d, want 0", target.QueueLength())
	}

	// A Sampling item that was never triggered must not drain, even with a
	// freshly queued reading.
	node.set(ua.AttributeIDValue, 7.0)
	target.RecordValue(node.ReadAttribute(ua.AttributeIDValue), nil)
	if target.QueueLength() == 0 {
		t.Fatalf("expected the changed value to be queued before checking the drain gate")
	}
	if notes := target.ExtractNotifications(); notes != nil {
		t.Errorf("untriggered Sampling item drained: got %v, want nil", notes)
	}

	if removed := triggering.RemoveLink(target); !removed {
		t.Errorf("RemoveLink reported false for a link that was present")
	}
}
