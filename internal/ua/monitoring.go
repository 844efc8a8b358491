package ua

// AttributeID selects which facet of a node is being monitored. Only the
// subset referenced by the monitored-item engine is declared here; the
// full table lives in the address-space layer, out of scope for this
// module (spec.md §1).
type AttributeID uint32

const (
	AttributeIDNodeID                  AttributeID = 1
	AttributeIDValue                   AttributeID = 13
	AttributeIDDataType                AttributeID = 14
	AttributeIDAccessLevel             AttributeID = 17
	AttributeIDMinimumSamplingInterval AttributeID = 19
)

// MonitoringMode is the three-state (plus sentinel) state machine of
// spec.md §3/§4.1.
type MonitoringMode int

const (
	// ModeInvalid is the internal sentinel value of a newly created item,
	// before set_monitoring_mode has ever been called. Not a valid target
	// of SetMonitoringMode.
	ModeInvalid MonitoringMode = iota
	ModeDisabled
	ModeSampling
	ModeReporting
)

func (m MonitoringMode) String() string {
	switch m {
	case ModeDisabled:
		return "Disabled"
	case ModeSampling:
		return "Sampling"
	case ModeReporting:
		return "Reporting"
	default:
		return "Invalid"
	}
}

// TimestampsToReturn selects which timestamp fields survive into a
// notification (spec.md §3).
type TimestampsToReturn int

const (
	TimestampsSource TimestampsToReturn = iota
	TimestampsServer
	TimestampsBoth
	TimestampsNeither
)

// DataChangeTrigger controls which kinds of difference are reportable
// (spec.md §4.3).
type DataChangeTrigger int

const (
	TriggerStatus DataChangeTrigger = iota
	TriggerStatusValue
	TriggerStatusValueTimestamp
)

// DeadbandType selects the deadband math applied to a value difference
// (spec.md §4.3).
type DeadbandType int

const (
	DeadbandNone DeadbandType = iota
	DeadbandAbsolute
	DeadbandPercent
)

// DataChangeFilter is the optional filter attached to a monitored item
// (spec.md §3).
type DataChangeFilter struct {
	Trigger       DataChangeTrigger
	DeadbandType  DeadbandType
	DeadbandValue float64
}

// ReadValueID names the (node, attribute, index range, encoding) triple a
// monitored item observes (spec.md §3, item_to_monitor).
type ReadValueID struct {
	NodeID       string
	AttributeID  AttributeID
	IndexRange   string
	DataEncoding string
}

// MonitoringParameters is the subset of CreateMonitoredItems /
// ModifyMonitoredItems request parameters the engine consumes (spec.md §6).
type MonitoringParameters struct {
	ClientHandle     uint32
	SamplingInterval float64
	Filter           *DataChangeFilter
	QueueSize        uint32
	DiscardOldest    bool
}

// AttributeChangeEvent returns the event name used to subscribe to
// non-Value attribute changes on a node (spec.md §6,
// make_attribute_event_name).
func AttributeChangeEvent(attr AttributeID) string {
	switch attr {
	case AttributeIDValue:
		return "value_changed"
	default:
		return "attribute_changed:" + attributeName(attr)
	}
}

func attributeName(attr AttributeID) string {
	switch attr {
	case AttributeIDNodeID:
		return "NodeId"
	case AttributeIDDataType:
		return "DataType"
	case AttributeIDAccessLevel:
		return "AccessLevel"
	case AttributeIDMinimumSamplingInterval:
		return "MinimumSamplingInterval"
	default:
		return "Unknown"
	}
}
