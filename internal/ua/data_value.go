package ua

import "time"

// Variant is the typed payload of a DataValue: a scalar or a slice of one
// of Go's numeric kinds, bool, string, or []byte. Filters and the index
// range narrower use reflection to stay agnostic of the concrete type.
type Variant any

// DataValue is the reading observed at one instant: a value, its quality,
// and up to two timestamp/picosecond pairs. Mirrors the wire-level
// DataValue of Part 6, 5.2.2.17.
type DataValue struct {
	Value             Variant
	StatusCode        StatusCode
	SourceTimestamp   time.Time
	SourcePicoseconds uint16
	ServerTimestamp   time.Time
	ServerPicoseconds uint16
}

// NewDataValue constructs a DataValue from its six fields.
func NewDataValue(value Variant, status StatusCode, sourceTimestamp time.Time, sourcePicoseconds uint16, serverTimestamp time.Time, serverPicoseconds uint16) DataValue {
	return DataValue{value, status, sourceTimestamp, sourcePicoseconds, serverTimestamp, serverPicoseconds}
}

// InitialReading is the synthetic baseline every monitored item starts
// with before its first real sample arrives (spec.md §3, old_reading).
func InitialReading() DataValue {
	return NewDataValue(nil, BadDataUnavailable, time.Time{}, 0, time.Time{}, 0)
}

// WithTimestamps returns a copy of v with only the timestamps selected by
// timestampsToReturn retained, per spec.md §4.1 extract_notifications.
func WithTimestamps(v DataValue, timestampsToReturn TimestampsToReturn) DataValue {
	switch timestampsToReturn {
	case TimestampsSource:
		return NewDataValue(v.Value, v.StatusCode, v.SourceTimestamp, v.SourcePicoseconds, time.Time{}, 0)
	case TimestampsServer:
		return NewDataValue(v.Value, v.StatusCode, time.Time{}, 0, v.ServerTimestamp, v.ServerPicoseconds)
	case TimestampsNeither:
		return NewDataValue(v.Value, v.StatusCode, time.Time{}, 0, time.Time{}, 0)
	default: // TimestampsBoth
		return v
	}
}
