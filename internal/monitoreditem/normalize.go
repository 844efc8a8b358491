package monitoreditem

import (
	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/amine-amaach/opcua-monitoreditems/internal/ua"
)

// Bounds are the server-wide clamp limits applied by the parameter
// normaliser (spec.md §4.5). Populated from internal/config at
// construction time.
type Bounds struct {
	MinSamplingInterval     float64
	MaxSamplingInterval     float64
	DefaultSamplingInterval float64
	MaxQueueSize            uint32
}

// DefaultBounds returns the defaults named in spec.md §4.5.
func DefaultBounds() Bounds {
	return Bounds{
		MinSamplingInterval:     50,
		MaxSamplingInterval:     60 * 60 * 1000,
		DefaultSamplingInterval: 1500,
		MaxQueueSize:            5000,
	}
}

// normalized holds the post-clamp parameters of spec.md §4.5, ready to be
// applied to an Item.
type normalized struct {
	samplingInterval float64
	queueSize        uint32
	discardOldest    bool
	filter           *ua.DataChangeFilter
}

// normalizeParameters clamps sampling interval and queue size into their
// server bounds and validates the configured filter, per spec.md §4.5 and
// §4.3. attrID controls whether sampling_interval is forced to 0
// (exception-based) for non-Value attributes (spec.md invariant 5).
func normalizeParameters(b Bounds, attrID ua.AttributeID, params ua.MonitoringParameters, node ua.Node) (normalized, error) {
	n := normalized{
		discardOldest: params.DiscardOldest,
	}

	if attrID != ua.AttributeIDValue {
		n.samplingInterval = 0
	} else {
		n.samplingInterval = clampSamplingInterval(b, params.SamplingInterval)
	}

	n.queueSize = clampQueueSize(b, params.QueueSize)

	if err := validateFilter(params.Filter, node); err != nil {
		return normalized{}, err
	}
	n.filter = params.Filter

	return n, nil
}

func clampSamplingInterval(b Bounds, requested float64) float64 {
	if requested == 0 {
		return 0
	}
	if requested < 0 {
		requested = b.DefaultSamplingInterval
	}
	if requested < b.MinSamplingInterval {
		return b.MinSamplingInterval
	}
	if requested > b.MaxSamplingInterval {
		return b.MaxSamplingInterval
	}
	return requested
}

func clampQueueSize(b Bounds, requested uint32) uint32 {
	if requested < 1 {
		return 1
	}
	if requested > b.MaxQueueSize {
		return b.MaxQueueSize
	}
	return requested
}

// validateFilter rejects a percent-deadband filter the node cannot satisfy
// (spec.md §4.3, §7: BadDeadbandFilterInvalid surfaces at create/modify
// time, never during sampling).
func validateFilter(filter *ua.DataChangeFilter, node ua.Node) error {
	if filter == nil {
		return nil
	}
	if filter.DeadbandType != ua.DeadbandPercent {
		return nil
	}
	if filter.DeadbandValue < 0 || filter.DeadbandValue > 100 {
		return errors.Wrap(statusCodeError{ua.BadDeadbandFilterInvalid}, "percent deadband value out of [0,100]")
	}
	if _, _, ok := node.EURange(); !ok {
		return errors.Wrap(statusCodeError{ua.BadDeadbandFilterInvalid}, "node has no EURange for percent deadband")
	}
	return nil
}

// statusCodeError adapts an ua.StatusCode into an error so normaliser
// failures can be inspected with errors.As at the API boundary.
type statusCodeError struct {
	Code ua.StatusCode
}

func (e statusCodeError) Error() string {
	return "status code error"
}

// StatusCodeOf extracts the ua.StatusCode from err, if any was attached by
// the normaliser.
func StatusCodeOf(err error) (ua.StatusCode, bool) {
	var sce statusCodeError
	if stderrors.As(err, &sce) {
		return sce.Code, true
	}
	return ua.Good, false
}
