package monitoreditem

import (
	"testing"

	"github.com/amine-amaach/opcua-monitoreditems/internal/ua"
)

func TestClampSamplingIntervalBounds(t *testing.T) {
	b := DefaultBounds()
	cases := []struct {
		requested float64
		want      float64
	}{
		{0, 0},
		{10, b.MinSamplingInterval},
		{-1, b.DefaultSamplingInterval},
		{b.MaxSamplingInterval * 2, b.MaxSamplingInterval},
		{1000, 1000},
	}
	for _, c := range cases {
		got := clampSamplingInterval(b, c.requested)
		if got != c.want {
			t.Errorf("clampSamplingInterval(%v) = %v, want %v", c.requested, got, c.want)
		}
	}
}

func TestClampQueueSizeBounds(t *testing.T) {
	b := DefaultBounds()
	cases := []struct {
		requested uint32
		want      uint32
	}{
		{0, 1},
		{1, 1},
		{b.MaxQueueSize + 1000, b.MaxQueueSize},
		{10, 10},
	}
	for _, c := range cases {
		got := clampQueueSize(b, c.requested)
		if got != c.want {
			t.Errorf("clampQueueSize(%v) = %v, want %v", c.requested, got, c.want)
		}
	}
}

func TestNonValueAttributeForcesZeroInterval(t *testing.T) {
	n, err := normalizeParameters(DefaultBounds(), ua.AttributeIDAccessLevel, ua.MonitoringParameters{SamplingInterval: 500, QueueSize: 2}, fakeNode{})
	if err != nil {
		t.Fatalf("normalizeParameters returned error: %v", err)
	}
	if n.samplingInterval != 0 {
		t.Errorf("non-Value attribute got sampling_interval = %v, want 0", n.samplingInterval)
	}
}

func TestValidateFilterRejectsPercentWithoutEURange(t *testing.T) {
	filter := &ua.DataChangeFilter{DeadbandType: ua.DeadbandPercent, DeadbandValue: 5}
	_, err := normalizeParameters(DefaultBounds(), ua.AttributeIDValue, ua.MonitoringParameters{Filter: filter, QueueSize: 1}, fakeNode{hasEURange: false})
	if err == nil {
		t.Fatalf("expected an error for percent deadband with no EURange")
	}
	code, ok := StatusCodeOf(err)
	if !ok {
		t.Fatalf("StatusCodeOf did not find an attached status code in: %v", err)
	}
	if code != ua.BadDeadbandFilterInvalid {
		t.Errorf("status code = %#x, want BadDeadbandFilterInvalid", uint32(code))
	}
}

func TestValidateFilterRejectsOutOfRangePercent(t *testing.T) {
	filter := &ua.DataChangeFilter{DeadbandType: ua.DeadbandPercent, DeadbandValue: 150}
	_, err := normalizeParameters(DefaultBounds(), ua.AttributeIDValue, ua.MonitoringParameters{Filter: filter, QueueSize: 1}, fakeNode{euLow: 0, euHigh: 100, hasEURange: true})
	if err == nil {
		t.Fatalf("expected an error for a 150%% deadband value")
	}
}

func TestValidateFilterAcceptsPercentWithEURange(t *testing.T) {
	filter := &ua.DataChangeFilter{DeadbandType: ua.DeadbandPercent, DeadbandValue: 5}
	_, err := normalizeParameters(DefaultBounds(), ua.AttributeIDValue, ua.MonitoringParameters{Filter: filter, QueueSize: 1}, fakeNode{euLow: 0, euHigh: 100, hasEURange: true})
	if err != nil {
		t.Errorf("valid percent deadband with EURange rejected: %v", err)
	}
}
