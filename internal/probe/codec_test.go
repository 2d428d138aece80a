package probe

import (
	"testing"
	"time"

	"flowsentry/internal/model"
)

func TestFlowRecordRoundTrip(t *testing.T) {
	rec := &model.FlowRecord{
		FlowID:    "10.0.0.1:51000<->10.0.0.2:443/6",
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 123456789, time.UTC),
		Features: map[string]interface{}{
			"flow_duration":      60.5,
			"flow_packets_per_s": 10.0,
			"protocol":           "tcp",
		},
	}

	data, err := EncodeFlowRecord(rec)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeFlowRecord(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.FlowID != rec.FlowID {
		t.Errorf("Flow id changed on the wire: %q != %q", decoded.FlowID, rec.FlowID)
	}
	if !decoded.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("Timestamp changed on the wire: %s != %s", decoded.Timestamp, rec.Timestamp)
	}
	if decoded.Features["flow_duration"] != 60.5 {
		t.Errorf("Expected flow_duration 60.5, got %v", decoded.Features["flow_duration"])
	}
	if decoded.Features["protocol"] != "tcp" {
		t.Errorf("Expected protocol tcp, got %v", decoded.Features["protocol"])
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeFlowRecord([]byte{0xff, 0xff, 0xff, 0xff}); err == nil {
		t.Error("Expected an error for an undecodable payload")
	}
}
