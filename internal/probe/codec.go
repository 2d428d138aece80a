// Package probe carries flow records between the capture probe and the
// classification engine over NATS.
package probe

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"flowsentry/internal/model"
)

// Wire field names of the flow record envelope. The feature set itself is
// open-ended, so records travel as protobuf Struct values rather than a
// fixed message: the schema reconciliation happens at the aligner, not on
// the wire.
const (
	wireFlowID    = "flow_id"
	wireTimestamp = "timestamp"
	wireFeatures  = "features"
)

// EncodeFlowRecord serializes a flow record to its protobuf wire form.
func EncodeFlowRecord(rec *model.FlowRecord) ([]byte, error) {
	features := make(map[string]interface{}, len(rec.Features))
	for name, value := range rec.Features {
		features[name] = value
	}

	st, err := structpb.NewStruct(map[string]interface{}{
		wireFlowID:    rec.FlowID,
		wireTimestamp: rec.Timestamp.Format(time.RFC3339Nano),
		wireFeatures:  features,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build flow record struct: %w", err)
	}

	return proto.Marshal(st)
}

// DecodeFlowRecord parses a wire payload back into a flow record. Records
// with no parsable timestamp keep the receive time so downstream windows
// stay monotonic.
func DecodeFlowRecord(data []byte) (*model.FlowRecord, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow record: %w", err)
	}

	fields := st.AsMap()

	rec := &model.FlowRecord{
		Timestamp: time.Now(),
		Features:  make(map[string]interface{}),
	}

	if id, ok := fields[wireFlowID].(string); ok {
		rec.FlowID = id
	}
	if ts, ok := fields[wireTimestamp].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = parsed
		}
	}
	if features, ok := fields[wireFeatures].(map[string]interface{}); ok {
		rec.Features = features
	}

	return rec, nil
}
