// Package callevents normalizes raw device call records into classified,
// deduplicated call events.
package callevents

import "encoding/json"

// CallType is the normalized classification of a call event.
type CallType string

const (
	CallIncoming CallType = "incoming"
	CallOutgoing CallType = "outgoing"
	CallMissed   CallType = "missed"
	CallRejected CallType = "rejected"
	CallUnknown  CallType = "unknown"
)

// Platform call-type codes as reported by the device call log.
const (
	codeIncoming = 1
	codeOutgoing = 2
	codeMissed   = 3
	codeRejected = 5
)

// RawCallRecord is a validated device call-log record.
type RawCallRecord struct {
	Number          string
	Type            int
	DurationSeconds int
	TimestampMillis int64
}

// AnalyzedCall is the immutable, classified representation of a call event.
// It is never persisted on its own; it travels inside notification payloads.
type AnalyzedCall struct {
	Type            CallType `json:"type"`
	Number          string   `json:"number"`
	DurationSeconds int      `json:"duration_seconds"`
	TimestampMillis int64    `json:"timestamp_millis"`
}

// ParseRawRecord validates that a device payload has the four required fields
// with the expected primitive shape. Malformed records return ok=false and
// are dropped by callers without surfacing an error; the device call log is
// noisy by nature.
func ParseRawRecord(data []byte) (RawCallRecord, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return RawCallRecord{}, false
	}

	var number string
	if raw, ok := fields["number"]; !ok || json.Unmarshal(raw, &number) != nil || number == "" {
		return RawCallRecord{}, false
	}

	callType, ok := intField(fields, "type")
	if !ok {
		return RawCallRecord{}, false
	}
	duration, ok := intField(fields, "duration_seconds")
	if !ok || duration < 0 {
		return RawCallRecord{}, false
	}
	timestamp, ok := intField(fields, "timestamp_millis")
	if !ok || timestamp < 0 {
		return RawCallRecord{}, false
	}

	return RawCallRecord{
		Number:          number,
		Type:            int(callType),
		DurationSeconds: int(duration),
		TimestampMillis: timestamp,
	}, true
}

func intField(fields map[string]json.RawMessage, key string) (int64, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	if value != float64(int64(value)) {
		return 0, false
	}
	return int64(value), true
}

// Classify maps a validated raw record to its AnalyzedCall. Deterministic and
// side-effect free: code 1 is incoming when the call connected, missed when
// the duration is zero.
func Classify(rec RawCallRecord) AnalyzedCall {
	var callType CallType
	switch rec.Type {
	case codeIncoming:
		if rec.DurationSeconds > 0 {
			callType = CallIncoming
		} else {
			callType = CallMissed
		}
	case codeOutgoing:
		callType = CallOutgoing
	case codeMissed:
		callType = CallMissed
	case codeRejected:
		callType = CallRejected
	default:
		callType = CallUnknown
	}

	return AnalyzedCall{
		Type:            callType,
		Number:          rec.Number,
		DurationSeconds: rec.DurationSeconds,
		TimestampMillis: rec.TimestampMillis,
	}
}
