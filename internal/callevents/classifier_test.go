package callevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		rec  RawCallRecord
		want CallType
	}{
		{"incoming connected", RawCallRecord{Number: "+15550001", Type: 1, DurationSeconds: 30}, CallIncoming},
		{"incoming zero duration is missed", RawCallRecord{Number: "+15550001", Type: 1, DurationSeconds: 0}, CallMissed},
		{"outgoing", RawCallRecord{Number: "+15550001", Type: 2, DurationSeconds: 12}, CallOutgoing},
		{"missed", RawCallRecord{Number: "+15550001", Type: 3}, CallMissed},
		{"rejected", RawCallRecord{Number: "+15550001", Type: 5}, CallRejected},
		{"voicemail code is unknown", RawCallRecord{Number: "+15550001", Type: 4}, CallUnknown},
		{"garbage code is unknown", RawCallRecord{Number: "+15550001", Type: 99}, CallUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.rec)
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, tt.rec.Number, got.Number)
			assert.Equal(t, tt.rec.DurationSeconds, got.DurationSeconds)
			assert.Equal(t, tt.rec.TimestampMillis, got.TimestampMillis)
		})
	}
}

func TestClassifyExampleScenario(t *testing.T) {
	rec, ok := ParseRawRecord([]byte(`{"number":"+911234567890","type":1,"duration_seconds":0,"timestamp_millis":1000}`))
	if !ok {
		t.Fatal("expected record to parse")
	}
	call := Classify(rec)
	assert.Equal(t, CallMissed, call.Type)
	assert.Equal(t, "+911234567890", call.Number)
	assert.Equal(t, 0, call.DurationSeconds)
	assert.Equal(t, int64(1000), call.TimestampMillis)
}

func TestParseRawRecordMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `not-json`},
		{"empty object", `{}`},
		{"missing number", `{"type":1,"duration_seconds":5,"timestamp_millis":1000}`},
		{"empty number", `{"number":"","type":1,"duration_seconds":5,"timestamp_millis":1000}`},
		{"number wrong type", `{"number":42,"type":1,"duration_seconds":5,"timestamp_millis":1000}`},
		{"type as string", `{"number":"+1555","type":"1","duration_seconds":5,"timestamp_millis":1000}`},
		{"fractional type", `{"number":"+1555","type":1.5,"duration_seconds":5,"timestamp_millis":1000}`},
		{"negative duration", `{"number":"+1555","type":1,"duration_seconds":-1,"timestamp_millis":1000}`},
		{"negative timestamp", `{"number":"+1555","type":1,"duration_seconds":5,"timestamp_millis":-1}`},
		{"missing timestamp", `{"number":"+1555","type":1,"duration_seconds":5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseRawRecord([]byte(tt.payload))
			assert.False(t, ok)
		})
	}
}

func TestParseRawRecordValid(t *testing.T) {
	rec, ok := ParseRawRecord([]byte(`{"number":"+15550001","type":2,"duration_seconds":45,"timestamp_millis":1700000000000}`))
	if !ok {
		t.Fatal("expected record to parse")
	}
	assert.Equal(t, "+15550001", rec.Number)
	assert.Equal(t, 2, rec.Type)
	assert.Equal(t, 45, rec.DurationSeconds)
	assert.Equal(t, int64(1700000000000), rec.TimestampMillis)
}

func TestParseRawRecordIgnoresExtraFields(t *testing.T) {
	_, ok := ParseRawRecord([]byte(`{"number":"+15550001","type":1,"duration_seconds":5,"timestamp_millis":1000,"sim_slot":2}`))
	assert.True(t, ok)
}
