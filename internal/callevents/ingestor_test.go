package callevents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingSink struct {
	calls         []AnalyzedCall
	installations []string
	err           error
}

func (s *capturingSink) HandleCall(_ context.Context, installationID string, call AnalyzedCall) error {
	s.calls = append(s.calls, call)
	s.installations = append(s.installations, installationID)
	return s.err
}

func TestIngestorDropsMalformed(t *testing.T) {
	sink := &capturingSink{}
	ing := NewIngestor(NewDedupWindow(time.Hour), sink, nil, nil)

	err := ing.Ingest(context.Background(), "install-1", []byte(`{"number":""}`))
	require.NoError(t, err)
	assert.Empty(t, sink.calls)
}

func TestIngestorDropsDuplicates(t *testing.T) {
	sink := &capturingSink{}
	ing := NewIngestor(NewDedupWindow(time.Hour), sink, nil, nil)
	payload := []byte(`{"number":"+15550001","type":1,"duration_seconds":20,"timestamp_millis":1000}`)

	require.NoError(t, ing.Ingest(context.Background(), "install-1", payload))
	require.NoError(t, ing.Ingest(context.Background(), "install-1", payload))

	require.Len(t, sink.calls, 1)
	assert.Equal(t, CallIncoming, sink.calls[0].Type)
	assert.Equal(t, "+15550001", sink.calls[0].Number)
}

func TestIngestorKeepsInstallationsSeparate(t *testing.T) {
	sink := &capturingSink{}
	ing := NewIngestor(NewDedupWindow(time.Hour), sink, nil, nil)
	payload := []byte(`{"number":"+15550001","type":1,"duration_seconds":20,"timestamp_millis":1000}`)

	// The same number and timestamp from two devices are two native events;
	// a shared window must not suppress the second installation's report.
	require.NoError(t, ing.Ingest(context.Background(), "install-1", payload))
	require.NoError(t, ing.Ingest(context.Background(), "install-2", payload))

	assert.Equal(t, []string{"install-1", "install-2"}, sink.installations)
}

func TestIngestorPropagatesSinkError(t *testing.T) {
	sink := &capturingSink{err: errors.New("push down")}
	ing := NewIngestor(NewDedupWindow(time.Hour), sink, nil, nil)

	err := ing.Ingest(context.Background(), "install-1", []byte(`{"number":"+15550001","type":3,"duration_seconds":0,"timestamp_millis":2000}`))
	assert.Error(t, err)
}
