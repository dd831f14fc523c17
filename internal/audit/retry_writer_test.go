package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clientcheck/followup-platform/internal/platform"
)

type fakeOutboxStore struct {
	due       []OutboxRecord
	listErr   error
	retried   []uuid.UUID
	delivered []uuid.UUID
	nextRetry []time.Time
}

func (f *fakeOutboxStore) ListDue(context.Context, int, int) ([]OutboxRecord, error) {
	return f.due, f.listErr
}

func (f *fakeOutboxStore) ScheduleRetry(_ context.Context, id uuid.UUID, _ string, nextRetry time.Time) error {
	f.retried = append(f.retried, id)
	f.nextRetry = append(f.nextRetry, nextRetry)
	return nil
}

func (f *fakeOutboxStore) MarkDelivered(_ context.Context, id uuid.UUID) error {
	f.delivered = append(f.delivered, id)
	return nil
}

type fakeRecordWriter struct {
	callLogs   []platform.CallLogRecord
	messages   []platform.MessageSentRecord
	callLogErr error
	messageErr error
}

func (f *fakeRecordWriter) WriteCallLog(_ context.Context, rec platform.CallLogRecord) error {
	if f.callLogErr != nil {
		return f.callLogErr
	}
	f.callLogs = append(f.callLogs, rec)
	return nil
}

func (f *fakeRecordWriter) WriteMessageSent(_ context.Context, rec platform.MessageSentRecord) error {
	if f.messageErr != nil {
		return f.messageErr
	}
	f.messages = append(f.messages, rec)
	return nil
}

func TestRetryWriterDeliversDueRecords(t *testing.T) {
	callLogID := uuid.New()
	messageID := uuid.New()
	store := &fakeOutboxStore{due: []OutboxRecord{
		{ID: callLogID, Kind: KindCallLog, Payload: []byte(`{"contact_number":"911234567890","call_type":"missed"}`)},
		{ID: messageID, Kind: KindMessageSent, Payload: []byte(`{"contact_number":"911234567890","message_sent":"We missed you!"}`)},
	}}
	writer := &fakeRecordWriter{}

	NewRetryWriter(store, writer, nil).drain(context.Background())

	require.Len(t, writer.callLogs, 1)
	assert.Equal(t, "911234567890", writer.callLogs[0].ContactNumber)
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "We missed you!", writer.messages[0].MessageSent)
	assert.ElementsMatch(t, []uuid.UUID{callLogID, messageID}, store.delivered)
	assert.Empty(t, store.retried)
}

func TestRetryWriterSchedulesRetryOnFailure(t *testing.T) {
	id := uuid.New()
	store := &fakeOutboxStore{due: []OutboxRecord{
		{ID: id, Kind: KindCallLog, Payload: []byte(`{}`), Attempts: 2},
	}}
	writer := &fakeRecordWriter{callLogErr: errors.New("platform still down")}

	rw := NewRetryWriter(store, writer, nil).WithBaseDelay(5 * time.Minute)
	rw.drain(context.Background())

	require.Len(t, store.retried, 1)
	assert.Equal(t, id, store.retried[0])
	assert.Empty(t, store.delivered)

	// Third attempt backs off to baseDelay * 2^2.
	expected := time.Now().Add(20 * time.Minute)
	assert.WithinDuration(t, expected, store.nextRetry[0], 5*time.Second)
}

func TestRetryWriterConsumesUnknownKind(t *testing.T) {
	id := uuid.New()
	store := &fakeOutboxStore{due: []OutboxRecord{
		{ID: id, Kind: "unexpected", Payload: []byte(`{}`)},
	}}
	writer := &fakeRecordWriter{}

	NewRetryWriter(store, writer, nil).drain(context.Background())

	// Unknown kinds would otherwise loop forever.
	assert.Equal(t, []uuid.UUID{id}, store.delivered)
	assert.Empty(t, store.retried)
}

func TestRetryWriterDelayCap(t *testing.T) {
	rw := NewRetryWriter(&fakeOutboxStore{}, &fakeRecordWriter{}, nil)

	assert.Equal(t, 5*time.Minute, rw.nextDelay(0))
	assert.Equal(t, 40*time.Minute, rw.nextDelay(3))
	assert.Equal(t, 24*time.Hour, rw.nextDelay(12))
}

func TestRetryWriterListFailureIsNonFatal(t *testing.T) {
	store := &fakeOutboxStore{listErr: errors.New("connection refused")}
	writer := &fakeRecordWriter{}

	NewRetryWriter(store, writer, nil).drain(context.Background())

	assert.Empty(t, store.delivered)
	assert.Empty(t, store.retried)
}
