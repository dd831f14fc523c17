package followup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingQueue struct{}

func (failingQueue) Send(context.Context, string) error { return errors.New("queue unavailable") }
func (failingQueue) Receive(context.Context, int, int) ([]queueMessage, error) {
	return nil, nil
}
func (failingQueue) Delete(context.Context, string) error { return nil }

func postAction(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/notifications/actions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleAction(rec, req)
	return rec
}

func TestHandleActionAccepted(t *testing.T) {
	queue := NewMemoryQueue(4)
	h := NewHandler(NewPublisher(queue), nil)

	body := `{
		"notification_id": "client_check_1700000000000",
		"action_id": "send_whatsapp",
		"installation_id": "inst-1",
		"session_token": "token",
		"data": {"kind": "client_check"}
	}`
	rec := postAction(t, h, body)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status": "accepted"}`, rec.Body.String())

	messages, err := queue.Receive(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Body, "client_check_1700000000000")
}

func TestHandleActionRejectsBadInput(t *testing.T) {
	h := NewHandler(NewPublisher(NewMemoryQueue(4)), nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"missing notification id", `{"action_id": "send_sms", "installation_id": "inst-1"}`},
		{"missing action id", `{"notification_id": "client_check_1", "installation_id": "inst-1"}`},
		{"missing installation id", `{"notification_id": "client_check_1", "action_id": "send_sms"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postAction(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleActionQueueFailure(t *testing.T) {
	h := NewHandler(NewPublisher(failingQueue{}), nil)

	body := `{"notification_id": "client_check_1", "action_id": "no_client", "installation_id": "inst-1"}`
	rec := postAction(t, h, body)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
