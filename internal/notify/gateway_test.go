package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clientcheck/followup-platform/internal/callevents"
	"github.com/clientcheck/followup-platform/internal/observability/metrics"
)

type fakePusher struct {
	displayed []Notification
	cancelled []string
	err       error
}

func (f *fakePusher) Display(_ context.Context, _ string, n Notification) error {
	if f.err != nil {
		return f.err
	}
	f.displayed = append(f.displayed, n)
	return nil
}

func (f *fakePusher) Cancel(_ context.Context, _, notificationID string) error {
	if f.err != nil {
		return f.err
	}
	f.cancelled = append(f.cancelled, notificationID)
	return nil
}

func TestNotificationIDIsDeterministic(t *testing.T) {
	assert.Equal(t, "client_check_1000", NotificationID(1000))
	assert.Equal(t, NotificationID(42), NotificationID(42))
}

func TestGatewayDisplay(t *testing.T) {
	pusher := &fakePusher{}
	g := NewGateway(pusher, "", nil, nil)
	call := callevents.AnalyzedCall{
		Type:            callevents.CallMissed,
		Number:          "+15550001",
		TimestampMillis: 1000,
	}

	id, err := g.Display(context.Background(), "install-1", call)
	require.NoError(t, err)
	assert.Equal(t, "client_check_1000", id)

	require.Len(t, pusher.displayed, 1)
	n := pusher.displayed[0]
	assert.Equal(t, "client-check", n.Channel)
	assert.Len(t, n.Actions, 3)

	actionIDs := []string{n.Actions[0].ID, n.Actions[1].ID, n.Actions[2].ID}
	assert.Contains(t, actionIDs, ActionSendWhatsApp)
	assert.Contains(t, actionIDs, ActionSendSMS)
	assert.Contains(t, actionIDs, ActionNoClient)

	decoded, ok := DecodeCallPayload(n.Data)
	require.True(t, ok)
	assert.Equal(t, call, decoded)
}

func TestGatewayCountsDisplayedPrompts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewFollowupMetrics(reg)
	g := NewGateway(&fakePusher{}, "", m, nil)

	_, err := g.Display(context.Background(), "install-1", callevents.AnalyzedCall{
		Type:            callevents.CallMissed,
		Number:          "+15550001",
		TimestampMillis: 1000,
	})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var count float64
	for _, family := range families {
		if family.GetName() != "clientcheck_notify_prompts_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			count += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), count)
}

func TestGatewayDisplayPusherError(t *testing.T) {
	g := NewGateway(&fakePusher{err: errors.New("push down")}, "", nil, nil)

	_, err := g.Display(context.Background(), "install-1", callevents.AnalyzedCall{
		Type:            callevents.CallIncoming,
		Number:          "+15550001",
		TimestampMillis: 2000,
	})
	assert.Error(t, err)
}

func TestGatewayCancel(t *testing.T) {
	pusher := &fakePusher{}
	g := NewGateway(pusher, "", nil, nil)

	require.NoError(t, g.Cancel(context.Background(), "install-1", "client_check_1000"))
	assert.Equal(t, []string{"client_check_1000"}, pusher.cancelled)
}

func TestDecodeCallPayloadRejectsForeignData(t *testing.T) {
	tests := []struct {
		name string
		data map[string]string
	}{
		{"nil map", nil},
		{"untagged", map[string]string{"call": `{"number":"+1555"}`}},
		{"wrong kind", map[string]string{"kind": "other", "call": `{"number":"+1555"}`}},
		{"missing call", map[string]string{"kind": "client_check"}},
		{"malformed call", map[string]string{"kind": "client_check", "call": `{{`}},
		{"empty number", map[string]string{"kind": "client_check", "call": `{"type":"missed","number":""}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := DecodeCallPayload(tt.data)
			assert.False(t, ok)
		})
	}
}
