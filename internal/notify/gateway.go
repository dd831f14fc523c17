// Package notify renders and resolves the "is this a client?" decision
// prompts shown after qualifying calls.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clientcheck/followup-platform/internal/callevents"
	"github.com/clientcheck/followup-platform/internal/observability/metrics"
	"github.com/clientcheck/followup-platform/pkg/logging"
)

// Action ids delivered back by the push subsystem when the user responds.
const (
	ActionNoClient     = "no_client"
	ActionSendWhatsApp = "send_whatsapp"
	ActionSendSMS      = "send_sms"
)

// payloadKind discriminates client-check payloads from any other
// notification the push subsystem may deliver.
const payloadKind = "client_check"

const (
	dataKeyKind = "kind"
	dataKeyCall = "call"
)

// Action is a button rendered on the decision prompt.
type Action struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Notification is the push payload handed to the Pusher.
type Notification struct {
	ID      string            `json:"id"`
	Channel string            `json:"channel"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Actions []Action          `json:"actions"`
	Data    map[string]string `json:"data"`
}

// Pusher displays and cancels notifications on a device.
type Pusher interface {
	Display(ctx context.Context, installationID string, n Notification) error
	Cancel(ctx context.Context, installationID, notificationID string) error
}

// Gateway builds decision prompts for analyzed calls. The notification id is
// derived from the call timestamp, so re-displaying the same call is
// idempotent on the device side.
type Gateway struct {
	pusher  Pusher
	channel string
	metrics *metrics.FollowupMetrics
	logger  *logging.Logger
}

func NewGateway(pusher Pusher, channel string, m *metrics.FollowupMetrics, logger *logging.Logger) *Gateway {
	if pusher == nil {
		panic("notify: pusher cannot be nil")
	}
	if channel == "" {
		channel = "client-check"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Gateway{pusher: pusher, channel: channel, metrics: m, logger: logger}
}

// NotificationID derives the deterministic prompt id for a call timestamp.
func NotificationID(timestampMillis int64) string {
	return fmt.Sprintf("client_check_%d", timestampMillis)
}

// Display shows the decision prompt for a call and returns the notification
// id that later action events will reference.
func (g *Gateway) Display(ctx context.Context, installationID string, call callevents.AnalyzedCall) (string, error) {
	data, err := EncodeCallPayload(call)
	if err != nil {
		return "", err
	}

	n := Notification{
		ID:      NotificationID(call.TimestampMillis),
		Channel: g.channel,
		Title:   promptTitle(call),
		Body:    fmt.Sprintf("Follow up with %s?", call.Number),
		Actions: []Action{
			{ID: ActionSendWhatsApp, Title: "Send WhatsApp"},
			{ID: ActionSendSMS, Title: "Send SMS"},
			{ID: ActionNoClient, Title: "Not a client"},
		},
		Data: data,
	}

	if err := g.pusher.Display(ctx, installationID, n); err != nil {
		return "", fmt.Errorf("notify: display prompt: %w", err)
	}
	g.metrics.ObservePrompt(string(call.Type))
	g.logger.Info("decision prompt displayed",
		"installation_id", installationID,
		"notification_id", n.ID,
		"call_type", call.Type,
	)
	return n.ID, nil
}

// Cancel removes a prompt once it has been resolved. Cancelling an already
// dismissed notification is harmless; the push subsystem treats it as a no-op.
func (g *Gateway) Cancel(ctx context.Context, installationID, notificationID string) error {
	if err := g.pusher.Cancel(ctx, installationID, notificationID); err != nil {
		return fmt.Errorf("notify: cancel prompt: %w", err)
	}
	return nil
}

// EncodeCallPayload serializes an AnalyzedCall into the notification's opaque
// data map, tagged so the background pipeline can recognize it.
func EncodeCallPayload(call callevents.AnalyzedCall) (map[string]string, error) {
	body, err := json.Marshal(call)
	if err != nil {
		return nil, fmt.Errorf("notify: encode call payload: %w", err)
	}
	return map[string]string{
		dataKeyKind: payloadKind,
		dataKeyCall: string(body),
	}, nil
}

// DecodeCallPayload recovers the AnalyzedCall from a notification data map.
// ok is false when the payload is absent, untagged, or malformed.
func DecodeCallPayload(data map[string]string) (callevents.AnalyzedCall, bool) {
	if data == nil || data[dataKeyKind] != payloadKind {
		return callevents.AnalyzedCall{}, false
	}
	raw := data[dataKeyCall]
	if raw == "" {
		return callevents.AnalyzedCall{}, false
	}
	var call callevents.AnalyzedCall
	if err := json.Unmarshal([]byte(raw), &call); err != nil {
		return callevents.AnalyzedCall{}, false
	}
	if call.Number == "" {
		return callevents.AnalyzedCall{}, false
	}
	return call, true
}

func promptTitle(call callevents.AnalyzedCall) string {
	switch call.Type {
	case callevents.CallMissed:
		return "Missed call from a possible client"
	case callevents.CallRejected:
		return "Rejected call from a possible client"
	case callevents.CallOutgoing:
		return "Outgoing call ended, possible client"
	default:
		return "Call ended, possible client"
	}
}
