// Package dispatch opens outbound messaging channels (WhatsApp, SMS) through
// deep links handed to the device agent.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clientcheck/followup-platform/internal/observability/metrics"
	"github.com/clientcheck/followup-platform/pkg/logging"
)

var dispatchTracer = otel.Tracer("clientcheck.internal.dispatch")

// Channel identifies an outbound messaging channel.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// ErrChannelUnavailable is reported by a LinkOpener when nothing on the
// device can handle the link.
var ErrChannelUnavailable = errors.New("dispatch: channel unavailable")

// LinkOpener invokes a deep link on the device. Implementations report
// ErrChannelUnavailable when the target app is not resolvable.
type LinkOpener interface {
	OpenLink(ctx context.Context, installationID, link string) error
}

// Dispatcher sends a follow-up message by opening the channel's compose
// link. Fire-and-forget: success means the channel was invoked, not that the
// message was delivered.
type Dispatcher struct {
	opener  LinkOpener
	metrics *metrics.FollowupMetrics
	logger  *logging.Logger
}

func NewDispatcher(opener LinkOpener, m *metrics.FollowupMetrics, logger *logging.Logger) *Dispatcher {
	if opener == nil {
		panic("dispatch: link opener cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{opener: opener, metrics: m, logger: logger}
}

// Send opens the channel's compose link for number with message prefilled.
// WhatsApp falls back to its web equivalent when the app is unavailable; SMS
// has no fallback and fails hard.
func (d *Dispatcher) Send(ctx context.Context, installationID string, channel Channel, number, message string) error {
	ctx, span := dispatchTracer.Start(ctx, "dispatch.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("clientcheck.channel", string(channel)),
		attribute.String("clientcheck.installation_id", installationID),
	)

	switch channel {
	case ChannelWhatsApp:
		return d.sendWhatsApp(ctx, installationID, number, message)
	case ChannelSMS:
		return d.sendSMS(ctx, installationID, number, message)
	default:
		err := fmt.Errorf("dispatch: unsupported channel %q", channel)
		span.RecordError(err)
		return err
	}
}

func (d *Dispatcher) sendWhatsApp(ctx context.Context, installationID, number, message string) error {
	link := WhatsAppDeepLink(number, message)
	err := d.opener.OpenLink(ctx, installationID, link)
	if err == nil {
		d.metrics.ObserveDispatch(string(ChannelWhatsApp), false, "sent")
		d.logger.Info("whatsapp channel invoked", "installation_id", installationID, "number", number)
		return nil
	}
	if !errors.Is(err, ErrChannelUnavailable) {
		d.metrics.ObserveDispatch(string(ChannelWhatsApp), false, "failed")
		return fmt.Errorf("dispatch: open whatsapp: %w", err)
	}

	// App missing on device; the public web client takes the same payload.
	webLink := WhatsAppWebLink(number, message)
	if err := d.opener.OpenLink(ctx, installationID, webLink); err != nil {
		d.metrics.ObserveDispatch(string(ChannelWhatsApp), true, "failed")
		return fmt.Errorf("dispatch: open whatsapp web fallback: %w", err)
	}
	d.metrics.ObserveDispatch(string(ChannelWhatsApp), true, "sent")
	d.logger.Info("whatsapp web fallback invoked", "installation_id", installationID, "number", number)
	return nil
}

func (d *Dispatcher) sendSMS(ctx context.Context, installationID, number, message string) error {
	link := SMSComposeLink(number, message)
	if err := d.opener.OpenLink(ctx, installationID, link); err != nil {
		d.metrics.ObserveDispatch(string(ChannelSMS), false, "failed")
		if errors.Is(err, ErrChannelUnavailable) {
			return fmt.Errorf("dispatch: sms compose unsupported: %w", err)
		}
		return fmt.Errorf("dispatch: open sms compose: %w", err)
	}
	d.metrics.ObserveDispatch(string(ChannelSMS), false, "sent")
	d.logger.Info("sms channel invoked", "installation_id", installationID, "number", number)
	return nil
}

// WhatsAppDeepLink builds the native WhatsApp compose link.
func WhatsAppDeepLink(number, message string) string {
	return fmt.Sprintf("whatsapp://send?phone=%s&text=%s", phoneDigits(number), url.QueryEscape(message))
}

// WhatsAppWebLink builds the public web equivalent of the deep link.
func WhatsAppWebLink(number, message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", phoneDigits(number), url.QueryEscape(message))
}

// SMSComposeLink builds the SMS compose intent link.
func SMSComposeLink(number, message string) string {
	return fmt.Sprintf("sms:%s?body=%s", strings.TrimSpace(number), url.QueryEscape(message))
}

// phoneDigits strips everything but digits; WhatsApp links take bare E.164
// digits without the plus.
func phoneDigits(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
