// Package followup runs the decision pipeline behind the call prompt: it
// classifies incoming calls into decision prompts and turns the user's
// notification action into a blacklist entry or an outbound templated
// message.
package followup

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/clientcheck/followup-platform/internal/audit"
	"github.com/clientcheck/followup-platform/internal/auth"
	"github.com/clientcheck/followup-platform/internal/callevents"
	"github.com/clientcheck/followup-platform/internal/dispatch"
	"github.com/clientcheck/followup-platform/internal/notify"
	"github.com/clientcheck/followup-platform/internal/observability/metrics"
	"github.com/clientcheck/followup-platform/internal/platform"
	"github.com/clientcheck/followup-platform/pkg/logging"
)

var pipelineTracer = otel.Tracer("clientcheck.internal.followup")

type sessionVerifier interface {
	Verify(token string) (*auth.Session, error)
}

type stateStore interface {
	AddToBlacklist(ctx context.Context, installationID, number string) error
	RecordSentMessage(ctx context.Context, installationID, number string, at time.Time) error
}

type templateSource interface {
	Templates(ctx context.Context, role string) ([]platform.Template, error)
}

type recordSink interface {
	WriteCallLog(ctx context.Context, rec platform.CallLogRecord) error
	WriteMessageSent(ctx context.Context, rec platform.MessageSentRecord) error
}

type outboxEnqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any, lastError string) error
}

type notificationCanceller interface {
	Cancel(ctx context.Context, installationID, notificationID string) error
}

type messageSender interface {
	Send(ctx context.Context, installationID string, channel dispatch.Channel, number, message string) error
}

// Pipeline handles notification action presses. Every decided path through
// HandleAction ends with the notification cancelled, so the user is never
// re-prompted for a call already decided; unrecognized action ids leave the
// prompt standing.
type Pipeline struct {
	sessions   sessionVerifier
	state      stateStore
	templates  templateSource
	records    recordSink
	outbox     outboxEnqueuer
	notifier   notificationCanceller
	dispatcher messageSender
	metrics    *metrics.FollowupMetrics
	logger     *logging.Logger
	now        func() time.Time
}

func NewPipeline(
	sessions sessionVerifier,
	state stateStore,
	templates templateSource,
	records recordSink,
	notifier notificationCanceller,
	dispatcher messageSender,
	m *metrics.FollowupMetrics,
	logger *logging.Logger,
) *Pipeline {
	if sessions == nil {
		panic("followup: session verifier cannot be nil")
	}
	if state == nil {
		panic("followup: state store cannot be nil")
	}
	if notifier == nil {
		panic("followup: notifier cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		sessions:   sessions,
		state:      state,
		templates:  templates,
		records:    records,
		notifier:   notifier,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// WithOutbox routes failed remote audit writes into a persistent outbox for
// later replay. Without it failures are logged and dropped.
func (p *Pipeline) WithOutbox(outbox outboxEnqueuer) *Pipeline {
	p.outbox = outbox
	return p
}

// HandleAction runs the background decision pipeline for one action press.
//
// The session check is fail-closed: without a verifiable session the
// notification is cancelled and nothing else happens. Payloads that were
// not attached by our gateway are ignored without cancelling, since they
// belong to some other notification producer.
func (p *Pipeline) HandleAction(ctx context.Context, event ActionEvent) error {
	ctx, span := pipelineTracer.Start(ctx, "followup.HandleAction")
	defer span.End()

	started := p.now()
	defer func() {
		p.metrics.ObservePipelineLatency(event.ActionID, p.now().Sub(started).Seconds())
	}()

	session, err := p.sessions.Verify(event.SessionToken)
	if err != nil {
		p.logger.Warn("action without valid session",
			"notification_id", event.NotificationID,
			"error", err)
		p.metrics.ObserveAction(event.ActionID, "no_session")
		p.cancel(ctx, event.InstallationID, event.NotificationID)
		return nil
	}

	call, ok := notify.DecodeCallPayload(event.Data)
	if !ok {
		p.logger.Debug("ignoring action with foreign payload",
			"notification_id", event.NotificationID)
		p.metrics.ObserveAction(event.ActionID, "foreign_payload")
		return nil
	}

	switch event.ActionID {
	case notify.ActionNoClient:
		if err := p.state.AddToBlacklist(ctx, event.InstallationID, call.Number); err != nil {
			p.metrics.ObserveAction(event.ActionID, "error")
			p.cancel(ctx, event.InstallationID, event.NotificationID)
			return err
		}
		p.logger.Info("number blacklisted", "number", call.Number)
		p.metrics.ObserveAction(event.ActionID, "ok")
		p.cancel(ctx, event.InstallationID, event.NotificationID)
		return nil

	case notify.ActionSendWhatsApp:
		err := p.send(ctx, event, session, call, dispatch.ChannelWhatsApp)
		p.cancel(ctx, event.InstallationID, event.NotificationID)
		return err

	case notify.ActionSendSMS:
		err := p.send(ctx, event, session, call, dispatch.ChannelSMS)
		p.cancel(ctx, event.InstallationID, event.NotificationID)
		return err

	default:
		// An unrecognized action id mutates nothing and keeps the prompt up;
		// dismissing it would resolve a decision the user never made.
		p.logger.Warn("unknown action id", "action_id", event.ActionID)
		p.metrics.ObserveAction(event.ActionID, "unknown")
		return nil
	}
}

func (p *Pipeline) send(ctx context.Context, event ActionEvent, session *auth.Session, call callevents.AnalyzedCall, channel dispatch.Channel) error {
	templates, err := p.templates.Templates(ctx, session.Role)
	if err != nil {
		// Dispatch without a template set would invent message content, so
		// this is terminal for the action. The cancel still happens upstream.
		p.logger.Error("template fetch failed", "error", err, "role", session.Role)
		p.metrics.ObserveAction(event.ActionID, "template_fetch_failed")
		return err
	}

	tpl, found := SelectPrimary(templates, call.Type)
	if !found {
		// No primary template for this call type means no audit writes and
		// no outbound message; the prompt just resolves.
		p.logger.Info("no primary template", "call_type", call.Type)
		p.metrics.ObserveAction(event.ActionID, "no_primary")
		return nil
	}

	p.writeAuditRecords(ctx, call, tpl.Description)

	if err := p.dispatcher.Send(ctx, event.InstallationID, channel, call.Number, tpl.Description); err != nil {
		p.metrics.ObserveAction(event.ActionID, "dispatch_failed")
		return err
	}

	if err := p.state.RecordSentMessage(ctx, event.InstallationID, call.Number, p.now()); err != nil {
		p.logger.Error("sent-message ledger write failed", "error", err, "number", call.Number)
	}
	p.metrics.ObserveAction(event.ActionID, "ok")
	return nil
}

// writeAuditRecords writes the remote call-log and message-sent records.
// Failures never block dispatch: the message should still reach the user
// even when auditing is down, so failed writes go to the outbox instead.
func (p *Pipeline) writeAuditRecords(ctx context.Context, call callevents.AnalyzedCall, message string) {
	if p.records == nil {
		return
	}

	callLog := platform.CallLogRecord{
		ContactNumber:   call.Number,
		CallType:        string(call.Type),
		DurationSeconds: call.DurationSeconds,
		TimestampMillis: call.TimestampMillis,
	}
	if err := p.records.WriteCallLog(ctx, callLog); err != nil {
		p.logger.Error("call-log write failed", "error", err, "number", call.Number)
		p.enqueueOutbox(ctx, audit.KindCallLog, callLog, err)
	}

	sent := platform.MessageSentRecord{
		ContactNumber:   call.Number,
		MessageSent:     message,
		TimestampMillis: p.now().UnixMilli(),
	}
	if err := p.records.WriteMessageSent(ctx, sent); err != nil {
		p.logger.Error("message-sent write failed", "error", err, "number", call.Number)
		p.enqueueOutbox(ctx, audit.KindMessageSent, sent, err)
	}
}

func (p *Pipeline) enqueueOutbox(ctx context.Context, kind string, payload any, cause error) {
	if p.outbox == nil {
		return
	}
	if err := p.outbox.Enqueue(ctx, kind, payload, cause.Error()); err != nil {
		p.logger.Error("outbox enqueue failed", "error", err, "kind", kind)
	}
}

func (p *Pipeline) cancel(ctx context.Context, installationID, notificationID string) {
	if notificationID == "" {
		return
	}
	if err := p.notifier.Cancel(ctx, installationID, notificationID); err != nil {
		p.logger.Error("notification cancel failed",
			"error", err,
			"notification_id", notificationID)
	}
}
