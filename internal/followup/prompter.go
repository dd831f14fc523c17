package followup

import (
	"context"

	"github.com/clientcheck/followup-platform/internal/callevents"
	"github.com/clientcheck/followup-platform/internal/observability/metrics"
	"github.com/clientcheck/followup-platform/pkg/logging"
)

type promptStore interface {
	IsBlacklisted(ctx context.Context, installationID, number string) (bool, error)
	MinCallDuration(ctx context.Context, installationID string) (int, error)
}

type promptDisplayer interface {
	Display(ctx context.Context, installationID string, call callevents.AnalyzedCall) (string, error)
}

// Prompter decides whether an analyzed call deserves a decision prompt and
// displays one when it does. Blacklisted numbers, calls below the minimum
// duration, and calls of unknown type are dropped silently.
type Prompter struct {
	store   promptStore
	display promptDisplayer
	metrics *metrics.FollowupMetrics
	logger  *logging.Logger
}

func NewPrompter(store promptStore, display promptDisplayer, m *metrics.FollowupMetrics, logger *logging.Logger) *Prompter {
	if store == nil {
		panic("followup: prompt store cannot be nil")
	}
	if display == nil {
		panic("followup: displayer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Prompter{
		store:   store,
		display: display,
		metrics: m,
		logger:  logger,
	}
}

var _ callevents.PromptSink = (*Prompter)(nil)

// HandleCall runs the qualification checks and shows the decision prompt.
// A store failure on the blacklist check suppresses the prompt rather than
// risking a prompt for a number the user already opted out of.
func (p *Prompter) HandleCall(ctx context.Context, installationID string, call callevents.AnalyzedCall) error {
	if call.Type == callevents.CallUnknown {
		p.logger.Debug("skipping call of unknown type", "number", call.Number)
		return nil
	}

	blacklisted, err := p.store.IsBlacklisted(ctx, installationID, call.Number)
	if err != nil {
		return err
	}
	if blacklisted {
		p.logger.Debug("skipping blacklisted number", "number", call.Number)
		return nil
	}

	minDuration, err := p.store.MinCallDuration(ctx, installationID)
	if err != nil {
		return err
	}
	if call.Type != callevents.CallMissed && call.Type != callevents.CallRejected && call.DurationSeconds < minDuration {
		p.logger.Debug("skipping short call",
			"number", call.Number,
			"duration_seconds", call.DurationSeconds,
			"min_duration_seconds", minDuration)
		return nil
	}

	// The displayer owns the prompt metric; counting here too would double
	// every prompt.
	notificationID, err := p.display.Display(ctx, installationID, call)
	if err != nil {
		return err
	}
	p.logger.Info("decision prompt displayed",
		"notification_id", notificationID,
		"call_type", call.Type,
		"number", call.Number)
	return nil
}
