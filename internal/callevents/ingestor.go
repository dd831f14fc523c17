package callevents

import (
	"context"

	"github.com/clientcheck/followup-platform/internal/observability/metrics"
	"github.com/clientcheck/followup-platform/pkg/logging"
)

// PromptSink receives newly seen, validated, classified calls. Duplicate and
// malformed records never reach it.
type PromptSink interface {
	HandleCall(ctx context.Context, installationID string, call AnalyzedCall) error
}

// Ingestor runs the ingest pipeline: shape validation, dedup, classification,
// then exactly one sink invocation per distinct event.
type Ingestor struct {
	window  *DedupWindow
	sink    PromptSink
	metrics *metrics.FollowupMetrics
	logger  *logging.Logger
}

func NewIngestor(window *DedupWindow, sink PromptSink, m *metrics.FollowupMetrics, logger *logging.Logger) *Ingestor {
	if window == nil {
		window = NewDedupWindow(0)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Ingestor{
		window:  window,
		sink:    sink,
		metrics: m,
		logger:  logger,
	}
}

// Ingest processes one raw device payload. Malformed and duplicate records
// are dropped without error; classification noise is not worth surfacing.
func (i *Ingestor) Ingest(ctx context.Context, installationID string, payload []byte) error {
	rec, ok := ParseRawRecord(payload)
	if !ok {
		i.metrics.ObserveIngest("", "malformed")
		i.logger.Debug("dropping malformed call record", "installation_id", installationID)
		return nil
	}

	if !i.window.Observe(installationID, rec.Number, rec.TimestampMillis) {
		i.metrics.ObserveIngest("", "duplicate")
		i.logger.Debug("dropping duplicate call record",
			"installation_id", installationID,
			"timestamp_millis", rec.TimestampMillis,
		)
		return nil
	}

	call := Classify(rec)
	i.metrics.ObserveIngest(string(call.Type), "accepted")

	if i.sink == nil {
		return nil
	}
	if err := i.sink.HandleCall(ctx, installationID, call); err != nil {
		i.logger.Error("prompt sink failed",
			"error", err,
			"installation_id", installationID,
			"call_type", call.Type,
		)
		return err
	}
	return nil
}
