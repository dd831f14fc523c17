package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/clientcheck/followup-platform/internal/platform"
	"github.com/clientcheck/followup-platform/pkg/logging"
)

type outboxStore interface {
	ListDue(ctx context.Context, limit int, maxAttempts int) ([]OutboxRecord, error)
	ScheduleRetry(ctx context.Context, id uuid.UUID, lastError string, nextRetry time.Time) error
	MarkDelivered(ctx context.Context, id uuid.UUID) error
}

type recordWriter interface {
	WriteCallLog(ctx context.Context, rec platform.CallLogRecord) error
	WriteMessageSent(ctx context.Context, rec platform.MessageSentRecord) error
}

// RetryWriter replays queued audit records against the platform API until
// they succeed or exhaust their attempts.
type RetryWriter struct {
	store       outboxStore
	writer      recordWriter
	logger      *logging.Logger
	maxAttempts int
	baseDelay   time.Duration
	interval    time.Duration
	batchSize   int
}

func NewRetryWriter(store outboxStore, writer recordWriter, logger *logging.Logger) *RetryWriter {
	if logger == nil {
		logger = logging.Default()
	}
	return &RetryWriter{
		store:       store,
		writer:      writer,
		logger:      logger,
		maxAttempts: 5,
		baseDelay:   5 * time.Minute,
		interval:    1 * time.Minute,
		batchSize:   25,
	}
}

func (r *RetryWriter) WithMaxAttempts(n int) *RetryWriter {
	if n > 0 {
		r.maxAttempts = n
	}
	return r
}

func (r *RetryWriter) WithBaseDelay(d time.Duration) *RetryWriter {
	if d > 0 {
		r.baseDelay = d
	}
	return r
}

func (r *RetryWriter) WithInterval(d time.Duration) *RetryWriter {
	if d > 0 {
		r.interval = d
	}
	return r
}

func (r *RetryWriter) WithBatchSize(n int) *RetryWriter {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

func (r *RetryWriter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

func (r *RetryWriter) drain(ctx context.Context) {
	if r.store == nil || r.writer == nil {
		return
	}
	recs, err := r.store.ListDue(ctx, r.batchSize, r.maxAttempts)
	if err != nil {
		r.logger.Error("outbox fetch failed", "error", err)
		return
	}
	for _, rec := range recs {
		if err := r.deliver(ctx, rec); err != nil {
			next := r.nextDelay(rec.Attempts)
			if err := r.store.ScheduleRetry(ctx, rec.ID, err.Error(), time.Now().Add(next)); err != nil {
				r.logger.Error("schedule outbox retry failed", "error", err, "record_id", rec.ID)
			}
			continue
		}
		if err := r.store.MarkDelivered(ctx, rec.ID); err != nil {
			r.logger.Error("mark outbox delivered failed", "error", err, "record_id", rec.ID)
		}
	}
}

func (r *RetryWriter) deliver(ctx context.Context, rec OutboxRecord) error {
	switch rec.Kind {
	case KindCallLog:
		var payload platform.CallLogRecord
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return err
		}
		return r.writer.WriteCallLog(ctx, payload)
	case KindMessageSent:
		var payload platform.MessageSentRecord
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return err
		}
		return r.writer.WriteMessageSent(ctx, payload)
	default:
		r.logger.Warn("unknown outbox record kind", "kind", rec.Kind, "record_id", rec.ID)
		return nil
	}
}

func (r *RetryWriter) nextDelay(attempts int) time.Duration {
	delay := r.baseDelay * time.Duration(1<<attempts)
	if delay > 24*time.Hour {
		delay = 24 * time.Hour
	}
	return delay
}
