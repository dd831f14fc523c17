// Package audit persists failed remote audit writes so the follow-up can
// still reach the user while the platform backend is down, and replays the
// writes later.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Record kinds replayed against the platform API.
const (
	KindCallLog     = "call_log"
	KindMessageSent = "message_sent"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists the audit outbox in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

// OutboxRecord is one pending remote write.
type OutboxRecord struct {
	ID          uuid.UUID
	Kind        string
	Payload     []byte
	Attempts    int
	LastError   string
	NextRetryAt *time.Time
}

// Enqueue stores a failed remote write for later replay.
func (s *Store) Enqueue(ctx context.Context, kind string, payload any, lastError string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("audit: marshal outbox payload: %w", err)
	}
	query := `
		INSERT INTO audit_outbox (id, kind, payload, attempts, last_error, next_retry_at)
		VALUES ($1, $2, $3, 0, $4, now())
	`
	if _, err := s.pool.Exec(ctx, query, uuid.New(), kind, body, lastError); err != nil {
		return fmt.Errorf("audit: enqueue outbox record: %w", err)
	}
	return nil
}

// ListDue returns records ready for another delivery attempt.
func (s *Store) ListDue(ctx context.Context, limit int, maxAttempts int) ([]OutboxRecord, error) {
	query := `
		SELECT id, kind, payload, attempts, last_error, next_retry_at
		FROM audit_outbox
		WHERE attempts < $1
			AND (next_retry_at IS NULL OR next_retry_at <= now())
		ORDER BY next_retry_at NULLS FIRST, created_at
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list due outbox records: %w", err)
	}
	defer rows.Close()

	var out []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		var nextRetry sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Payload, &rec.Attempts, &rec.LastError, &nextRetry); err != nil {
			return nil, fmt.Errorf("audit: scan outbox record: %w", err)
		}
		if nextRetry.Valid {
			value := nextRetry.Time
			rec.NextRetryAt = &value
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ScheduleRetry bumps the attempt counter and sets the next delivery time.
func (s *Store) ScheduleRetry(ctx context.Context, id uuid.UUID, lastError string, nextRetry time.Time) error {
	query := `
		UPDATE audit_outbox
		SET attempts = attempts + 1,
			last_error = $2,
			next_retry_at = $3
		WHERE id = $1
	`
	if _, err := s.pool.Exec(ctx, query, id, lastError, nextRetry); err != nil {
		return fmt.Errorf("audit: schedule outbox retry: %w", err)
	}
	return nil
}

// MarkDelivered removes a successfully replayed record.
func (s *Store) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM audit_outbox WHERE id = $1`, id); err != nil {
		return fmt.Errorf("audit: mark outbox delivered: %w", err)
	}
	return nil
}
