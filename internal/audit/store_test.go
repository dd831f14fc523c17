package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"

	"github.com/clientcheck/followup-platform/internal/platform"
)

func TestStoreOutboxFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)

	payload := platform.CallLogRecord{
		ContactNumber:   "911234567890",
		CallType:        "missed",
		TimestampMillis: 1700000000000,
	}
	mock.ExpectExec("INSERT INTO audit_outbox").
		WithArgs(pgxmock.AnyArg(), KindCallLog, pgxmock.AnyArg(), "write timeout").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := store.Enqueue(context.Background(), KindCallLog, payload, "write timeout"); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	id := uuid.New()
	rows := pgxmock.NewRows([]string{"id", "kind", "payload", "attempts", "last_error", "next_retry_at"}).
		AddRow(id, KindCallLog, []byte(`{"contact_number":"911234567890"}`), 2, "write timeout", nil)
	mock.ExpectQuery("SELECT id, kind, payload").
		WithArgs(5, 25).
		WillReturnRows(rows)

	due, err := store.ListDue(context.Background(), 25, 5)
	if err != nil {
		t.Fatalf("list due failed: %v", err)
	}
	if len(due) != 1 || due[0].ID != id {
		t.Fatalf("unexpected due records: %#v", due)
	}
	if due[0].Attempts != 2 || due[0].NextRetryAt != nil {
		t.Fatalf("unexpected record state: %#v", due[0])
	}

	next := time.Now().Add(10 * time.Minute)
	mock.ExpectExec("UPDATE audit_outbox").
		WithArgs(id, "still down", next).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := store.ScheduleRetry(context.Background(), id, "still down", next); err != nil {
		t.Fatalf("schedule retry failed: %v", err)
	}

	mock.ExpectExec("DELETE FROM audit_outbox").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	if err := store.MarkDelivered(context.Background(), id); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreListDueParsesNextRetry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)

	id := uuid.New()
	retryAt := time.Now().Add(-time.Minute).UTC()
	rows := pgxmock.NewRows([]string{"id", "kind", "payload", "attempts", "last_error", "next_retry_at"}).
		AddRow(id, KindMessageSent, []byte(`{}`), 1, "timeout", retryAt)
	mock.ExpectQuery("SELECT id, kind, payload").
		WithArgs(5, 10).
		WillReturnRows(rows)

	due, err := store.ListDue(context.Background(), 10, 5)
	if err != nil {
		t.Fatalf("list due failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected one record, got %d", len(due))
	}
	if due[0].NextRetryAt == nil || !due[0].NextRetryAt.Equal(retryAt) {
		t.Fatalf("unexpected next retry: %#v", due[0].NextRetryAt)
	}
}

func TestNewStoreNilPool(t *testing.T) {
	if store := NewStore(nil); store != nil {
		t.Fatalf("expected nil store for nil pool, got %#v", store)
	}
}
