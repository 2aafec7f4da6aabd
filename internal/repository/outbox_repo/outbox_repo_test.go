package outbox_repo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"library/internal/domain"
)

func TestOutboxRepository_GetPendingMessages(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	created := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs("PENDING", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "aggregate_id", "aggregate_type", "message_type", "key_value", "payload", "status", "created_at", "sent_at"}).
			AddRow("m1", "T1", "payment", "FinePaymentStatusChanged", "T1", []byte(`{"status":"SUCCESS"}`), "PENDING", created, nil))

	msgs, err := NewOutboxRepository().GetPendingMessages(context.Background(), db, 10)
	if err != nil {
		t.Fatalf("GetPendingMessages() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	m := msgs[0]
	if m.Key != "T1" || m.Status != domain.OutboxStatusPending || m.SentAt != nil || string(m.Payload) != `{"status":"SUCCESS"}` {
		t.Errorf("message = %+v", m)
	}
}

func TestOutboxRepository_CreateAndMarkSent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewOutboxRepository()

	msg := &domain.OutboxMessage{
		ID: "m1", AggregateID: "T1", AggregateType: "payment", MessageType: "FinePaymentStatusChanged",
		Key: "T1", Payload: []byte(`{}`), Status: domain.OutboxStatusPending, CreatedAt: time.Now().UTC(),
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_messages")).
		WithArgs("m1", "T1", "payment", "FinePaymentStatusChanged", "T1", []byte(`{}`), "PENDING", msg.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_messages")).
		WithArgs("SENT", sqlmock.AnyArg(), "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.CreateMessageTx(context.Background(), db, msg); err != nil {
		t.Fatalf("CreateMessageTx() error = %v", err)
	}
	if err := repo.UpdateMessageStatusTx(context.Background(), db, "m1", domain.OutboxStatusSent); err != nil {
		t.Fatalf("UpdateMessageStatusTx() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
