package inbox_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"library/internal/domain"
)

type inboxRepository struct{}

func NewInboxRepository() InboxRepository {
	return &inboxRepository{}
}

// CreateMessageTx returns domain.ErrMessageAlreadyProcessed when the event id
// has been seen before.
func (r *inboxRepository) CreateMessageTx(ctx context.Context, querier domain.Querier, msg *domain.InboxMessage) error {
	query := `
		INSERT INTO inbox_messages (id, topic, payload, status, received_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := querier.ExecContext(ctx, query, msg.ID, msg.Topic, msg.Payload, msg.Status, msg.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to create inbox message %s: %w", msg.ID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for inbox insert: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrMessageAlreadyProcessed
	}
	return nil
}

func (r *inboxRepository) UpdateStatusTx(ctx context.Context, querier domain.Querier, id string, status domain.InboxMessageStatus) error {
	query := `
		UPDATE inbox_messages
		SET status = $1, processed_at = $2
		WHERE id = $3
	`
	var processedAt sql.NullTime
	if status == domain.InboxStatusProcessed || status == domain.InboxStatusFailed {
		processedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	res, err := querier.ExecContext(ctx, query, status, processedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update inbox message %s: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for inbox update: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no inbox message found with id %s to update status", id)
	}
	return nil
}
