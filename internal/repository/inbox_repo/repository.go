package inbox_repo

import (
	"context"

	"library/internal/domain"
)

type InboxRepository interface {
	CreateMessageTx(ctx context.Context, querier domain.Querier, msg *domain.InboxMessage) error
	UpdateStatusTx(ctx context.Context, querier domain.Querier, id string, status domain.InboxMessageStatus) error
}
