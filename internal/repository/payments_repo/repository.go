package payments_repo

import (
	"context"

	"library/internal/domain"
)

type PaymentRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, payment *domain.PaymentRecord) error
	GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.PaymentRecord, error)
	ListByUserTx(ctx context.Context, querier domain.Querier, userID string, limit int) ([]domain.PaymentRecord, error)
	MarkTerminalTx(ctx context.Context, querier domain.Querier, id string, status domain.PaymentStatus) error
}
