package users_repo

import (
	"context"

	"github.com/shopspring/decimal"

	"library/internal/domain"
)

type UserRepository interface {
	GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.User, error)
	UpdateProfileTx(ctx context.Context, querier domain.Querier, id string, upd domain.ProfileUpdate) error
	AddFineTx(ctx context.Context, querier domain.Querier, id string, amount decimal.Decimal) error
	SettleFineTx(ctx context.Context, querier domain.Querier, id string, amount decimal.Decimal) error
}
