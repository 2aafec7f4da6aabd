package payments_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"library/internal/domain"
)

const uniqueViolation = pq.ErrorCode("23505")

type paymentRepository struct{}

func NewPaymentRepository() PaymentRepository {
	return &paymentRepository{}
}

func (r *paymentRepository) CreateTx(ctx context.Context, querier domain.Querier, payment *domain.PaymentRecord) error {
	query := `
		INSERT INTO payments (id, user_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := querier.ExecContext(ctx, query,
		payment.ID,
		payment.UserID,
		payment.Amount,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to create payment %s: %w", payment.ID, err)
	}
	return nil
}

func (r *paymentRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.PaymentRecord, error) {
	query := `
		SELECT id, user_id, amount, status, created_at, updated_at
		FROM payments
		WHERE id = $1
	`
	payment := &domain.PaymentRecord{}
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&payment.ID,
		&payment.UserID,
		&payment.Amount,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by id %s: %w", id, err)
	}
	return payment, nil
}

func (r *paymentRepository) ListByUserTx(ctx context.Context, querier domain.Querier, userID string, limit int) ([]domain.PaymentRecord, error) {
	query := `
		SELECT id, user_id, amount, status, created_at, updated_at
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := querier.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for user %s: %w", userID, err)
	}
	defer rows.Close()

	payments := []domain.PaymentRecord{}
	for rows.Next() {
		var p domain.PaymentRecord
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return payments, nil
}

// MarkTerminalTx moves a PENDING payment to status. A payment that is no
// longer PENDING is left alone and ErrPaymentAlreadyFinalized is returned.
func (r *paymentRepository) MarkTerminalTx(ctx context.Context, querier domain.Querier, id string, status domain.PaymentStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}
	query := `
		UPDATE payments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := querier.ExecContext(ctx, query, string(status), time.Now().UTC(), id, string(domain.PaymentStatusPending))
	if err != nil {
		return fmt.Errorf("failed to update payment status %s: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for payment status update: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrPaymentAlreadyFinalized
	}
	return nil
}
