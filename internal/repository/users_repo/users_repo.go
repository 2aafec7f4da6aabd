package users_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"library/internal/domain"
)

type userRepository struct{}

func NewUserRepository() UserRepository {
	return &userRepository{}
}

func (r *userRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.User, error) {
	query := `
		SELECT id, name, email, phone, address, student_id, role, profile_pic, fine, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	user := &domain.User{}
	var phone, address, studentID, profilePic sql.NullString
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&phone,
		&address,
		&studentID,
		&user.Role,
		&profilePic,
		&user.Fine,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	user.Phone = nullableString(phone)
	user.Address = nullableString(address)
	user.StudentID = nullableString(studentID)
	user.ProfilePic = nullableString(profilePic)
	return user, nil
}

// UpdateProfileTx leaves nil fields untouched. An empty phone or address
// clears the stored value.
func (r *userRepository) UpdateProfileTx(ctx context.Context, querier domain.Querier, id string, upd domain.ProfileUpdate) error {
	query := `
		UPDATE users
		SET name = COALESCE($1, name),
		    phone = CASE WHEN $2::text IS NULL THEN phone ELSE NULLIF($2, '') END,
		    address = CASE WHEN $3::text IS NULL THEN address ELSE NULLIF($3, '') END,
		    profile_pic = COALESCE($4, profile_pic),
		    updated_at = $5
		WHERE id = $6
	`
	res, err := querier.ExecContext(ctx, query, upd.Name, upd.Phone, upd.Address, upd.ProfilePic, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update profile for user %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

func (r *userRepository) AddFineTx(ctx context.Context, querier domain.Querier, id string, amount decimal.Decimal) error {
	query := `
		UPDATE users
		SET fine = fine + $1, updated_at = $2
		WHERE id = $3
	`
	res, err := querier.ExecContext(ctx, query, amount, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to add fine for user %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

// SettleFineTx subtracts a paid amount. The fine never goes below zero.
func (r *userRepository) SettleFineTx(ctx context.Context, querier domain.Querier, id string, amount decimal.Decimal) error {
	query := `
		UPDATE users
		SET fine = GREATEST(fine - $1, 0), updated_at = $2
		WHERE id = $3
	`
	res, err := querier.ExecContext(ctx, query, amount, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to settle fine for user %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

func expectOneRow(res sql.Result, id string) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for user %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
