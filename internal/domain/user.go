package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidProfile = errors.New("invalid profile data")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidFine    = errors.New("fine amount must be positive")
)

type UserRole string

const (
	UserRoleUser      UserRole = "USER"
	UserRoleLibrarian UserRole = "LIBRARIAN"
)

type User struct {
	ID         string
	Name       string
	Email      string
	Phone      *string
	Address    *string
	StudentID  *string
	Role       UserRole
	ProfilePic *string
	Fine       decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProfileUpdate holds the user-editable fields. Nil means "leave unchanged".
type ProfileUpdate struct {
	Name       *string
	Phone      *string
	Address    *string
	ProfilePic *string
}

func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Phone == nil && u.Address == nil && u.ProfilePic == nil
}
