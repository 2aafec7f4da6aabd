package domain

import (
	"errors"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrDuplicateTransaction    = errors.New("transaction id already used")
	ErrInvalidTransactionID    = errors.New("invalid transaction id")
	ErrPaymentAlreadyFinalized = errors.New("payment already in a terminal state")
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

// PaymentRecord tracks one fine payment attempt. ID is the caller-supplied
// transaction id and Amount never changes after creation.
type PaymentRecord struct {
	ID        string
	UserID    string
	Amount    decimal.Decimal
	Status    PaymentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPaymentRecord(transactionID, userID string, amount decimal.Decimal) (*PaymentRecord, error) {
	if err := ValidateTransactionID(transactionID); err != nil {
		return nil, err
	}
	if userID == "" || amount.IsNegative() {
		return nil, errors.New("invalid payment data")
	}
	now := time.Now().UTC()
	return &PaymentRecord{
		ID:        transactionID,
		UserID:    userID,
		Amount:    amount,
		Status:    PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MaxTransactionIDLength is the longest merchant transaction id the gateway accepts.
const MaxTransactionIDLength = 35

var transactionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func ValidateTransactionID(id string) error {
	if id == "" || len(id) > MaxTransactionIDLength || !transactionIDPattern.MatchString(id) {
		return ErrInvalidTransactionID
	}
	return nil
}

// MinorUnits converts a decimal amount in whole currency units to the
// integer smallest-unit amount the gateway expects.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
