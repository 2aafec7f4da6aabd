package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// FineAccruedEvent is published by the circulation system when a fine is charged.
type FineAccruedEvent struct {
	EventID   string          `json:"event_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Timestamp time.Time       `json:"timestamp"`
}

const MessageTypePaymentStatus = "FinePaymentStatusChanged"

type FinePaymentStatusEvent struct {
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	GatewayCode   string          `json:"gateway_code,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}
