package domain

import (
	"errors"
	"time"
)

var ErrMessageAlreadyProcessed = errors.New("inbox message already processed")

type InboxMessageStatus string

const (
	InboxStatusNew       InboxMessageStatus = "NEW"
	InboxStatusProcessed InboxMessageStatus = "PROCESSED"
	InboxStatusFailed    InboxMessageStatus = "FAILED"
)

// InboxMessage records a consumed Kafka event so redelivery is applied once.
type InboxMessage struct {
	ID          string
	Topic       string
	Payload     []byte
	Status      InboxMessageStatus
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}
