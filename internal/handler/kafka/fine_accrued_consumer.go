package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"library/internal/app/users"
	"library/internal/domain/event"
	kafka_infra "library/internal/infrastructure/kafka"
)

// FineAccruedMessageHandler applies fine events to user balances. Messages
// that cannot be decoded are logged and acknowledged.
func FineAccruedMessageHandler(userService users.UserService, logger *zap.Logger) kafka_infra.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		logger.Debug("Received fine event",
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.String("key", string(msg.Key)),
		)

		var evt event.FineAccruedEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("Failed to unmarshal FineAccruedEvent",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			return nil
		}
		if evt.EventID == "" || evt.UserID == "" {
			logger.Error("FineAccruedEvent without event_id or user_id",
				zap.ByteString("value", msg.Value),
				zap.Int64("offset", msg.Offset))
			return nil
		}

		if err := userService.ProcessIncomingFineAccruedEvent(ctx, evt.EventID, msg.Topic, evt.UserID, evt.Amount, msg.Value); err != nil {
			return fmt.Errorf("failed to process fine event %s: %w", evt.EventID, err)
		}
		return nil
	}
}
