package kafka_infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes one message. Returning an error leaves the offset
// uncommitted so the message is redelivered.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	logger  *zap.Logger
}

func NewConsumer(brokerURLs []string, topic, groupID string, handler MessageHandler, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokerURLs,
		GroupID:           groupID,
		Topic:             topic,
		MinBytes:          1,
		MaxBytes:          10e6,
		ReadBatchTimeout:  1 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		CommitInterval:    0,
		MaxAttempts:       3,
		Logger:            kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Debug(fmt.Sprintf(msg, args...)) }),
		ErrorLogger:       kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Error(fmt.Sprintf(msg, args...)) }),
	})

	return &Consumer{reader: reader, handler: handler, logger: logger}
}

// Consume blocks until ctx is cancelled or the reader is closed.
func (c *Consumer) Consume(ctx context.Context) error {
	topic := c.reader.Config().Topic
	c.logger.Info("Kafka consumer starting", zap.String("topic", topic), zap.String("group_id", c.reader.Config().GroupID))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, kafka.ErrGroupClosed) || errors.Is(err, io.EOF) {
				return err
			}
			c.logger.Error("Failed to fetch message from Kafka", zap.String("topic", topic), zap.Error(err))
			time.Sleep(1 * time.Second)
			continue
		}

		handleCtx, cancelHandler := context.WithTimeout(ctx, 25*time.Second)
		err = c.handler(handleCtx, m)
		cancelHandler()
		if err != nil {
			c.logger.Error("Error handling Kafka message, will not commit offset",
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
			continue
		}

		commitCtx, cancelCommit := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.reader.CommitMessages(commitCtx, m); err != nil {
			c.logger.Error("Failed to commit offset for message",
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}
		cancelCommit()
	}
}

func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka consumer reader", zap.Error(err), zap.String("topic", c.reader.Config().Topic))
		return fmt.Errorf("failed to close Kafka consumer reader: %w", err)
	}
	c.logger.Info("Kafka consumer reader closed.", zap.String("topic", c.reader.Config().Topic))
	return nil
}
