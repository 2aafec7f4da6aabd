package outbox

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"library/internal/domain"
	kafka_infra "library/internal/infrastructure/kafka"
	"library/internal/repository/outbox_repo"
)

const batchSize = 10

type Processor struct {
	db            *sql.DB
	outboxRepo    outbox_repo.OutboxRepository
	kafkaProducer kafka_infra.Producer
	topic         string
	pollInterval  time.Duration
	pollTimeout   time.Duration
	logger        *zap.Logger
}

func NewProcessor(
	db *sql.DB,
	outboxRepo outbox_repo.OutboxRepository,
	kafkaProducer kafka_infra.Producer,
	topic string,
	pollInterval time.Duration,
	pollTimeout time.Duration,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		db:            db,
		outboxRepo:    outboxRepo,
		kafkaProducer: kafkaProducer,
		topic:         topic,
		pollInterval:  pollInterval,
		pollTimeout:   pollTimeout,
		logger:        logger,
	}
}

// Start polls until ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Starting outbox processor...", zap.Duration("poll_interval", p.pollInterval))
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor context cancelled.")
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch publishes up to batchSize pending messages. Rows stay locked
// for the whole batch so concurrent processors skip them.
func (p *Processor) ProcessBatch(ctx context.Context) int {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		p.logger.Error("Failed to begin outbox transaction", zap.Error(err))
		return 0
	}
	defer tx.Rollback()

	queryCtx, cancel := context.WithTimeout(ctx, p.pollTimeout)
	messages, err := p.outboxRepo.GetPendingMessages(queryCtx, tx, batchSize)
	cancel()
	if err != nil {
		p.logger.Error("Failed to get pending outbox messages", zap.Error(err))
		return 0
	}
	if len(messages) == 0 {
		return 0
	}
	p.logger.Debug("Found pending outbox messages", zap.Int("count", len(messages)))

	sent := 0
	for _, msg := range messages {
		if err := p.kafkaProducer.Produce(ctx, msg.Key, p.topic, msg.Payload); err != nil {
			p.logger.Error("Failed to send outbox message to Kafka",
				zap.String("message_id", msg.ID),
				zap.String("topic", p.topic),
				zap.Error(err))
			continue
		}
		if err := p.outboxRepo.UpdateMessageStatusTx(ctx, tx, msg.ID, domain.OutboxStatusSent); err != nil {
			p.logger.Error("Failed to update outbox message status to SENT", zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}
		sent++
	}

	if err := tx.Commit(); err != nil {
		p.logger.Error("Failed to commit outbox transaction", zap.Error(err))
		return 0
	}
	if sent > 0 {
		p.logger.Info("Outbox messages published", zap.Int("sent", sent), zap.String("topic", p.topic))
	}
	return sent
}
