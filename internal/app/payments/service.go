package payments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"library/internal/domain"
	"library/internal/domain/event"
	"library/internal/gateway"
	"library/internal/repository/outbox_repo"
	"library/internal/repository/payments_repo"
	"library/internal/repository/users_repo"
)

// Gateway is the part of the payment gateway client the service needs.
type Gateway interface {
	Initiate(ctx context.Context, req gateway.PayRequest) (*gateway.PayResponse, error)
	CheckStatus(ctx context.Context, transactionID string) (*gateway.StatusResponse, error)
}

type PaymentService interface {
	InitiateFinePayment(ctx context.Context, userID, transactionID string) (*gateway.PayResponse, error)
	ReconcilePayment(ctx context.Context, transactionID string) (*domain.PaymentRecord, error)
	GetPayment(ctx context.Context, userID, transactionID string) (*domain.PaymentRecord, error)
	ListPayments(ctx context.Context, userID string) ([]domain.PaymentRecord, error)
}

type paymentService struct {
	db          *sql.DB
	userRepo    users_repo.UserRepository
	paymentRepo payments_repo.PaymentRepository
	outboxRepo  outbox_repo.OutboxRepository
	gateway     Gateway
	statusURL   string
	logger      *zap.Logger
}

const listLimit = 50

// NewPaymentService builds the fine payment flow. appBaseURL is where the
// gateway redirects the user and posts its callback.
func NewPaymentService(
	db *sql.DB,
	userRepo users_repo.UserRepository,
	paymentRepo payments_repo.PaymentRepository,
	outboxRepo outbox_repo.OutboxRepository,
	gw Gateway,
	appBaseURL string,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{
		db:          db,
		userRepo:    userRepo,
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		gateway:     gw,
		statusURL:   appBaseURL + "/api/payment/status",
		logger:      logger,
	}
}

func (s *paymentService) InitiateFinePayment(ctx context.Context, userID, transactionID string) (*gateway.PayResponse, error) {
	if err := domain.ValidateTransactionID(transactionID); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByIDTx(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Warn("Fine payment requested for unknown user", zap.String("user_id", userID))
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	// A zero fine is still a valid amount; hiding the button is the UI's job.
	record, err := domain.NewPaymentRecord(transactionID, user.ID, user.Fine)
	if err != nil {
		return nil, err
	}

	// The record must exist before the gateway sees the request so a status
	// check has something to reconcile even if the response never arrives.
	if err := s.paymentRepo.CreateTx(ctx, s.db, record); err != nil {
		if errors.Is(err, domain.ErrDuplicateTransaction) {
			s.logger.Warn("Transaction id reused", zap.String("transaction_id", transactionID), zap.String("user_id", userID))
			return nil, domain.ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("failed to create payment record %s: %w", transactionID, err)
	}
	s.logger.Info("Pending payment recorded",
		zap.String("transaction_id", transactionID),
		zap.String("user_id", user.ID),
		zap.String("amount", record.Amount.StringFixed(2)))

	callback := s.statusURL + "?id=" + url.QueryEscape(transactionID)
	req := gateway.PayRequest{
		MerchantTransactionID: transactionID,
		MerchantUserID:        user.ID,
		Amount:                domain.MinorUnits(record.Amount),
		RedirectURL:           callback,
		RedirectMode:          gateway.RedirectModePost,
		CallbackURL:           callback,
		PaymentInstrument:     gateway.PaymentInstrument{Type: gateway.InstrumentPayPage},
	}

	// A client disconnect must not abort a request the gateway may already be processing.
	resp, err := s.gateway.Initiate(context.WithoutCancel(ctx), req)
	if err != nil {
		s.logger.Error("Gateway call failed, payment left pending",
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func (s *paymentService) ReconcilePayment(ctx context.Context, transactionID string) (*domain.PaymentRecord, error) {
	if err := domain.ValidateTransactionID(transactionID); err != nil {
		return nil, err
	}

	record, err := s.paymentRepo.GetByIDTx(ctx, s.db, transactionID)
	if err != nil {
		return nil, err
	}
	if record.Status.IsTerminal() {
		return record, nil
	}

	status, err := s.gateway.CheckStatus(ctx, transactionID)
	if err != nil {
		s.logger.Error("Gateway status check failed", zap.String("transaction_id", transactionID), zap.Error(err))
		return nil, err
	}

	next := statusFromGatewayCode(status.Code)
	if next == domain.PaymentStatusPending {
		s.logger.Info("Payment still pending at gateway", zap.String("transaction_id", transactionID))
		return record, nil
	}
	if next == domain.PaymentStatusSuccess {
		if err := checkSettledAmount(record, status); err != nil {
			// The fine is only cleared for the exact amount that was requested.
			s.logger.Error("Gateway reported success for a different payment, marking failed",
				zap.String("transaction_id", transactionID),
				zap.Int64("expected_amount", domain.MinorUnits(record.Amount)),
				zap.Error(err))
			next = domain.PaymentStatusFailed
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := s.applyTerminalStatusTx(ctx, tx, record, next, status.Code); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back reconciliation", zap.String("transaction_id", transactionID), zap.Error(rbErr))
		}
		if errors.Is(err, domain.ErrPaymentAlreadyFinalized) {
			// Another callback won the race; report what it stored.
			return s.paymentRepo.GetByIDTx(ctx, s.db, transactionID)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reconciliation for %s: %w", transactionID, err)
	}

	s.logger.Info("Payment reconciled",
		zap.String("transaction_id", transactionID),
		zap.String("status", string(next)),
		zap.String("gateway_code", status.Code))

	record.Status = next
	record.UpdatedAt = time.Now().UTC()
	return record, nil
}

func (s *paymentService) applyTerminalStatusTx(ctx context.Context, tx *sql.Tx, record *domain.PaymentRecord, next domain.PaymentStatus, code string) error {
	if err := s.paymentRepo.MarkTerminalTx(ctx, tx, record.ID, next); err != nil {
		return err
	}

	if next == domain.PaymentStatusSuccess {
		if err := s.userRepo.SettleFineTx(ctx, tx, record.UserID, record.Amount); err != nil {
			return fmt.Errorf("failed to settle fine for user %s: %w", record.UserID, err)
		}
	}

	now := time.Now().UTC()
	payload, err := json.Marshal(event.FinePaymentStatusEvent{
		TransactionID: record.ID,
		UserID:        record.UserID,
		Amount:        record.Amount,
		Status:        string(next),
		GatewayCode:   code,
		Timestamp:     now,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payment status event: %w", err)
	}

	msg := &domain.OutboxMessage{
		ID:            uuid.NewString(),
		AggregateID:   record.ID,
		AggregateType: "payment",
		MessageType:   event.MessageTypePaymentStatus,
		Key:           record.ID,
		Payload:       payload,
		Status:        domain.OutboxStatusPending,
		CreatedAt:     now,
	}
	if err := s.outboxRepo.CreateMessageTx(ctx, tx, msg); err != nil {
		return fmt.Errorf("failed to enqueue payment status event for %s: %w", record.ID, err)
	}
	return nil
}

func (s *paymentService) GetPayment(ctx context.Context, userID, transactionID string) (*domain.PaymentRecord, error) {
	record, err := s.paymentRepo.GetByIDTx(ctx, s.db, transactionID)
	if err != nil {
		return nil, err
	}
	// Someone else's payment is reported as missing.
	if record.UserID != userID {
		return nil, domain.ErrPaymentNotFound
	}
	return record, nil
}

func (s *paymentService) ListPayments(ctx context.Context, userID string) ([]domain.PaymentRecord, error) {
	return s.paymentRepo.ListByUserTx(ctx, s.db, userID, listLimit)
}

func checkSettledAmount(record *domain.PaymentRecord, status *gateway.StatusResponse) error {
	if status.Data == nil {
		return errors.New("status response has no data")
	}
	if status.Data.MerchantTransactionID != record.ID {
		return fmt.Errorf("status is for transaction %q", status.Data.MerchantTransactionID)
	}
	if want := domain.MinorUnits(record.Amount); status.Data.Amount != want {
		return fmt.Errorf("paid amount %d, requested %d", status.Data.Amount, want)
	}
	return nil
}

func statusFromGatewayCode(code string) domain.PaymentStatus {
	switch code {
	case gateway.CodePaymentSuccess:
		return domain.PaymentStatusSuccess
	case gateway.CodePaymentPending, gateway.CodeInternalFailure:
		return domain.PaymentStatusPending
	default:
		return domain.PaymentStatusFailed
	}
}
