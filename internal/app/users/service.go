package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"library/internal/domain"
	"library/internal/repository/inbox_repo"
	"library/internal/repository/users_repo"
)

type UserService interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	GetUserAs(ctx context.Context, callerID, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, callerID, userID string, upd domain.ProfileUpdate) (*domain.User, error)
	ProcessIncomingFineAccruedEvent(ctx context.Context, eventID, topic, userID string, amount decimal.Decimal, rawPayload []byte) error
}

type userService struct {
	db        *sql.DB
	userRepo  users_repo.UserRepository
	inboxRepo inbox_repo.InboxRepository
	logger    *zap.Logger
}

func NewUserService(db *sql.DB, userRepo users_repo.UserRepository, inboxRepo inbox_repo.InboxRepository, logger *zap.Logger) UserService {
	return &userService{
		db:        db,
		userRepo:  userRepo,
		inboxRepo: inboxRepo,
		logger:    logger,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByIDTx(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error("Failed to load user profile", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// GetUserAs returns userID's profile if the caller is that user or a librarian.
func (s *userService) GetUserAs(ctx context.Context, callerID, userID string) (*domain.User, error) {
	if callerID != userID {
		caller, err := s.userRepo.GetByIDTx(ctx, s.db, callerID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return nil, domain.ErrForbidden
			}
			return nil, err
		}
		if caller.Role != domain.UserRoleLibrarian {
			return nil, domain.ErrForbidden
		}
	}
	return s.GetProfile(ctx, userID)
}

// UpdateProfile applies the non-nil fields of upd. Only the owner may edit a
// profile.
func (s *userService) UpdateProfile(ctx context.Context, callerID, userID string, upd domain.ProfileUpdate) (*domain.User, error) {
	if callerID != userID {
		s.logger.Warn("Profile update for another user rejected",
			zap.String("caller_id", callerID),
			zap.String("user_id", userID))
		return nil, domain.ErrForbidden
	}
	if err := validateProfileUpdate(upd); err != nil {
		return nil, err
	}

	if !upd.IsEmpty() {
		if err := s.userRepo.UpdateProfileTx(ctx, s.db, userID, upd); err != nil {
			if !errors.Is(err, domain.ErrUserNotFound) {
				s.logger.Error("Failed to update profile", zap.String("user_id", userID), zap.Error(err))
			}
			return nil, err
		}
		s.logger.Info("Profile updated", zap.String("user_id", userID))
	}

	return s.userRepo.GetByIDTx(ctx, s.db, userID)
}

func validateProfileUpdate(upd domain.ProfileUpdate) error {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return fmt.Errorf("%w: name must not be blank", domain.ErrInvalidProfile)
	}
	if upd.ProfilePic != nil && *upd.ProfilePic != "" {
		u, err := url.Parse(*upd.ProfilePic)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: profilePic must be an absolute http(s) URL", domain.ErrInvalidProfile)
		}
	}
	return nil
}

// ProcessIncomingFineAccruedEvent records the event in the inbox and adds the
// amount to the user's fine in one transaction. A redelivered event is a no-op.
func (s *userService) ProcessIncomingFineAccruedEvent(ctx context.Context, eventID, topic, userID string, amount decimal.Decimal, rawPayload []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin inbox transaction", zap.String("event_id", eventID), zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic in inbox transaction, rolling back", zap.String("event_id", eventID), zap.Any("panic", r))
			tx.Rollback()
			panic(r)
		}
	}()

	inboxMsg := &domain.InboxMessage{
		ID:         eventID,
		Topic:      topic,
		Payload:    rawPayload,
		Status:     domain.InboxStatusNew,
		ReceivedAt: time.Now().UTC(),
	}
	if err := s.inboxRepo.CreateMessageTx(ctx, tx, inboxMsg); err != nil {
		s.rollback(tx, eventID)
		if errors.Is(err, domain.ErrMessageAlreadyProcessed) {
			s.logger.Info("Fine event already processed", zap.String("event_id", eventID), zap.String("user_id", userID))
			return nil
		}
		return fmt.Errorf("failed to record inbox message %s: %w", eventID, err)
	}

	status := domain.InboxStatusProcessed
	var applyErr error
	if !amount.IsPositive() {
		applyErr = fmt.Errorf("%w: got %s", domain.ErrInvalidFine, amount.String())
	} else {
		applyErr = s.userRepo.AddFineTx(ctx, tx, userID, amount)
	}
	if applyErr != nil {
		if !errors.Is(applyErr, domain.ErrInvalidFine) && !errors.Is(applyErr, domain.ErrUserNotFound) {
			s.rollback(tx, eventID)
			return fmt.Errorf("failed to add fine from event %s: %w", eventID, applyErr)
		}
		// Bad events are kept as FAILED so redelivery does not retry them.
		s.logger.Warn("Fine event rejected",
			zap.String("event_id", eventID),
			zap.String("user_id", userID),
			zap.Error(applyErr))
		status = domain.InboxStatusFailed
	}

	if err := s.inboxRepo.UpdateStatusTx(ctx, tx, eventID, status); err != nil {
		s.rollback(tx, eventID)
		return fmt.Errorf("failed to mark inbox message %s as %s: %w", eventID, status, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit inbox transaction", zap.String("event_id", eventID), zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if status == domain.InboxStatusProcessed {
		s.logger.Info("Fine accrued",
			zap.String("event_id", eventID),
			zap.String("user_id", userID),
			zap.String("amount", amount.StringFixed(2)))
	}
	return nil
}

func (s *userService) rollback(tx *sql.Tx, eventID string) {
	if err := tx.Rollback(); err != nil {
		s.logger.Error("Failed to roll back inbox transaction", zap.String("event_id", eventID), zap.Error(err))
	}
}
