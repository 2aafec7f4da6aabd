package users

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"library/internal/domain"
)

type mockUserRepo struct {
	users      map[string]*domain.User
	updates    []domain.ProfileUpdate
	AddFineErr error
}

func (m *mockUserRepo) GetByIDTx(_ context.Context, _ domain.Querier, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) UpdateProfileTx(_ context.Context, _ domain.Querier, id string, upd domain.ProfileUpdate) error {
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	m.updates = append(m.updates, upd)
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = upd.Phone
	}
	if upd.Address != nil {
		u.Address = upd.Address
	}
	if upd.ProfilePic != nil {
		u.ProfilePic = upd.ProfilePic
	}
	return nil
}

func (m *mockUserRepo) AddFineTx(_ context.Context, _ domain.Querier, id string, amount decimal.Decimal) error {
	if m.AddFineErr != nil {
		return m.AddFineErr
	}
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Fine = u.Fine.Add(amount)
	return nil
}

func (m *mockUserRepo) SettleFineTx(context.Context, domain.Querier, string, decimal.Decimal) error {
	return nil
}

type mockInboxRepo struct {
	seen     map[string]domain.InboxMessageStatus
	statuses []domain.InboxMessageStatus
}

func newMockInboxRepo() *mockInboxRepo {
	return &mockInboxRepo{seen: map[string]domain.InboxMessageStatus{}}
}

func (m *mockInboxRepo) CreateMessageTx(_ context.Context, _ domain.Querier, msg *domain.InboxMessage) error {
	if _, ok := m.seen[msg.ID]; ok {
		return domain.ErrMessageAlreadyProcessed
	}
	m.seen[msg.ID] = msg.Status
	return nil
}

func (m *mockInboxRepo) UpdateStatusTx(_ context.Context, _ domain.Querier, id string, status domain.InboxMessageStatus) error {
	m.seen[id] = status
	m.statuses = append(m.statuses, status)
	return nil
}

func strPtr(s string) *string { return &s }

func newService(t *testing.T) (UserService, *mockUserRepo, *mockInboxRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := &mockUserRepo{users: map[string]*domain.User{
		"user-1": {ID: "user-1", Name: "Asha", Email: "asha@example.com", Role: domain.UserRoleUser, Fine: decimal.NewFromInt(10)},
		"user-2": {ID: "user-2", Name: "Ravi", Email: "ravi@example.com", Role: domain.UserRoleUser},
		"lib-1":  {ID: "lib-1", Name: "Meera", Email: "meera@example.com", Role: domain.UserRoleLibrarian},
	}}
	inbox := newMockInboxRepo()
	return NewUserService(db, users, inbox, zap.NewNop()), users, inbox, mock
}

func TestUpdateProfile(t *testing.T) {
	tests := []struct {
		name     string
		callerID string
		upd      domain.ProfileUpdate
		wantErr  error
	}{
		{
			name:     "updates own name and phone",
			callerID: "user-1",
			upd:      domain.ProfileUpdate{Name: strPtr("Asha K"), Phone: strPtr("+91 98765 43210")},
		},
		{
			name:     "accepts https profile picture",
			callerID: "user-1",
			upd:      domain.ProfileUpdate{ProfilePic: strPtr("https://cdn.example.com/a.png")},
		},
		{
			name:     "rejects another user's profile",
			callerID: "user-2",
			upd:      domain.ProfileUpdate{Name: strPtr("Mallory")},
			wantErr:  domain.ErrForbidden,
		},
		{
			name:     "rejects blank name",
			callerID: "user-1",
			upd:      domain.ProfileUpdate{Name: strPtr("   ")},
			wantErr:  domain.ErrInvalidProfile,
		},
		{
			name:     "rejects relative picture url",
			callerID: "user-1",
			upd:      domain.ProfileUpdate{ProfilePic: strPtr("/img/me.png")},
			wantErr:  domain.ErrInvalidProfile,
		},
		{
			name:     "rejects non-http picture url",
			callerID: "user-1",
			upd:      domain.ProfileUpdate{ProfilePic: strPtr("javascript:alert(1)")},
			wantErr:  domain.ErrInvalidProfile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _, _ := newService(t)

			user, err := svc.UpdateProfile(context.Background(), tt.callerID, "user-1", tt.upd)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("UpdateProfile() error = %v, want %v", err, tt.wantErr)
				}
				if len(repo.updates) != 0 {
					t.Error("repository was updated despite the error")
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateProfile() error = %v", err)
			}
			if tt.upd.Name != nil && user.Name != *tt.upd.Name {
				t.Errorf("Name = %q, want %q", user.Name, *tt.upd.Name)
			}
			if tt.upd.ProfilePic != nil && (user.ProfilePic == nil || *user.ProfilePic != *tt.upd.ProfilePic) {
				t.Errorf("ProfilePic = %v, want %q", user.ProfilePic, *tt.upd.ProfilePic)
			}
		})
	}
}

func TestUpdateProfile_EmptyUpdateReturnsCurrentProfile(t *testing.T) {
	svc, repo, _, _ := newService(t)

	user, err := svc.UpdateProfile(context.Background(), "user-1", "user-1", domain.ProfileUpdate{})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if user.Name != "Asha" {
		t.Errorf("Name = %q", user.Name)
	}
	if len(repo.updates) != 0 {
		t.Error("empty update reached the repository")
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	svc, _, _, _ := newService(t)

	if _, err := svc.GetProfile(context.Background(), "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("GetProfile() error = %v, want ErrUserNotFound", err)
	}
}

func TestGetUserAs(t *testing.T) {
	tests := []struct {
		callerID string
		wantErr  error
	}{
		{callerID: "user-1"},
		{callerID: "lib-1"},
		{callerID: "user-2", wantErr: domain.ErrForbidden},
		{callerID: "ghost", wantErr: domain.ErrForbidden},
	}
	for _, tt := range tests {
		svc, _, _, _ := newService(t)
		user, err := svc.GetUserAs(context.Background(), tt.callerID, "user-1")
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("GetUserAs(%s) error = %v, want %v", tt.callerID, err, tt.wantErr)
			continue
		}
		if tt.wantErr == nil && user.ID != "user-1" {
			t.Errorf("GetUserAs(%s) = %+v", tt.callerID, user)
		}
	}
}

func TestProcessIncomingFineAccruedEvent(t *testing.T) {
	svc, repo, inbox, mock := newService(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := svc.ProcessIncomingFineAccruedEvent(context.Background(), "evt-1", "library_fine_events", "user-1",
		decimal.RequireFromString("2.50"), []byte(`{}`))
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if got := repo.users["user-1"].Fine; !got.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("fine = %s, want 12.50", got)
	}
	if inbox.seen["evt-1"] != domain.InboxStatusProcessed {
		t.Errorf("inbox status = %s, want PROCESSED", inbox.seen["evt-1"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestProcessIncomingFineAccruedEvent_Redelivery(t *testing.T) {
	svc, repo, _, mock := newService(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	for i := 0; i < 2; i++ {
		if err := svc.ProcessIncomingFineAccruedEvent(context.Background(), "evt-2", "library_fine_events", "user-1",
			decimal.NewFromInt(5), nil); err != nil {
			t.Fatalf("delivery %d error = %v", i, err)
		}
	}
	if got := repo.users["user-1"].Fine; !got.Equal(decimal.NewFromInt(15)) {
		t.Errorf("fine = %s, want 15", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestProcessIncomingFineAccruedEvent_RejectedEventsAreMarkedFailed(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		amount decimal.Decimal
	}{
		{name: "zero amount", userID: "user-1", amount: decimal.Zero},
		{name: "negative amount", userID: "user-1", amount: decimal.NewFromInt(-3)},
		{name: "unknown user", userID: "ghost", amount: decimal.NewFromInt(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, inbox, mock := newService(t)
			mock.ExpectBegin()
			mock.ExpectCommit()

			if err := svc.ProcessIncomingFineAccruedEvent(context.Background(), "evt-x", "t", tt.userID, tt.amount, nil); err != nil {
				t.Fatalf("error = %v", err)
			}
			if inbox.seen["evt-x"] != domain.InboxStatusFailed {
				t.Errorf("inbox status = %s, want FAILED", inbox.seen["evt-x"])
			}
			if got := repo.users["user-1"].Fine; !got.Equal(decimal.NewFromInt(10)) {
				t.Errorf("fine = %s, want unchanged 10", got)
			}
		})
	}
}

func TestProcessIncomingFineAccruedEvent_DatabaseErrorRollsBack(t *testing.T) {
	svc, repo, _, mock := newService(t)
	repo.AddFineErr = errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := svc.ProcessIncomingFineAccruedEvent(context.Background(), "evt-3", "t", "user-1", decimal.NewFromInt(1), nil)
	if err == nil {
		t.Fatal("expected an error so the message is redelivered")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
