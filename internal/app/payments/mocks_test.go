package payments

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"library/internal/domain"
	"library/internal/gateway"
)

type mockUserRepo struct {
	users       map[string]*domain.User
	settleCalls []decimal.Decimal
}

func (m *mockUserRepo) GetByIDTx(_ context.Context, _ domain.Querier, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) UpdateProfileTx(context.Context, domain.Querier, string, domain.ProfileUpdate) error {
	return nil
}

func (m *mockUserRepo) AddFineTx(_ context.Context, _ domain.Querier, id string, amount decimal.Decimal) error {
	m.users[id].Fine = m.users[id].Fine.Add(amount)
	return nil
}

func (m *mockUserRepo) SettleFineTx(_ context.Context, _ domain.Querier, id string, amount decimal.Decimal) error {
	m.settleCalls = append(m.settleCalls, amount)
	u := m.users[id]
	u.Fine = decimal.Max(u.Fine.Sub(amount), decimal.Zero)
	return nil
}

// memPaymentRepo enforces id uniqueness the way the payments table does.
type memPaymentRepo struct {
	mu              sync.Mutex
	records         map[string]domain.PaymentRecord
	markTerminalErr error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{records: map[string]domain.PaymentRecord{}}
}

func (m *memPaymentRepo) CreateTx(_ context.Context, _ domain.Querier, p *domain.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[p.ID]; exists {
		return domain.ErrDuplicateTransaction
	}
	m.records[p.ID] = *p
	return nil
}

func (m *memPaymentRepo) GetByIDTx(_ context.Context, _ domain.Querier, id string) (*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &p, nil
}

func (m *memPaymentRepo) ListByUserTx(_ context.Context, _ domain.Querier, userID string, _ int) ([]domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentRecord
	for _, p := range m.records {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) MarkTerminalTx(_ context.Context, _ domain.Querier, id string, status domain.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markTerminalErr != nil {
		return m.markTerminalErr
	}
	p, ok := m.records[id]
	if !ok || p.Status != domain.PaymentStatusPending {
		return domain.ErrPaymentAlreadyFinalized
	}
	p.Status = status
	m.records[id] = p
	return nil
}

func (m *memPaymentRepo) get(id string) (domain.PaymentRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[id]
	return p, ok
}

type mockOutboxRepo struct {
	messages []domain.OutboxMessage
}

func (m *mockOutboxRepo) CreateMessageTx(_ context.Context, _ domain.Querier, msg *domain.OutboxMessage) error {
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *mockOutboxRepo) GetPendingMessages(context.Context, domain.Querier, int) ([]domain.OutboxMessage, error) {
	return m.messages, nil
}

func (m *mockOutboxRepo) UpdateMessageStatusTx(context.Context, domain.Querier, string, domain.OutboxMessageStatus) error {
	return nil
}

type mockGateway struct {
	InitiateFunc    func(ctx context.Context, req gateway.PayRequest) (*gateway.PayResponse, error)
	CheckStatusFunc func(ctx context.Context, transactionID string) (*gateway.StatusResponse, error)

	// paid holds the minor-unit amount the default status check reports per transaction.
	paid map[string]int64

	initiateCalls int
	statusCalls   int
}

func (m *mockGateway) Initiate(ctx context.Context, req gateway.PayRequest) (*gateway.PayResponse, error) {
	m.initiateCalls++
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, req)
	}
	return redirectResponse("https://pay.example.com/redirect"), nil
}

func (m *mockGateway) CheckStatus(ctx context.Context, transactionID string) (*gateway.StatusResponse, error) {
	m.statusCalls++
	if m.CheckStatusFunc != nil {
		return m.CheckStatusFunc(ctx, transactionID)
	}
	return &gateway.StatusResponse{
		Success: true,
		Code:    gateway.CodePaymentSuccess,
		Data: &gateway.StatusData{
			MerchantTransactionID: transactionID,
			Amount:                m.paid[transactionID],
			State:                 "COMPLETED",
		},
	}, nil
}

func redirectResponse(url string) *gateway.PayResponse {
	return &gateway.PayResponse{
		Success: true,
		Code:    "PAYMENT_INITIATED",
		Data: &gateway.PayResponseData{
			InstrumentResponse: &gateway.InstrumentResponse{
				Type:         gateway.InstrumentPayPage,
				RedirectInfo: &gateway.RedirectInfo{URL: url, Method: "GET"},
			},
		},
		Raw: []byte(`{"success":true}`),
	}
}
