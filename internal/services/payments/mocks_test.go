package payments

import (
	"context"
	"database/sql"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fastprodman/codemarket/internal/repos/accounts"
	paymentsrepo "github.com/fastprodman/codemarket/internal/repos/payments"
)

func stubTx(_ context.Context, fn func(*sql.Tx) error) error {
	return fn(nil)
}

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) GetByExtID(ctx context.Context, extID string) (*accounts.Account, error) {
	args := m.Called(ctx, extID)
	a, _ := args.Get(0).(*accounts.Account)
	return a, args.Error(1)
}

func (m *mockAccounts) GetByID(ctx context.Context, id int64) (*accounts.Account, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*accounts.Account)
	return a, args.Error(1)
}

func (m *mockAccounts) GetBalance(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAccounts) LockAndGetBalance(tx *sql.Tx, id int64) (int64, error) {
	args := m.Called(tx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAccounts) IncreaseBalance(tx *sql.Tx, id int64, amount int64) error {
	return m.Called(tx, id, amount).Error(0)
}

func (m *mockAccounts) DecreaseBalance(tx *sql.Tx, id int64, amount int64) error {
	return m.Called(tx, id, amount).Error(0)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) Insert(tx *sql.Tx, p *paymentsrepo.PaymentRequest) error {
	return m.Called(tx, p).Error(0)
}

func (m *mockPayments) LockByExtID(tx *sql.Tx, extID string) (*paymentsrepo.PaymentRequest, error) {
	args := m.Called(tx, extID)
	p, _ := args.Get(0).(*paymentsrepo.PaymentRequest)
	return p, args.Error(1)
}

func (m *mockPayments) MarkProcessed(tx *sql.Tx, id int64, status paymentsrepo.Status, adminID int64, note *string, at time.Time) error {
	return m.Called(tx, id, status, adminID, note, at).Error(0)
}

func (m *mockPayments) ListByAccount(ctx context.Context, accountID int64, status paymentsrepo.Status) ([]paymentsrepo.PaymentRequest, error) {
	args := m.Called(ctx, accountID, status)
	list, _ := args.Get(0).([]paymentsrepo.PaymentRequest)
	return list, args.Error(1)
}

func (m *mockPayments) ListByStatus(ctx context.Context, status paymentsrepo.Status) ([]paymentsrepo.PaymentRequest, error) {
	args := m.Called(ctx, status)
	list, _ := args.Get(0).([]paymentsrepo.PaymentRequest)
	return list, args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, body any) error {
	return m.Called(ctx, routingKey, body).Error(0)
}

func (m *mockPublisher) Close() {
	m.Called()
}
