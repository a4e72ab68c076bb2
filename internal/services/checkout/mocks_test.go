package checkout

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/fastprodman/codemarket/internal/repos/accounts"
	"github.com/fastprodman/codemarket/internal/repos/listings"
	"github.com/fastprodman/codemarket/internal/repos/purchases"
)

// stubTx runs the transactional closure directly, without a database. Repo
// calls inside the closure hit the mocks, which ignore the nil *sql.Tx.
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

type mockListings struct{ mock.Mock }

func (m *mockListings) GetByExtID(ctx context.Context, extID string) (*listings.Listing, error) {
	args := m.Called(ctx, extID)
	l, _ := args.Get(0).(*listings.Listing)
	return l, args.Error(1)
}

func (m *mockListings) LockByID(tx *sql.Tx, id int64) (*listings.Listing, error) {
	args := m.Called(tx, id)
	l, _ := args.Get(0).(*listings.Listing)
	return l, args.Error(1)
}

func (m *mockListings) IncrementPurchases(tx *sql.Tx, id int64) error {
	return m.Called(tx, id).Error(0)
}

func (m *mockListings) IncrementViews(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockListings) UpdateRating(tx *sql.Tx, id int64, rating float64, count int64) error {
	return m.Called(tx, id, rating, count).Error(0)
}

type mockPurchases struct{ mock.Mock }

func (m *mockPurchases) Insert(tx *sql.Tx, p *purchases.Purchase) error {
	return m.Called(tx, p).Error(0)
}

func (m *mockPurchases) Exists(tx *sql.Tx, buyerID, listingID int64) (bool, error) {
	args := m.Called(tx, buyerID, listingID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPurchases) ExistsCommitted(ctx context.Context, buyerID, listingID int64) (bool, error) {
	args := m.Called(ctx, buyerID, listingID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPurchases) GetByExtID(ctx context.Context, extID string) (*purchases.Purchase, error) {
	args := m.Called(ctx, extID)
	p, _ := args.Get(0).(*purchases.Purchase)
	return p, args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, body any) error {
	return m.Called(ctx, routingKey, body).Error(0)
}

func (m *mockPublisher) Close() {
	m.Called()
}
