package reviews

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/fastprodman/codemarket/internal/repos/listings"
	"github.com/fastprodman/codemarket/internal/repos/purchases"
	reviewsrepo "github.com/fastprodman/codemarket/internal/repos/reviews"
)

func stubTx(_ context.Context, fn func(*sql.Tx) error) error {
	return fn(nil)
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

type mockReviews struct{ mock.Mock }

func (m *mockReviews) Insert(tx *sql.Tx, r *reviewsrepo.Review) error {
	return m.Called(tx, r).Error(0)
}

func (m *mockReviews) Aggregate(tx *sql.Tx, listingID int64) (float64, int64, error) {
	args := m.Called(tx, listingID)
	return args.Get(0).(float64), args.Get(1).(int64), args.Error(2)
}
