package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fastprodman/codemarket/internal/extid"
	"github.com/fastprodman/codemarket/internal/infra/pgutils"
	"github.com/fastprodman/codemarket/internal/metrics"
	"github.com/fastprodman/codemarket/internal/notify"
	"github.com/fastprodman/codemarket/internal/repos/accounts"
	pgaccounts "github.com/fastprodman/codemarket/internal/repos/accounts/postgres"
	"github.com/fastprodman/codemarket/internal/repos/listings"
	pglistings "github.com/fastprodman/codemarket/internal/repos/listings/postgres"
	"github.com/fastprodman/codemarket/internal/repos/purchases"
	pgpurchases "github.com/fastprodman/codemarket/internal/repos/purchases/postgres"
)

// Retention: the seller keeps 80% of the sale price, the platform the rest.
// Earnings round down, so the commission absorbs the remainder.
const (
	retentionNumerator   = 80
	retentionDenominator = 100
)

// SellerEarnings returns floor(price * 0.80).
func SellerEarnings(price int64) int64 {
	return price * retentionNumerator / retentionDenominator
}

// Service executes the buy-now flow: eligibility checks, commission split,
// ledger transfer and purchase record creation as one transaction, plus a
// best-effort seller notification after commit.
type Service struct {
	accounts  accounts.Accounts
	listings  listings.Listings
	purchases purchases.Purchases
	publisher notify.Publisher

	runTx func(ctx context.Context, fn func(*sql.Tx) error) error
}

func New(db *sql.DB, publisher notify.Publisher) *Service {
	return &Service{
		accounts:  pgaccounts.New(db),
		listings:  pglistings.New(db),
		purchases: pgpurchases.New(db),
		publisher: publisher,
		runTx: func(ctx context.Context, fn func(*sql.Tx) error) error {
			return pgutils.WithTx(ctx, db, fn)
		},
	}
}

// Purchase runs the full flow in a single DB transaction:
//
// 1) Resolve the listing (inactive listings are not purchasable).
// 2) Lock buyer and seller rows in ascending id order.
// 3) Re-check balance and the one-purchase-per-(buyer, listing) guard.
// 4) Debit buyer by price, credit seller by earnings; the commission is the
//    part of the debit never credited anywhere.
// 5) Insert the purchase record and bump the listing's purchase counter.
//
// An ext-ID collision on insert regenerates the ID and retries the whole
// transaction; domain failures are never retried.
func (s *Service) Purchase(ctx context.Context, buyer *accounts.Account, listingExtID string) (*purchases.Purchase, error) {
	listing, err := s.listings.GetByExtID(ctx, listingExtID)
	if err != nil {
		return nil, fmt.Errorf("resolve listing: %w", err)
	}
	if !listing.Active {
		// Deactivated listings are invisible to buyers.
		return nil, listings.ErrListingNotFound
	}

	earnings := SellerEarnings(listing.Price)
	commission := listing.Price - earnings

	for {
		now := time.Now().UTC()
		p := &purchases.Purchase{
			ExtID:           extid.New(extid.KindPurchase),
			BuyerID:         buyer.ID,
			ListingID:       listing.ID,
			Amount:          listing.Price,
			SellerEarnings:  earnings,
			Commission:      commission,
			CreatedAt:       now,
			AccessExpiresAt: now.Add(AccessWindow),
		}

		err = s.runTx(ctx, func(tx *sql.Tx) error {
			buyerBalance, txErr := s.lockParties(tx, buyer.ID, listing.SellerID)
			if txErr != nil {
				return txErr
			}

			// Re-checked under the row locks; the pre-lock snapshot may be stale.
			if buyerBalance < listing.Price {
				return accounts.ErrInsufficientFunds
			}

			exists, txErr := s.purchases.Exists(tx, buyer.ID, listing.ID)
			if txErr != nil {
				return fmt.Errorf("check prior purchase: %w", txErr)
			}
			if exists {
				return purchases.ErrAlreadyPurchased
			}

			txErr = s.accounts.DecreaseBalance(tx, buyer.ID, listing.Price)
			if txErr != nil {
				return fmt.Errorf("debit buyer: %w", txErr)
			}

			txErr = s.accounts.IncreaseBalance(tx, listing.SellerID, earnings)
			if txErr != nil {
				return fmt.Errorf("credit seller: %w", txErr)
			}

			txErr = s.purchases.Insert(tx, p)
			if txErr != nil {
				return fmt.Errorf("insert purchase: %w", txErr)
			}

			txErr = s.listings.IncrementPurchases(tx, listing.ID)
			if txErr != nil {
				return fmt.Errorf("bump purchase counter: %w", txErr)
			}

			return nil
		})
		if errors.Is(err, purchases.ErrExternalIDTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("purchase: %w", err)
		}

		metrics.PurchasesTotal.Inc()
		s.notifySeller(ctx, p, listing)

		return p, nil
	}
}

// lockParties locks the buyer and seller account rows in ascending id order
// (a fixed order prevents deadlocks between concurrent purchases) and returns
// the buyer's locked balance.
func (s *Service) lockParties(tx *sql.Tx, buyerID, sellerID int64) (int64, error) {
	if buyerID == sellerID {
		balance, err := s.accounts.LockAndGetBalance(tx, buyerID)
		if err != nil {
			return 0, fmt.Errorf("lock buyer: %w", err)
		}

		return balance, nil
	}

	first, second := buyerID, sellerID
	if second < first {
		first, second = second, first
	}

	firstBalance, err := s.accounts.LockAndGetBalance(tx, first)
	if err != nil {
		return 0, fmt.Errorf("lock account %d: %w", first, err)
	}

	secondBalance, err := s.accounts.LockAndGetBalance(tx, second)
	if err != nil {
		return 0, fmt.Errorf("lock account %d: %w", second, err)
	}

	if first == buyerID {
		return firstBalance, nil
	}

	return secondBalance, nil
}

// notifySeller is fire-and-forget: a publish failure is logged and swallowed,
// never surfaced to the buyer.
func (s *Service) notifySeller(ctx context.Context, p *purchases.Purchase, listing *listings.Listing) {
	seller, err := s.accounts.GetByID(ctx, listing.SellerID)
	if err != nil {
		slog.Error("resolve seller for notification", "listing", listing.ExtID, "error", err)
		return
	}

	event := notify.ListingSold{
		EventID:        uuid.New(),
		PurchaseExtID:  p.ExtID,
		ListingExtID:   listing.ExtID,
		SellerExtID:    seller.ExtID,
		SellerEarnings: p.SellerEarnings,
		OccurredAt:     p.CreatedAt,
	}

	err = s.publisher.Publish(ctx, "listing.sold", event)
	if err != nil {
		slog.Error("publish listing.sold", "purchase", p.ExtID, "error", err)
	}
}

// RecordView bumps the listing's view counter. Storefront bookkeeping only.
func (s *Service) RecordView(ctx context.Context, listingExtID string) error {
	listing, err := s.listings.GetByExtID(ctx, listingExtID)
	if err != nil {
		return fmt.Errorf("resolve listing: %w", err)
	}

	err = s.listings.IncrementViews(ctx, listing.ID)
	if err != nil {
		return fmt.Errorf("record view: %w", err)
	}

	return nil
}
