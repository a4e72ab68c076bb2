package purchases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/codemarket/internal/infra/pgutils"
	"github.com/fastprodman/codemarket/internal/repos/purchases"
)

var _ purchases.Purchases = (*purchasesRepo)(nil)

type purchasesRepo struct{ db *sql.DB }

func New(db *sql.DB) *purchasesRepo {
	return &purchasesRepo{db: db}
}

func (r *purchasesRepo) Insert(tx *sql.Tx, p *purchases.Purchase) error {
	err := tx.QueryRow(`
		INSERT INTO purchases
			(ext_id, buyer_id, listing_id, amount, seller_earnings, commission,
			 created_at, access_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, p.ExtID, p.BuyerID, p.ListingID, p.Amount, p.SellerEarnings, p.Commission,
		p.CreatedAt, p.AccessExpiresAt).Scan(&p.ID)
	if err != nil {
		switch {
		case pgutils.IsUniqueViolation(err, "purchases_buyer_listing_key"):
			return purchases.ErrAlreadyPurchased
		case pgutils.IsUniqueViolation(err, "purchases_ext_id_key"):
			return purchases.ErrExternalIDTaken
		}

		return fmt.Errorf("insert purchase: %w", err)
	}

	return nil
}

func (r *purchasesRepo) Exists(tx *sql.Tx, buyerID, listingID int64) (bool, error) {
	var exists bool

	err := tx.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM purchases
			WHERE buyer_id = $1 AND listing_id = $2
		)
	`, buyerID, listingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("purchase exists: %w", err)
	}

	return exists, nil
}

func (r *purchasesRepo) ExistsCommitted(ctx context.Context, buyerID, listingID int64) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM purchases
			WHERE buyer_id = $1 AND listing_id = $2
		)
	`, buyerID, listingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("purchase exists: %w", err)
	}

	return exists, nil
}

func (r *purchasesRepo) GetByExtID(ctx context.Context, extID string) (*purchases.Purchase, error) {
	var p purchases.Purchase

	err := r.db.QueryRowContext(ctx, `
		SELECT id, ext_id, buyer_id, listing_id, amount, seller_earnings,
		       commission, created_at, access_expires_at
		FROM purchases
		WHERE ext_id = $1
	`, extID).Scan(
		&p.ID, &p.ExtID, &p.BuyerID, &p.ListingID, &p.Amount,
		&p.SellerEarnings, &p.Commission, &p.CreatedAt, &p.AccessExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, purchases.ErrPurchaseNotFound
		}

		return nil, fmt.Errorf("get purchase by ext id: %w", err)
	}

	return &p, nil
}
