package purchases

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrAlreadyPurchased = errors.New("listing already purchased by buyer")
	// ErrExternalIDTaken signals an ext_id collision; callers regenerate the
	// candidate ID and retry the whole transaction.
	ErrExternalIDTaken = errors.New("external id taken")
)

// Purchase is the immutable record of one completed buy. Amount, earnings and
// commission are in minor units; amount = seller_earnings + commission.
type Purchase struct {
	ID              int64
	ExtID           string
	BuyerID         int64
	ListingID       int64
	Amount          int64
	SellerEarnings  int64
	Commission      int64
	CreatedAt       time.Time
	AccessExpiresAt time.Time
}

type Purchases interface {
	// Insert creates the record; a (buyer, listing) unique violation maps to
	// ErrAlreadyPurchased, an ext_id violation to ErrExternalIDTaken.
	Insert(tx *sql.Tx, p *Purchase) error
	Exists(tx *sql.Tx, buyerID, listingID int64) (bool, error)
	ExistsCommitted(ctx context.Context, buyerID, listingID int64) (bool, error)
	GetByExtID(ctx context.Context, extID string) (*Purchase, error)
}
