package listings

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrListingNotFound = errors.New("listing not found")

// Listing is a sellable item. Rating fields are owned by the review flow,
// the purchases counter by the checkout flow.
type Listing struct {
	ID          int64
	ExtID       string
	SellerID    int64
	Title       string
	Price       int64
	Views       int64
	Purchases   int64
	Rating      float64
	RatingCount int64
	Active      bool
	CreatedAt   time.Time
}

type Listings interface {
	GetByExtID(ctx context.Context, extID string) (*Listing, error)
	// LockByID takes a FOR UPDATE lock; used to serialize counter and rating
	// updates against concurrent purchases/reviews of the same listing.
	LockByID(tx *sql.Tx, id int64) (*Listing, error)
	IncrementPurchases(tx *sql.Tx, id int64) error
	IncrementViews(ctx context.Context, id int64) error
	UpdateRating(tx *sql.Tx, id int64, rating float64, count int64) error
}
