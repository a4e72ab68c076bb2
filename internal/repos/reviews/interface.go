package reviews

import (
	"database/sql"
	"errors"
	"time"
)

var (
	ErrAlreadyReviewed = errors.New("listing already reviewed by buyer")
	ErrExternalIDTaken = errors.New("external id taken")
)

// Review is one buyer's verdict on a listing. Immutable once created.
type Review struct {
	ID        int64
	ExtID     string
	BuyerID   int64
	ListingID int64
	Score     int
	Comment   string
	CreatedAt time.Time
}

type Reviews interface {
	// Insert creates the review; a (buyer, listing) unique violation maps to
	// ErrAlreadyReviewed, an ext_id violation to ErrExternalIDTaken.
	Insert(tx *sql.Tx, r *Review) error
	// Aggregate recomputes mean and count over the listing's full review set.
	// Full recomputation, not a running average, so the stored mean never
	// drifts.
	Aggregate(tx *sql.Tx, listingID int64) (mean float64, count int64, err error)
}
