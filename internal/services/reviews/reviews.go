// Package reviews admits buyer reviews under a one-review-per-buyer rule and
// keeps each listing's aggregate rating in step.
package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/codemarket/internal/extid"
	"github.com/fastprodman/codemarket/internal/infra/pgutils"
	"github.com/fastprodman/codemarket/internal/metrics"
	"github.com/fastprodman/codemarket/internal/repos/accounts"
	"github.com/fastprodman/codemarket/internal/repos/listings"
	pglistings "github.com/fastprodman/codemarket/internal/repos/listings/postgres"
	"github.com/fastprodman/codemarket/internal/repos/purchases"
	pgpurchases "github.com/fastprodman/codemarket/internal/repos/purchases/postgres"
	reviewsrepo "github.com/fastprodman/codemarket/internal/repos/reviews"
	pgreviews "github.com/fastprodman/codemarket/internal/repos/reviews/postgres"
)

var (
	// ErrNotEntitled: only buyers holding a purchase of the listing may review it.
	ErrNotEntitled = errors.New("no purchase of this listing")
	ErrInvalidScore = errors.New("score must be an integer in [1,5]")
)

type Service struct {
	listings  listings.Listings
	purchases purchases.Purchases
	reviews   reviewsrepo.Reviews

	runTx func(ctx context.Context, fn func(*sql.Tx) error) error
}

func New(db *sql.DB) *Service {
	return &Service{
		listings:  pglistings.New(db),
		purchases: pgpurchases.New(db),
		reviews:   pgreviews.New(db),
		runTx: func(ctx context.Context, fn func(*sql.Tx) error) error {
			return pgutils.WithTx(ctx, db, fn)
		},
	}
}

// SubmitReview admits one review and recomputes the listing's aggregate
// rating as the mean over the full review set, all in one transaction. The
// listing row is locked first so concurrent reviews serialize and the stored
// mean always matches the stored set.
func (s *Service) SubmitReview(ctx context.Context, buyer *accounts.Account, listingExtID string, score int, comment string) (*reviewsrepo.Review, error) {
	if score < 1 || score > 5 {
		return nil, ErrInvalidScore
	}

	listing, err := s.listings.GetByExtID(ctx, listingExtID)
	if err != nil {
		return nil, fmt.Errorf("resolve listing: %w", err)
	}

	for {
		review := &reviewsrepo.Review{
			ExtID:     extid.New(extid.KindReview),
			BuyerID:   buyer.ID,
			ListingID: listing.ID,
			Score:     score,
			Comment:   comment,
		}

		err = s.runTx(ctx, func(tx *sql.Tx) error {
			_, txErr := s.listings.LockByID(tx, listing.ID)
			if txErr != nil {
				return fmt.Errorf("lock listing: %w", txErr)
			}

			entitled, txErr := s.purchases.Exists(tx, buyer.ID, listing.ID)
			if txErr != nil {
				return fmt.Errorf("check entitlement: %w", txErr)
			}
			if !entitled {
				return ErrNotEntitled
			}

			txErr = s.reviews.Insert(tx, review)
			if txErr != nil {
				return fmt.Errorf("insert review: %w", txErr)
			}

			mean, count, txErr := s.reviews.Aggregate(tx, listing.ID)
			if txErr != nil {
				return fmt.Errorf("recompute rating: %w", txErr)
			}

			txErr = s.listings.UpdateRating(tx, listing.ID, mean, count)
			if txErr != nil {
				return fmt.Errorf("store rating: %w", txErr)
			}

			return nil
		})
		if errors.Is(err, reviewsrepo.ErrExternalIDTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("submit review: %w", err)
		}

		metrics.ReviewsAdmittedTotal.Inc()

		return review, nil
	}
}
