package reviews

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/codemarket/internal/infra/pgutils"
	"github.com/fastprodman/codemarket/internal/repos/reviews"
)

var _ reviews.Reviews = (*reviewsRepo)(nil)

type reviewsRepo struct{ db *sql.DB }

func New(db *sql.DB) *reviewsRepo {
	return &reviewsRepo{db: db}
}

func (r *reviewsRepo) Insert(tx *sql.Tx, rv *reviews.Review) error {
	err := tx.QueryRow(`
		INSERT INTO reviews (ext_id, buyer_id, listing_id, score, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, rv.ExtID, rv.BuyerID, rv.ListingID, rv.Score, rv.Comment).Scan(&rv.ID, &rv.CreatedAt)
	if err != nil {
		switch {
		case pgutils.IsUniqueViolation(err, "reviews_buyer_listing_key"):
			return reviews.ErrAlreadyReviewed
		case pgutils.IsUniqueViolation(err, "reviews_ext_id_key"):
			return reviews.ErrExternalIDTaken
		}

		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

func (r *reviewsRepo) Aggregate(tx *sql.Tx, listingID int64) (float64, int64, error) {
	var (
		mean  float64
		count int64
	)

	err := tx.QueryRow(`
		SELECT COALESCE(AVG(score), 0), COUNT(*)
		FROM reviews
		WHERE listing_id = $1
	`, listingID).Scan(&mean, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate reviews: %w", err)
	}

	return mean, count, nil
}
