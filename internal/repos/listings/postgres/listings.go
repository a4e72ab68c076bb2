package listings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/codemarket/internal/repos/listings"
)

var _ listings.Listings = (*listingsRepo)(nil)

type listingsRepo struct{ db *sql.DB }

func New(db *sql.DB) *listingsRepo {
	return &listingsRepo{db: db}
}

const listingColumns = `id, ext_id, seller_id, title, price, views, purchases, rating, rating_count, active, created_at`

func scanListing(row *sql.Row) (*listings.Listing, error) {
	var l listings.Listing

	err := row.Scan(
		&l.ID, &l.ExtID, &l.SellerID, &l.Title, &l.Price,
		&l.Views, &l.Purchases, &l.Rating, &l.RatingCount,
		&l.Active, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, listings.ErrListingNotFound
		}

		return nil, err
	}

	return &l, nil
}

func (r *listingsRepo) GetByExtID(ctx context.Context, extID string) (*listings.Listing, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE ext_id = $1
	`, extID)

	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, listings.ErrListingNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("get listing by ext id: %w", err)
	}

	return l, nil
}

func (r *listingsRepo) LockByID(tx *sql.Tx, id int64) (*listings.Listing, error) {
	row := tx.QueryRow(`
		SELECT `+listingColumns+`
		FROM listings
		WHERE id = $1
		FOR UPDATE
	`, id)

	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, listings.ErrListingNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("lock listing: %w", err)
	}

	return l, nil
}

func (r *listingsRepo) IncrementPurchases(tx *sql.Tx, id int64) error {
	_, err := tx.Exec(`
		UPDATE listings
		SET purchases = purchases + 1
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("increment purchases: %w", err)
	}

	return nil
}

func (r *listingsRepo) IncrementViews(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET views = views + 1
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return listings.ErrListingNotFound
	}

	return nil
}

func (r *listingsRepo) UpdateRating(tx *sql.Tx, id int64, rating float64, count int64) error {
	_, err := tx.Exec(`
		UPDATE listings
		SET rating = $2, rating_count = $3
		WHERE id = $1
	`, id, rating, count)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}

	return nil
}
