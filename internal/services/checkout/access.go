package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/codemarket/internal/repos/purchases"
)

// AccessWindow is how long a purchase exposes the download link and the
// seller's contact details.
const AccessWindow = 24 * time.Hour

// HasAccessAt reports whether the purchase grants access at the given
// instant. Pure time comparison; recomputed on every evaluation.
func HasAccessAt(p *purchases.Purchase, at time.Time) bool {
	return at.Before(p.AccessExpiresAt)
}

// HasAccess evaluates the purchase's access window against the current time.
func (s *Service) HasAccess(ctx context.Context, purchaseExtID string) (bool, error) {
	p, err := s.purchases.GetByExtID(ctx, purchaseExtID)
	if err != nil {
		return false, fmt.Errorf("resolve purchase: %w", err)
	}

	return HasAccessAt(p, time.Now()), nil
}

// GetPurchase returns the immutable record plus the current access verdict.
func (s *Service) GetPurchase(ctx context.Context, purchaseExtID string) (*purchases.Purchase, bool, error) {
	p, err := s.purchases.GetByExtID(ctx, purchaseExtID)
	if err != nil {
		return nil, false, fmt.Errorf("resolve purchase: %w", err)
	}

	return p, HasAccessAt(p, time.Now()), nil
}
