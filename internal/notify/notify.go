// Package notify publishes fire-and-forget domain events to an AMQP topic
// exchange. Publish failures are the caller's to log and swallow; they must
// never fail the operation that produced the event.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher is implemented by the AMQP producer and a no-op fallback used
// when no broker is configured.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
	Close()
}

// ListingSold is published to routing key "listing.sold" after a purchase
// commits.
type ListingSold struct {
	EventID        uuid.UUID `json:"event_id"`
	PurchaseExtID  string    `json:"purchase_id"`
	ListingExtID   string    `json:"listing_id"`
	SellerExtID    string    `json:"seller_id"`
	SellerEarnings int64     `json:"seller_earnings"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// PaymentProcessed is published to routing key "payment.processed" after an
// admin approves or rejects a payment request.
type PaymentProcessed struct {
	EventID      uuid.UUID `json:"event_id"`
	PaymentExtID string    `json:"payment_id"`
	AccountExtID string    `json:"account_id"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	Amount       int64     `json:"amount"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Nop drops every event. Wired when AMQP_URL is empty.
type Nop struct{}

func (Nop) Publish(_ context.Context, routingKey string, _ any) error {
	slog.Debug("notification dropped, no broker configured", "routing_key", routingKey)
	return nil
}

func (Nop) Close() {}
