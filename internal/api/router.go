package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fastprodman/codemarket/internal/repos/accounts"
	"github.com/fastprodman/codemarket/internal/services/checkout"
	"github.com/fastprodman/codemarket/internal/services/payments"
	"github.com/fastprodman/codemarket/internal/services/reviews"
)

// NewRouter constructs the router with all API endpoints registered.
func NewRouter(accountsRepo accounts.Accounts, co *checkout.Service, pay *payments.Service, rev *reviews.Service) http.Handler {
	h := NewHandler(co, pay, rev)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Everything below requires an authenticated principal.
	r.Group(func(r chi.Router) {
		r.Use(Principal(accountsRepo))

		r.Post("/purchases", h.PurchaseHandler)
		r.Get("/purchases/{purchaseID}", h.GetPurchaseHandler)
		r.Get("/purchases/{purchaseID}/access", h.AccessHandler)

		r.Post("/payments/deposit", h.DepositHandler)
		r.Post("/payments/withdrawal", h.WithdrawalHandler)
		r.Post("/payments/{paymentID}/approve", h.ApproveHandler)
		r.Post("/payments/{paymentID}/reject", h.RejectHandler)
		r.Get("/payments", h.ListPaymentsHandler)

		r.Post("/listings/{listingID}/reviews", h.SubmitReviewHandler)
		r.Post("/listings/{listingID}/view", h.RecordViewHandler)

		r.Get("/accounts/{accountID}/balance", h.BalanceHandler)
	})

	return r
}
