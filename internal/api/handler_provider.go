package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fastprodman/codemarket/internal/repos/accounts"
	"github.com/fastprodman/codemarket/internal/repos/listings"
	paymentsrepo "github.com/fastprodman/codemarket/internal/repos/payments"
	"github.com/fastprodman/codemarket/internal/repos/purchases"
	reviewsrepo "github.com/fastprodman/codemarket/internal/repos/reviews"
	"github.com/fastprodman/codemarket/internal/services/checkout"
	"github.com/fastprodman/codemarket/internal/services/payments"
	"github.com/fastprodman/codemarket/internal/services/reviews"
)

// HandlerProvider wraps the three core services and exposes HTTP handlers.
type HandlerProvider struct {
	checkout *checkout.Service
	payments *payments.Service
	reviews  *reviews.Service
}

// NewHandler returns a new handler provider.
func NewHandler(co *checkout.Service, pay *payments.Service, rev *reviews.Service) *HandlerProvider {
	return &HandlerProvider{checkout: co, payments: pay, reviews: rev}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)

		http.Error(w, `{"error":"internal json encode failure"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "empty body")
			return false
		}

		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}

	return true
}

// writeDomainError maps the core's error taxonomy onto HTTP statuses; anything
// unrecognized is an infrastructure failure and stays a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accounts.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, "insufficient funds")
	case errors.Is(err, purchases.ErrAlreadyPurchased):
		writeError(w, http.StatusConflict, "already purchased")
	case errors.Is(err, paymentsrepo.ErrAlreadyProcessed):
		writeError(w, http.StatusConflict, "already processed")
	case errors.Is(err, reviewsrepo.ErrAlreadyReviewed):
		writeError(w, http.StatusConflict, "already reviewed")
	case errors.Is(err, reviews.ErrNotEntitled):
		writeError(w, http.StatusForbidden, "no purchase of this listing")
	case errors.Is(err, payments.ErrForbidden):
		writeError(w, http.StatusForbidden, "admin role required")
	case errors.Is(err, payments.ErrInvalidAmount):
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
	case errors.Is(err, reviews.ErrInvalidScore):
		writeError(w, http.StatusUnprocessableEntity, "invalid score")
	case errors.Is(err, payments.ErrMissingBankInfo):
		writeError(w, http.StatusUnprocessableEntity, "bank info required")
	case errors.Is(err, payments.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many payment requests")
	case errors.Is(err, listings.ErrListingNotFound):
		writeError(w, http.StatusNotFound, "listing not found")
	case errors.Is(err, purchases.ErrPurchaseNotFound):
		writeError(w, http.StatusNotFound, "purchase not found")
	case errors.Is(err, paymentsrepo.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, "payment request not found")
	case errors.Is(err, accounts.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	default:
		slog.Error("unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// --- Handlers ---

// PurchaseHandler handles POST /purchases
func (h *HandlerProvider) PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ListingID string `json:"listingId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ListingID == "" {
		writeError(w, http.StatusBadRequest, "listingId required")
		return
	}

	p, err := h.checkout.Purchase(r.Context(), principalFrom(r.Context()), req.ListingID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"purchaseId":      p.ExtID,
		"amount":          p.Amount,
		"accessExpiresAt": p.AccessExpiresAt.Format(time.RFC3339),
	})
}

// GetPurchaseHandler handles GET /purchases/{purchaseID}
func (h *HandlerProvider) GetPurchaseHandler(w http.ResponseWriter, r *http.Request) {
	p, access, err := h.checkout.GetPurchase(r.Context(), chi.URLParam(r, "purchaseID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"purchaseId":      p.ExtID,
		"amount":          p.Amount,
		"sellerEarnings":  p.SellerEarnings,
		"commission":      p.Commission,
		"createdAt":       p.CreatedAt.Format(time.RFC3339),
		"accessExpiresAt": p.AccessExpiresAt.Format(time.RFC3339),
		"access":          access,
	})
}

// AccessHandler handles GET /purchases/{purchaseID}/access
func (h *HandlerProvider) AccessHandler(w http.ResponseWriter, r *http.Request) {
	access, err := h.checkout.HasAccess(r.Context(), chi.URLParam(r, "purchaseID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"access": access})
}

// DepositHandler handles POST /payments/deposit
func (h *HandlerProvider) DepositHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.payments.RequestDeposit(r.Context(), principalFrom(r.Context()), req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"paymentId": p.ExtID})
}

// WithdrawalHandler handles POST /payments/withdrawal
func (h *HandlerProvider) WithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64 `json:"amount"`
		Bank   struct {
			BankName    string `json:"bankName"`
			AccountNo   string `json:"accountNo"`
			AccountName string `json:"accountName"`
		} `json:"bank"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	bank := paymentsrepo.BankInfo{
		BankName:    req.Bank.BankName,
		AccountNo:   req.Bank.AccountNo,
		AccountName: req.Bank.AccountName,
	}

	p, err := h.payments.RequestWithdrawal(r.Context(), principalFrom(r.Context()), req.Amount, bank)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"paymentId": p.ExtID})
}

type processRequest struct {
	Note *string `json:"note"`
}

// ApproveHandler handles POST /payments/{paymentID}/approve
func (h *HandlerProvider) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	err := h.payments.Approve(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "paymentID"), req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

// RejectHandler handles POST /payments/{paymentID}/reject
func (h *HandlerProvider) RejectHandler(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	err := h.payments.Reject(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "paymentID"), req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// ListPaymentsHandler handles GET /payments
func (h *HandlerProvider) ListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	status := paymentsrepo.Status(r.URL.Query().Get("status"))

	list, err := h.payments.List(r.Context(), principalFrom(r.Context()), status)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(list))
	for _, p := range list {
		item := map[string]any{
			"paymentId": p.ExtID,
			"kind":      p.Kind,
			"amount":    p.Amount,
			"status":    p.Status,
			"createdAt": p.CreatedAt.Format(time.RFC3339),
		}
		if p.ProcessedAt != nil {
			item["processedAt"] = p.ProcessedAt.Format(time.RFC3339)
		}
		out = append(out, item)
	}

	writeJSON(w, http.StatusOK, map[string]any{"payments": out})
}

// SubmitReviewHandler handles POST /listings/{listingID}/reviews
func (h *HandlerProvider) SubmitReviewHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Score   int    `json:"score"`
		Comment string `json:"comment"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	review, err := h.reviews.SubmitReview(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "listingID"), req.Score, req.Comment)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"reviewId": review.ExtID})
}

// RecordViewHandler handles POST /listings/{listingID}/view
func (h *HandlerProvider) RecordViewHandler(w http.ResponseWriter, r *http.Request) {
	err := h.checkout.RecordView(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BalanceHandler handles GET /accounts/{accountID}/balance
func (h *HandlerProvider) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountExtID := chi.URLParam(r, "accountID")

	caller := principalFrom(r.Context())
	if caller.ExtID != accountExtID && !caller.IsAdmin() {
		writeError(w, http.StatusForbidden, "not your account")
		return
	}

	balance, err := h.payments.GetBalance(r.Context(), accountExtID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accountId": accountExtID,
		"balance":   balance,
	})
}
