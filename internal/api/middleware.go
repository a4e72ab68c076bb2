package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/fastprodman/codemarket/internal/repos/accounts"
)

type ctxKey int

const principalKey ctxKey = iota

// Principal resolves the authenticated caller from the X-Account-ID header
// set by the upstream auth layer. Unknown or missing accounts get 401; the
// resolved account (including its role) rides on the request context.
func Principal(repo accounts.Accounts) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			extID := r.Header.Get("X-Account-ID")
			if extID == "" {
				writeError(w, http.StatusUnauthorized, "missing X-Account-ID")
				return
			}

			account, err := repo.GetByExtID(r.Context(), extID)
			if err != nil {
				if errors.Is(err, accounts.ErrAccountNotFound) {
					writeError(w, http.StatusUnauthorized, "unknown account")
					return
				}

				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principalFrom(ctx context.Context) *accounts.Account {
	account, _ := ctx.Value(principalKey).(*accounts.Account)
	return account
}
