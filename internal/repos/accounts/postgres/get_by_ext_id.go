package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/codemarket/internal/repos/accounts"
)

func (r *accountsRepo) GetByExtID(ctx context.Context, extID string) (*accounts.Account, error) {
	var a accounts.Account

	err := r.db.QueryRowContext(ctx, `
		SELECT id, ext_id, role, balance, created_at
		FROM accounts
		WHERE ext_id = $1
	`, extID).Scan(&a.ID, &a.ExtID, &a.Role, &a.Balance, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, accounts.ErrAccountNotFound
		}

		return nil, fmt.Errorf("get account by ext id: %w", err)
	}

	return &a, nil
}
