package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/codemarket/internal/repos/accounts"
)

func (r *accountsRepo) GetByID(ctx context.Context, id int64) (*accounts.Account, error) {
	var a accounts.Account

	err := r.db.QueryRowContext(ctx, `
		SELECT id, ext_id, role, balance, created_at
		FROM accounts
		WHERE id = $1
	`, id).Scan(&a.ID, &a.ExtID, &a.Role, &a.Balance, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, accounts.ErrAccountNotFound
		}

		return nil, fmt.Errorf("get account by id: %w", err)
	}

	return &a, nil
}
