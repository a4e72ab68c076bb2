package accounts

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/codemarket/internal/repos/accounts"
)

func (r *accountsRepo) LockAndGetBalance(tx *sql.Tx, id int64) (int64, error) {
	var balance int64

	err := tx.QueryRow(`
		SELECT balance
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, accounts.ErrAccountNotFound
		}

		return 0, fmt.Errorf("lock/get balance: %w", err)
	}

	return balance, nil
}
