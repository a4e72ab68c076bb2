package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// Account is the financial subject behind every ledger operation. Balance is
// in minor units and is mutated only through IncreaseBalance/DecreaseBalance.
type Account struct {
	ID        int64
	ExtID     string
	Role      Role
	Balance   int64
	CreatedAt time.Time
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type Accounts interface {
	GetByExtID(ctx context.Context, extID string) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetBalance(ctx context.Context, id int64) (int64, error)
	// LockAndGetBalance takes a FOR UPDATE row lock; callers that lock more
	// than one account must do so in ascending id order.
	LockAndGetBalance(tx *sql.Tx, id int64) (int64, error)
	IncreaseBalance(tx *sql.Tx, id int64, amount int64) error
	// DecreaseBalance is guarded by balance >= amount; it returns
	// ErrInsufficientFunds instead of ever driving a balance negative.
	DecreaseBalance(tx *sql.Tx, id int64, amount int64) error
}
