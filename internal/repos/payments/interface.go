package payments

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrPaymentNotFound = errors.New("payment request not found")
	// ErrAlreadyProcessed guards the one-way pending -> approved|rejected
	// transition; a terminal request is never revisited.
	ErrAlreadyProcessed = errors.New("payment request already processed")
	ErrExternalIDTaken  = errors.New("external id taken")
)

type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// BankInfo is the transfer destination, mandatory for withdrawals.
type BankInfo struct {
	BankName    string
	AccountNo   string
	AccountName string
}

type PaymentRequest struct {
	ID          int64
	ExtID       string
	AccountID   int64
	Kind        Kind
	Amount      int64
	Status      Status
	Bank        *BankInfo
	Note        *string
	ProcessedBy *int64
	ProcessedAt *time.Time
	CreatedAt   time.Time
}

type Payments interface {
	// Insert creates a pending request; an ext_id unique violation maps to
	// ErrExternalIDTaken.
	Insert(tx *sql.Tx, p *PaymentRequest) error
	// LockByExtID takes a FOR UPDATE lock on the request row.
	LockByExtID(tx *sql.Tx, extID string) (*PaymentRequest, error)
	// MarkProcessed transitions a pending request to a terminal status; it
	// returns ErrAlreadyProcessed when the row is no longer pending.
	MarkProcessed(tx *sql.Tx, id int64, status Status, adminID int64, note *string, at time.Time) error
	ListByAccount(ctx context.Context, accountID int64, status Status) ([]PaymentRequest, error)
	ListByStatus(ctx context.Context, status Status) ([]PaymentRequest, error)
}
