package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/codemarket/internal/infra/pgutils"
	"github.com/fastprodman/codemarket/internal/repos/payments"
)

var _ payments.Payments = (*paymentsRepo)(nil)

type paymentsRepo struct{ db *sql.DB }

func New(db *sql.DB) *paymentsRepo {
	return &paymentsRepo{db: db}
}

func (r *paymentsRepo) Insert(tx *sql.Tx, p *payments.PaymentRequest) error {
	var bankName, bankNo, bankAccName *string
	if p.Bank != nil {
		bankName, bankNo, bankAccName = &p.Bank.BankName, &p.Bank.AccountNo, &p.Bank.AccountName
	}

	err := tx.QueryRow(`
		INSERT INTO payment_requests
			(ext_id, account_id, kind, amount, status,
			 bank_name, bank_account_no, bank_account_name)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7)
		RETURNING id, created_at
	`, p.ExtID, p.AccountID, p.Kind, p.Amount,
		bankName, bankNo, bankAccName).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err, "payment_requests_ext_id_key") {
			return payments.ErrExternalIDTaken
		}

		return fmt.Errorf("insert payment request: %w", err)
	}

	p.Status = payments.StatusPending

	return nil
}

func (r *paymentsRepo) LockByExtID(tx *sql.Tx, extID string) (*payments.PaymentRequest, error) {
	row := tx.QueryRow(`
		SELECT `+paymentColumns+`
		FROM payment_requests
		WHERE ext_id = $1
		FOR UPDATE
	`, extID)

	p, err := scanPayment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payments.ErrPaymentNotFound
		}

		return nil, fmt.Errorf("lock payment request: %w", err)
	}

	return p, nil
}

func (r *paymentsRepo) MarkProcessed(tx *sql.Tx, id int64, status payments.Status, adminID int64, note *string, at time.Time) error {
	res, err := tx.Exec(`
		UPDATE payment_requests
		SET status = $2, processed_by = $3, processed_at = $4, note = $5
		WHERE id = $1
		  AND status = 'pending'
	`, id, status, adminID, at, note)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return payments.ErrAlreadyProcessed
	}

	return nil
}

func (r *paymentsRepo) ListByAccount(ctx context.Context, accountID int64, status payments.Status) ([]payments.PaymentRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payment_requests
		WHERE account_id = $1
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`, accountID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list payment requests: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func (r *paymentsRepo) ListByStatus(ctx context.Context, status payments.Status) ([]payments.PaymentRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payment_requests
		WHERE status = $1
		ORDER BY created_at DESC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list payment requests by status: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

const paymentColumns = `id, ext_id, account_id, kind, amount, status,
	bank_name, bank_account_no, bank_account_name, note,
	processed_by, processed_at, created_at`

func scanPayment(scan func(...any) error) (*payments.PaymentRequest, error) {
	var (
		p                        payments.PaymentRequest
		bankName, bankNo, bankAN *string
	)

	err := scan(
		&p.ID, &p.ExtID, &p.AccountID, &p.Kind, &p.Amount, &p.Status,
		&bankName, &bankNo, &bankAN, &p.Note,
		&p.ProcessedBy, &p.ProcessedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if bankName != nil || bankNo != nil || bankAN != nil {
		p.Bank = &payments.BankInfo{}
		if bankName != nil {
			p.Bank.BankName = *bankName
		}
		if bankNo != nil {
			p.Bank.AccountNo = *bankNo
		}
		if bankAN != nil {
			p.Bank.AccountName = *bankAN
		}
	}

	return &p, nil
}

func collectPayments(rows *sql.Rows) ([]payments.PaymentRequest, error) {
	var out []payments.PaymentRequest

	for rows.Next() {
		p, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan payment request: %w", err)
		}

		out = append(out, *p)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate payment requests: %w", err)
	}

	return out, nil
}
