// Package payments drives the deposit/withdrawal lifecycle: requests are
// created pending and transition exactly once, by an admin, to approved or
// rejected. Balance effects are tied to specific transitions; see the method
// docs for which.
package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fastprodman/codemarket/internal/extid"
	"github.com/fastprodman/codemarket/internal/infra/pgutils"
	"github.com/fastprodman/codemarket/internal/metrics"
	"github.com/fastprodman/codemarket/internal/notify"
	"github.com/fastprodman/codemarket/internal/ratelimit"
	"github.com/fastprodman/codemarket/internal/repos/accounts"
	pgaccounts "github.com/fastprodman/codemarket/internal/repos/accounts/postgres"
	paymentsrepo "github.com/fastprodman/codemarket/internal/repos/payments"
	pgpayments "github.com/fastprodman/codemarket/internal/repos/payments/postgres"
)

var (
	ErrInvalidAmount   = errors.New("amount outside policy bounds")
	ErrMissingBankInfo = errors.New("bank destination required")
	ErrForbidden       = errors.New("admin role required")
	ErrRateLimited     = errors.New("too many payment requests")
)

// Policy holds the amount bounds and the per-account request rate limit.
type Policy struct {
	MinDeposit        int64
	MaxDeposit        int64
	MinWithdrawal     int64
	RequestsPerMinute int
}

func DefaultPolicy() Policy {
	return Policy{
		MinDeposit:        10_000,
		MaxDeposit:        10_000_000,
		MinWithdrawal:     10_000,
		RequestsPerMinute: 10,
	}
}

type Service struct {
	accounts  accounts.Accounts
	payments  paymentsrepo.Payments
	publisher notify.Publisher
	limiter   *ratelimit.Limiter
	policy    Policy

	runTx func(ctx context.Context, fn func(*sql.Tx) error) error
}

func New(db *sql.DB, publisher notify.Publisher, limiter *ratelimit.Limiter, policy Policy) *Service {
	return &Service{
		accounts:  pgaccounts.New(db),
		payments:  pgpayments.New(db),
		publisher: publisher,
		limiter:   limiter,
		policy:    policy,
		runTx: func(ctx context.Context, fn func(*sql.Tx) error) error {
			return pgutils.WithTx(ctx, db, fn)
		},
	}
}

// requireAdmin is the single capability check for every state transition.
func requireAdmin(a *accounts.Account) error {
	if !a.IsAdmin() {
		return ErrForbidden
	}

	return nil
}

// RequestDeposit creates a pending deposit. No balance effect at creation;
// the account is credited only on admin approval.
func (s *Service) RequestDeposit(ctx context.Context, account *accounts.Account, amount int64) (*paymentsrepo.PaymentRequest, error) {
	err := s.consumeRateLimit(ctx, account)
	if err != nil {
		return nil, err
	}

	if amount < s.policy.MinDeposit || amount > s.policy.MaxDeposit {
		return nil, ErrInvalidAmount
	}

	p := &paymentsrepo.PaymentRequest{
		AccountID: account.ID,
		Kind:      paymentsrepo.KindDeposit,
		Amount:    amount,
	}

	err = s.insertWithFreshExtID(ctx, p, func(*sql.Tx) error { return nil })
	if err != nil {
		return nil, fmt.Errorf("request deposit: %w", err)
	}

	metrics.PaymentTransitionsTotal.WithLabelValues(string(p.Kind), "requested").Inc()

	return p, nil
}

// RequestWithdrawal creates a pending withdrawal and debits (reserves) the
// amount immediately; a later reject refunds it, approval pays it out with no
// further balance effect. Reserving up front means an account cannot queue
// withdrawals exceeding its balance.
func (s *Service) RequestWithdrawal(ctx context.Context, account *accounts.Account, amount int64, bank paymentsrepo.BankInfo) (*paymentsrepo.PaymentRequest, error) {
	err := s.consumeRateLimit(ctx, account)
	if err != nil {
		return nil, err
	}

	if amount < s.policy.MinWithdrawal {
		return nil, ErrInvalidAmount
	}
	if bank.BankName == "" || bank.AccountNo == "" || bank.AccountName == "" {
		return nil, ErrMissingBankInfo
	}

	p := &paymentsrepo.PaymentRequest{
		AccountID: account.ID,
		Kind:      paymentsrepo.KindWithdrawal,
		Amount:    amount,
		Bank:      &bank,
	}

	err = s.insertWithFreshExtID(ctx, p, func(tx *sql.Tx) error {
		_, lockErr := s.accounts.LockAndGetBalance(tx, account.ID)
		if lockErr != nil {
			return fmt.Errorf("lock account: %w", lockErr)
		}

		// Reserve the funds; the conditional update fails the whole
		// transaction when the balance can't cover the amount.
		debitErr := s.accounts.DecreaseBalance(tx, account.ID, amount)
		if debitErr != nil {
			return fmt.Errorf("reserve funds: %w", debitErr)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("request withdrawal: %w", err)
	}

	metrics.PaymentTransitionsTotal.WithLabelValues(string(p.Kind), "requested").Inc()

	return p, nil
}

// insertWithFreshExtID runs prepare + Insert in one transaction, regenerating
// the candidate ext ID when the insert collides.
func (s *Service) insertWithFreshExtID(ctx context.Context, p *paymentsrepo.PaymentRequest, prepare func(tx *sql.Tx) error) error {
	for {
		p.ExtID = extid.New(extid.KindPayment)

		err := s.runTx(ctx, func(tx *sql.Tx) error {
			prepErr := prepare(tx)
			if prepErr != nil {
				return prepErr
			}

			return s.payments.Insert(tx, p)
		})
		if errors.Is(err, paymentsrepo.ErrExternalIDTaken) {
			continue
		}

		return err
	}
}

// Approve transitions a pending request to approved. Deposits credit the
// owning account here; withdrawals have no balance effect (the funds were
// reserved at request time and now leave the platform).
func (s *Service) Approve(ctx context.Context, admin *accounts.Account, paymentExtID string, note *string) error {
	return s.process(ctx, admin, paymentExtID, paymentsrepo.StatusApproved, note)
}

// Reject transitions a pending request to rejected. Withdrawals refund the
// reserved amount; deposits have no balance effect.
func (s *Service) Reject(ctx context.Context, admin *accounts.Account, paymentExtID string, note *string) error {
	return s.process(ctx, admin, paymentExtID, paymentsrepo.StatusRejected, note)
}

func (s *Service) process(ctx context.Context, admin *accounts.Account, paymentExtID string, status paymentsrepo.Status, note *string) error {
	err := requireAdmin(admin)
	if err != nil {
		return err
	}

	var processed *paymentsrepo.PaymentRequest

	err = s.runTx(ctx, func(tx *sql.Tx) error {
		p, txErr := s.payments.LockByExtID(tx, paymentExtID)
		if txErr != nil {
			return fmt.Errorf("lock payment request: %w", txErr)
		}

		if p.Status != paymentsrepo.StatusPending {
			return paymentsrepo.ErrAlreadyProcessed
		}

		credit := p.Kind == paymentsrepo.KindDeposit && status == paymentsrepo.StatusApproved ||
			p.Kind == paymentsrepo.KindWithdrawal && status == paymentsrepo.StatusRejected
		if credit {
			_, txErr = s.accounts.LockAndGetBalance(tx, p.AccountID)
			if txErr != nil {
				return fmt.Errorf("lock account: %w", txErr)
			}

			txErr = s.accounts.IncreaseBalance(tx, p.AccountID, p.Amount)
			if txErr != nil {
				return fmt.Errorf("credit account: %w", txErr)
			}
		}

		txErr = s.payments.MarkProcessed(tx, p.ID, status, admin.ID, note, time.Now().UTC())
		if txErr != nil {
			return fmt.Errorf("mark processed: %w", txErr)
		}

		processed = p

		return nil
	})
	if err != nil {
		return fmt.Errorf("process payment request: %w", err)
	}

	metrics.PaymentTransitionsTotal.WithLabelValues(string(processed.Kind), string(status)).Inc()
	s.notifyOwner(ctx, processed, status)

	return nil
}

// notifyOwner is fire-and-forget; failures are logged and swallowed.
func (s *Service) notifyOwner(ctx context.Context, p *paymentsrepo.PaymentRequest, status paymentsrepo.Status) {
	owner, err := s.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		slog.Error("resolve owner for notification", "payment", p.ExtID, "error", err)
		return
	}

	event := notify.PaymentProcessed{
		EventID:      uuid.New(),
		PaymentExtID: p.ExtID,
		AccountExtID: owner.ExtID,
		Kind:         string(p.Kind),
		Status:       string(status),
		Amount:       p.Amount,
		OccurredAt:   time.Now().UTC(),
	}

	err = s.publisher.Publish(ctx, "payment.processed", event)
	if err != nil {
		slog.Error("publish payment.processed", "payment", p.ExtID, "error", err)
	}
}

// List returns the caller's own requests. Admins with a status filter get
// the cross-account queue for that status instead (the approval worklist).
func (s *Service) List(ctx context.Context, caller *accounts.Account, status paymentsrepo.Status) ([]paymentsrepo.PaymentRequest, error) {
	if caller.IsAdmin() && status != "" {
		list, err := s.payments.ListByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("list by status: %w", err)
		}

		return list, nil
	}

	list, err := s.payments.ListByAccount(ctx, caller.ID, status)
	if err != nil {
		return nil, fmt.Errorf("list by account: %w", err)
	}

	return list, nil
}

// GetBalance returns the account's balance (no locks; read endpoint).
func (s *Service) GetBalance(ctx context.Context, accountExtID string) (int64, error) {
	account, err := s.accounts.GetByExtID(ctx, accountExtID)
	if err != nil {
		return 0, fmt.Errorf("resolve account: %w", err)
	}

	return account.Balance, nil
}

// consumeRateLimit fails open: a limiter outage must not block deposits.
func (s *Service) consumeRateLimit(ctx context.Context, account *accounts.Account) error {
	if s.policy.RequestsPerMinute <= 0 {
		return nil
	}

	count, _, err := s.limiter.Consume(ctx, "payment_request", account.ExtID, time.Minute)
	if err != nil {
		slog.Warn("rate limiter unavailable", "account", account.ExtID, "error", err)
		return nil
	}

	if count > s.policy.RequestsPerMinute {
		return ErrRateLimited
	}

	return nil
}
