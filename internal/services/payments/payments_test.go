package payments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/fastprodman/codemarket/internal/repos/accounts"
	paymentsrepo "github.com/fastprodman/codemarket/internal/repos/payments"
)

// The nil limiter disables rate limiting, so unit tests never touch Redis.
func newTestService(acc *mockAccounts, pay *mockPayments, pub *mockPublisher) *Service {
	return &Service{
		accounts:  acc,
		payments:  pay,
		publisher: pub,
		policy:    DefaultPolicy(),
		runTx:     stubTx,
	}
}

func standardAccount() *accounts.Account {
	return &accounts.Account{ID: 11, ExtID: "ACC-TESTUSER01", Role: accounts.RoleStandard, Balance: 500_000}
}

func adminAccount() *accounts.Account {
	return &accounts.Account{ID: 1, ExtID: "ACC-TESTADMIN1", Role: accounts.RoleAdmin}
}

func validBank() paymentsrepo.BankInfo {
	return paymentsrepo.BankInfo{BankName: "First National", AccountNo: "0011223344", AccountName: "Test User"}
}

func TestRequestDeposit_AmountBounds(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()
	tests := []struct {
		name    string
		amount  int64
		wantErr bool
	}{
		{name: "below_min", amount: policy.MinDeposit - 1, wantErr: true},
		{name: "at_min", amount: policy.MinDeposit, wantErr: false},
		{name: "at_max", amount: policy.MaxDeposit, wantErr: false},
		{name: "above_max", amount: policy.MaxDeposit + 1, wantErr: true},
		{name: "zero", amount: 0, wantErr: true},
		{name: "negative", amount: -1_000, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			acc := new(mockAccounts)
			pay := new(mockPayments)
			pub := new(mockPublisher)

			if !tt.wantErr {
				pay.On("Insert", mock.Anything, mock.Anything).Return(nil)
			}

			s := newTestService(acc, pay, pub)

			p, err := s.RequestDeposit(context.Background(), standardAccount(), tt.amount)

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("want ErrInvalidAmount, got %v", err)
				}
				pay.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
				return
			}

			if err != nil {
				t.Fatalf("request deposit: %v", err)
			}
			if !strings.HasPrefix(p.ExtID, "PAY-") {
				t.Errorf("ext id %q missing PAY- prefix", p.ExtID)
			}
			if p.Kind != paymentsrepo.KindDeposit {
				t.Errorf("kind: want deposit, got %s", p.Kind)
			}
			// A deposit request must not touch the ledger until approval.
			acc.AssertNotCalled(t, "IncreaseBalance", mock.Anything, mock.Anything, mock.Anything)
			acc.AssertNotCalled(t, "DecreaseBalance", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRequestWithdrawal_ReservesFunds(t *testing.T) {
	t.Parallel()

	acc := new(mockAccounts)
	pay := new(mockPayments)
	pub := new(mockPublisher)

	account := standardAccount()
	amount := int64(50_000)

	acc.On("LockAndGetBalance", mock.Anything, account.ID).Return(account.Balance, nil)
	acc.On("DecreaseBalance", mock.Anything, account.ID, amount).Return(nil)
	pay.On("Insert", mock.Anything, mock.Anything).Return(nil)

	s := newTestService(acc, pay, pub)

	p, err := s.RequestWithdrawal(context.Background(), account, amount, validBank())
	if err != nil {
		t.Fatalf("request withdrawal: %v", err)
	}

	if p.Kind != paymentsrepo.KindWithdrawal {
		t.Errorf("kind: want withdrawal, got %s", p.Kind)
	}
	if p.Bank == nil || p.Bank.AccountNo != "0011223344" {
		t.Errorf("bank info not carried on the request: %+v", p.Bank)
	}

	acc.AssertExpectations(t)
	pay.AssertExpectations(t)
}

func TestRequestWithdrawal_InsufficientFunds(t *testing.T) {
	t.Parallel()

	acc := new(mockAccounts)
	pay := new(mockPayments)
	pub := new(mockPublisher)

	account := standardAccount()

	acc.On("LockAndGetBalance", mock.Anything, account.ID).Return(int64(10_000), nil)
	acc.On("DecreaseBalance", mock.Anything, account.ID, int64(50_000)).
		Return(accounts.ErrInsufficientFunds)

	s := newTestService(acc, pay, pub)

	_, err := s.RequestWithdrawal(context.Background(), account, 50_000, validBank())
	if !errors.Is(err, accounts.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}

	// The reserve failed inside the transaction, so no request row exists.
	pay.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestRequestWithdrawal_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		amount  int64
		bank    paymentsrepo.BankInfo
		wantErr error
	}{
		{name: "below_min", amount: 9_999, bank: validBank(), wantErr: ErrInvalidAmount},
		{name: "no_bank_name", amount: 50_000, bank: paymentsrepo.BankInfo{AccountNo: "1", AccountName: "x"}, wantErr: ErrMissingBankInfo},
		{name: "no_account_no", amount: 50_000, bank: paymentsrepo.BankInfo{BankName: "b", AccountName: "x"}, wantErr: ErrMissingBankInfo},
		{name: "no_account_name", amount: 50_000, bank: paymentsrepo.BankInfo{BankName: "b", AccountNo: "1"}, wantErr: ErrMissingBankInfo},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			acc := new(mockAccounts)
			pay := new(mockPayments)

			s := newTestService(acc, pay, new(mockPublisher))

			_, err := s.RequestWithdrawal(context.Background(), standardAccount(), tt.amount, tt.bank)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}

			acc.AssertNotCalled(t, "DecreaseBalance", mock.Anything, mock.Anything, mock.Anything)
			pay.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		})
	}
}

func TestProcess_RequiresAdmin(t *testing.T) {
	t.Parallel()

	acc := new(mockAccounts)
	pay := new(mockPayments)

	s := newTestService(acc, pay, new(mockPublisher))

	err := s.Approve(context.Background(), standardAccount(), "PAY-TESTREQ001", nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("approve by non-admin: want ErrForbidden, got %v", err)
	}

	err = s.Reject(context.Background(), standardAccount(), "PAY-TESTREQ001", nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("reject by non-admin: want ErrForbidden, got %v", err)
	}

	pay.AssertNotCalled(t, "LockByExtID", mock.Anything, mock.Anything)
}

// Balance effects per (kind, transition): only deposit-approve and
// withdrawal-reject credit the account.
func TestProcess_BalanceEffects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		kind       paymentsrepo.Kind
		approve    bool
		wantCredit bool
	}{
		{name: "deposit_approve_credits", kind: paymentsrepo.KindDeposit, approve: true, wantCredit: true},
		{name: "deposit_reject_no_effect", kind: paymentsrepo.KindDeposit, approve: false, wantCredit: false},
		{name: "withdrawal_approve_no_effect", kind: paymentsrepo.KindWithdrawal, approve: true, wantCredit: false},
		{name: "withdrawal_reject_refunds", kind: paymentsrepo.KindWithdrawal, approve: false, wantCredit: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			acc := new(mockAccounts)
			pay := new(mockPayments)
			pub := new(mockPublisher)

			admin := adminAccount()
			pending := &paymentsrepo.PaymentRequest{
				ID:        42,
				ExtID:     "PAY-TESTREQ001",
				AccountID: 11,
				Kind:      tt.kind,
				Amount:    50_000,
				Status:    paymentsrepo.StatusPending,
			}

			wantStatus := paymentsrepo.StatusRejected
			if tt.approve {
				wantStatus = paymentsrepo.StatusApproved
			}

			pay.On("LockByExtID", mock.Anything, pending.ExtID).Return(pending, nil)
			if tt.wantCredit {
				acc.On("LockAndGetBalance", mock.Anything, pending.AccountID).Return(int64(0), nil)
				acc.On("IncreaseBalance", mock.Anything, pending.AccountID, pending.Amount).Return(nil)
			}
			pay.On("MarkProcessed", mock.Anything, pending.ID, wantStatus, admin.ID, mock.Anything, mock.Anything).
				Return(nil)
			acc.On("GetByID", mock.Anything, pending.AccountID).
				Return(&accounts.Account{ID: 11, ExtID: "ACC-TESTUSER01"}, nil)
			pub.On("Publish", mock.Anything, "payment.processed", mock.Anything).Return(nil)

			s := newTestService(acc, pay, pub)

			var err error
			if tt.approve {
				err = s.Approve(context.Background(), admin, pending.ExtID, nil)
			} else {
				err = s.Reject(context.Background(), admin, pending.ExtID, nil)
			}
			if err != nil {
				t.Fatalf("process: %v", err)
			}

			if !tt.wantCredit {
				acc.AssertNotCalled(t, "IncreaseBalance", mock.Anything, mock.Anything, mock.Anything)
			}
			acc.AssertNotCalled(t, "DecreaseBalance", mock.Anything, mock.Anything, mock.Anything)
			pay.AssertExpectations(t)
		})
	}
}

func TestProcess_AlreadyProcessed(t *testing.T) {
	t.Parallel()

	acc := new(mockAccounts)
	pay := new(mockPayments)

	terminal := &paymentsrepo.PaymentRequest{
		ID:        42,
		ExtID:     "PAY-TESTREQ001",
		AccountID: 11,
		Kind:      paymentsrepo.KindDeposit,
		Amount:    50_000,
		Status:    paymentsrepo.StatusApproved,
	}

	pay.On("LockByExtID", mock.Anything, terminal.ExtID).Return(terminal, nil)

	s := newTestService(acc, pay, new(mockPublisher))

	err := s.Reject(context.Background(), adminAccount(), terminal.ExtID, nil)
	if !errors.Is(err, paymentsrepo.ErrAlreadyProcessed) {
		t.Fatalf("want ErrAlreadyProcessed, got %v", err)
	}

	// A terminal request is never revisited: no credit, no second mark.
	acc.AssertNotCalled(t, "IncreaseBalance", mock.Anything, mock.Anything, mock.Anything)
	pay.AssertNotCalled(t, "MarkProcessed",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInsertWithFreshExtID_RetriesOnCollision(t *testing.T) {
	t.Parallel()

	acc := new(mockAccounts)
	pay := new(mockPayments)

	var seen []string
	pay.On("Insert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			p := args.Get(1).(*paymentsrepo.PaymentRequest)
			seen = append(seen, p.ExtID)
		}).
		Return(paymentsrepo.ErrExternalIDTaken).Once()
	pay.On("Insert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			p := args.Get(1).(*paymentsrepo.PaymentRequest)
			seen = append(seen, p.ExtID)
		}).
		Return(nil).Once()

	s := newTestService(acc, pay, new(mockPublisher))

	p, err := s.RequestDeposit(context.Background(), standardAccount(), 50_000)
	if err != nil {
		t.Fatalf("deposit after collision: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("insert attempts: want 2, got %d", len(seen))
	}
	if seen[0] == seen[1] {
		t.Fatalf("colliding ext id %q was not regenerated", seen[0])
	}
	if p.ExtID != seen[1] {
		t.Errorf("returned request carries ext id %q, last attempt was %q", p.ExtID, seen[1])
	}
}

func TestList_AdminQueueVsOwnHistory(t *testing.T) {
	t.Parallel()

	t.Run("admin_with_status_gets_cross_account_queue", func(t *testing.T) {
		t.Parallel()

		pay := new(mockPayments)
		pay.On("ListByStatus", mock.Anything, paymentsrepo.StatusPending).
			Return([]paymentsrepo.PaymentRequest{{ID: 1}, {ID: 2}}, nil)

		s := newTestService(new(mockAccounts), pay, new(mockPublisher))

		list, err := s.List(context.Background(), adminAccount(), paymentsrepo.StatusPending)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("queue length: want 2, got %d", len(list))
		}
		pay.AssertNotCalled(t, "ListByAccount", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin_without_status_gets_own_history", func(t *testing.T) {
		t.Parallel()

		pay := new(mockPayments)
		admin := adminAccount()
		pay.On("ListByAccount", mock.Anything, admin.ID, paymentsrepo.Status("")).
			Return([]paymentsrepo.PaymentRequest{}, nil)

		s := newTestService(new(mockAccounts), pay, new(mockPublisher))

		_, err := s.List(context.Background(), admin, "")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		pay.AssertExpectations(t)
	})

	t.Run("standard_caller_gets_own_history", func(t *testing.T) {
		t.Parallel()

		pay := new(mockPayments)
		caller := standardAccount()
		pay.On("ListByAccount", mock.Anything, caller.ID, paymentsrepo.StatusPending).
			Return([]paymentsrepo.PaymentRequest{{ID: 3}}, nil)

		s := newTestService(new(mockAccounts), pay, new(mockPublisher))

		list, err := s.List(context.Background(), caller, paymentsrepo.StatusPending)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("history length: want 1, got %d", len(list))
		}
		pay.AssertNotCalled(t, "ListByStatus", mock.Anything, mock.Anything)
	})
}

func TestGetBalance(t *testing.T) {
	t.Parallel()

	acc := new(mockAccounts)
	acc.On("GetByExtID", mock.Anything, "ACC-TESTUSER01").
		Return(&accounts.Account{ID: 11, ExtID: "ACC-TESTUSER01", Balance: 123_456}, nil)

	s := newTestService(acc, new(mockPayments), new(mockPublisher))

	balance, err := s.GetBalance(context.Background(), "ACC-TESTUSER01")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 123_456 {
		t.Errorf("balance: want 123456, got %d", balance)
	}
}

func TestGetBalance_UnknownAccount(t *testing.T) {
	t.Parallel()

	acc := new(mockAccounts)
	acc.On("GetByExtID", mock.Anything, "ACC-MISSING001").
		Return(nil, accounts.ErrAccountNotFound)

	s := newTestService(acc, new(mockPayments), new(mockPublisher))

	_, err := s.GetBalance(context.Background(), "ACC-MISSING001")
	if !errors.Is(err, accounts.ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
}
