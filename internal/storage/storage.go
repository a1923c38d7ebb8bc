package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mlevkov/partnerhub/internal/domain/accounts"
	"github.com/mlevkov/partnerhub/internal/domain/ledger"
	"github.com/mlevkov/partnerhub/internal/domain/payouts"
)

var (
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountNotFound      = errors.New("account not found")
	ErrBankAccountNotFound  = errors.New("bank account not found")
	ErrWithdrawalNotFound   = errors.New("withdrawal request not found")
)

type AccountStorage interface {
	CreateAccount(ctx context.Context, acc *accounts.Account) error
	GetAccount(ctx context.Context, login string) (*accounts.Account, error)
	UpdateAccountTwoFA(ctx context.Context, acc *accounts.Account) error
	CreateBankAccount(ctx context.Context, ba *accounts.BankAccount) error
	GetBankAccount(ctx context.Context, id string) (*accounts.BankAccount, error)
	GetBankAccountsByLogin(ctx context.Context, login string) ([]*accounts.BankAccount, error)
}

type LedgerStorage interface {
	AppendEntry(ctx context.Context, entry *ledger.Entry) error
	GetEntriesByLogin(ctx context.Context, login string) ([]*ledger.Entry, error)
	SumEntriesByKind(ctx context.Context, login string, kind ledger.EntryKind) (decimal.Decimal, error)
}

type WithdrawalStorage interface {
	// CreateWithdrawal persists the pending request together with its
	// ledger debit.
	CreateWithdrawal(ctx context.Context, req *payouts.WithdrawalRequest, debit *ledger.Entry) error
	GetWithdrawal(ctx context.Context, id string) (*payouts.WithdrawalRequest, error)
	// ReviewWithdrawal persists a reviewed request; reversal is non-nil
	// only for rejections and is appended alongside the status change.
	ReviewWithdrawal(ctx context.Context, req *payouts.WithdrawalRequest, reversal *ledger.Entry) error
	GetWithdrawalsByLogin(ctx context.Context, login string) ([]*payouts.WithdrawalRequest, error)
	GetWithdrawalsByStatus(ctx context.Context, statuses []payouts.Status, limit, offset int) ([]*payouts.WithdrawalRequest, error)
	GetUnnotifiedReviewed(ctx context.Context, limit int) ([]*payouts.WithdrawalRequest, error)
	MarkWithdrawalNotified(ctx context.Context, id string) error
}

type Storage interface {
	AccountStorage
	LedgerStorage
	WithdrawalStorage
	Close() error
	Ping(ctx context.Context) error
}

func NewStorage(store Storage) Storage {
	return store
}

// Balance derives the available balance from the ledger sums.
func Balance(ctx context.Context, store LedgerStorage, login string) (decimal.Decimal, error) {
	bonus, err := store.SumEntriesByKind(ctx, login, ledger.KindBonus)
	if err != nil {
		return decimal.Zero, err
	}

	withdrawn, err := store.SumEntriesByKind(ctx, login, ledger.KindWithdrawal)
	if err != nil {
		return decimal.Zero, err
	}

	return bonus.Sub(withdrawn), nil
}
