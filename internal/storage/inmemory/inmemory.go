package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mlevkov/partnerhub/internal/domain/accounts"
	"github.com/mlevkov/partnerhub/internal/domain/ledger"
	"github.com/mlevkov/partnerhub/internal/domain/payouts"
	"github.com/mlevkov/partnerhub/internal/storage"
)

var _ storage.Storage = (*Storage)(nil)

type AccountStore struct {
	accounts map[string]*accounts.Account
	mu       sync.Mutex
}

type BankAccountStore struct {
	bankAccounts map[string]*accounts.BankAccount
	mu           sync.Mutex
}

type LedgerStore struct {
	entries map[string][]*ledger.Entry
	mu      sync.Mutex
}

type WithdrawalStore struct {
	withdrawals map[string]*payouts.WithdrawalRequest
	mu          sync.Mutex
}

type Storage struct {
	AccountStore     AccountStore
	BankAccountStore BankAccountStore
	LedgerStore      LedgerStore
	WithdrawalStore  WithdrawalStore
}

func NewStorage() *Storage {
	return &Storage{
		AccountStore: AccountStore{
			accounts: make(map[string]*accounts.Account),
		},
		BankAccountStore: BankAccountStore{
			bankAccounts: make(map[string]*accounts.BankAccount),
		},
		LedgerStore: LedgerStore{
			entries: make(map[string][]*ledger.Entry),
		},
		WithdrawalStore: WithdrawalStore{
			withdrawals: make(map[string]*payouts.WithdrawalRequest),
		},
	}
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

func (s *Storage) CreateAccount(_ context.Context, acc *accounts.Account) error {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	if _, ok := s.AccountStore.accounts[acc.Login()]; ok {
		return storage.ErrAccountAlreadyExists
	}

	s.AccountStore.accounts[acc.Login()] = acc

	return nil
}

func (s *Storage) GetAccount(_ context.Context, login string) (*accounts.Account, error) {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	acc, ok := s.AccountStore.accounts[login]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}

	return acc, nil
}

func (s *Storage) UpdateAccountTwoFA(_ context.Context, acc *accounts.Account) error {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	if _, ok := s.AccountStore.accounts[acc.Login()]; !ok {
		return storage.ErrAccountNotFound
	}

	s.AccountStore.accounts[acc.Login()] = acc

	return nil
}

func (s *Storage) CreateBankAccount(_ context.Context, ba *accounts.BankAccount) error {
	s.BankAccountStore.mu.Lock()
	defer s.BankAccountStore.mu.Unlock()

	s.BankAccountStore.bankAccounts[ba.ID()] = ba

	return nil
}

func (s *Storage) GetBankAccount(_ context.Context, id string) (*accounts.BankAccount, error) {
	s.BankAccountStore.mu.Lock()
	defer s.BankAccountStore.mu.Unlock()

	ba, ok := s.BankAccountStore.bankAccounts[id]
	if !ok {
		return nil, storage.ErrBankAccountNotFound
	}

	return ba, nil
}

func (s *Storage) GetBankAccountsByLogin(_ context.Context, login string) ([]*accounts.BankAccount, error) {
	s.BankAccountStore.mu.Lock()
	defer s.BankAccountStore.mu.Unlock()

	var bankAccounts []*accounts.BankAccount
	for _, ba := range s.BankAccountStore.bankAccounts {
		if ba.Login() == login {
			bankAccounts = append(bankAccounts, ba)
		}
	}

	sort.Slice(bankAccounts, func(i, j int) bool {
		return bankAccounts[i].CreatedAt().Before(bankAccounts[j].CreatedAt())
	})

	return bankAccounts, nil
}

func (s *Storage) AppendEntry(_ context.Context, entry *ledger.Entry) error {
	s.LedgerStore.mu.Lock()
	defer s.LedgerStore.mu.Unlock()

	s.LedgerStore.entries[entry.Login()] = append(s.LedgerStore.entries[entry.Login()], entry)

	return nil
}

func (s *Storage) GetEntriesByLogin(_ context.Context, login string) ([]*ledger.Entry, error) {
	s.LedgerStore.mu.Lock()
	defer s.LedgerStore.mu.Unlock()

	entries := make([]*ledger.Entry, len(s.LedgerStore.entries[login]))
	copy(entries, s.LedgerStore.entries[login])

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt().After(entries[j].CreatedAt())
	})

	return entries, nil
}

func (s *Storage) SumEntriesByKind(_ context.Context, login string, kind ledger.EntryKind) (decimal.Decimal, error) {
	s.LedgerStore.mu.Lock()
	defer s.LedgerStore.mu.Unlock()

	return ledger.SumByKind(s.LedgerStore.entries[login], kind), nil
}

func (s *Storage) CreateWithdrawal(ctx context.Context, req *payouts.WithdrawalRequest, debit *ledger.Entry) error {
	s.WithdrawalStore.mu.Lock()
	s.WithdrawalStore.withdrawals[req.ID()] = req
	s.WithdrawalStore.mu.Unlock()

	return s.AppendEntry(ctx, debit)
}

func (s *Storage) GetWithdrawal(_ context.Context, id string) (*payouts.WithdrawalRequest, error) {
	s.WithdrawalStore.mu.Lock()
	defer s.WithdrawalStore.mu.Unlock()

	req, ok := s.WithdrawalStore.withdrawals[id]
	if !ok {
		return nil, storage.ErrWithdrawalNotFound
	}

	return req, nil
}

func (s *Storage) ReviewWithdrawal(ctx context.Context, req *payouts.WithdrawalRequest, reversal *ledger.Entry) error {
	s.WithdrawalStore.mu.Lock()

	if _, ok := s.WithdrawalStore.withdrawals[req.ID()]; !ok {
		s.WithdrawalStore.mu.Unlock()

		return storage.ErrWithdrawalNotFound
	}

	s.WithdrawalStore.withdrawals[req.ID()] = req
	s.WithdrawalStore.mu.Unlock()

	if reversal == nil {
		return nil
	}

	return s.AppendEntry(ctx, reversal)
}

func (s *Storage) GetWithdrawalsByLogin(_ context.Context, login string) ([]*payouts.WithdrawalRequest, error) {
	s.WithdrawalStore.mu.Lock()
	defer s.WithdrawalStore.mu.Unlock()

	var requests []*payouts.WithdrawalRequest
	for _, req := range s.WithdrawalStore.withdrawals {
		if req.Login() == login {
			requests = append(requests, req)
		}
	}

	sortByCreatedDesc(requests)

	return requests, nil
}

func (s *Storage) GetWithdrawalsByStatus(_ context.Context, statuses []payouts.Status, limit, offset int) ([]*payouts.WithdrawalRequest, error) {
	s.WithdrawalStore.mu.Lock()
	defer s.WithdrawalStore.mu.Unlock()

	wanted := make(map[payouts.Status]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}

	var requests []*payouts.WithdrawalRequest
	for _, req := range s.WithdrawalStore.withdrawals {
		if len(wanted) == 0 || wanted[req.Status()] {
			requests = append(requests, req)
		}
	}

	sortByCreatedDesc(requests)

	if offset >= len(requests) {
		return nil, nil
	}

	requests = requests[offset:]

	if limit > 0 && limit < len(requests) {
		requests = requests[:limit]
	}

	return requests, nil
}

func (s *Storage) GetUnnotifiedReviewed(_ context.Context, limit int) ([]*payouts.WithdrawalRequest, error) {
	s.WithdrawalStore.mu.Lock()
	defer s.WithdrawalStore.mu.Unlock()

	var requests []*payouts.WithdrawalRequest
	for _, req := range s.WithdrawalStore.withdrawals {
		if req.Reviewed() && req.NotifiedAt().IsZero() {
			requests = append(requests, req)
		}
	}

	sortByCreatedDesc(requests)

	if limit > 0 && limit < len(requests) {
		requests = requests[:limit]
	}

	return requests, nil
}

func (s *Storage) MarkWithdrawalNotified(_ context.Context, id string) error {
	s.WithdrawalStore.mu.Lock()
	defer s.WithdrawalStore.mu.Unlock()

	req, ok := s.WithdrawalStore.withdrawals[id]
	if !ok {
		return storage.ErrWithdrawalNotFound
	}

	req.MarkNotified()

	return nil
}

func sortByCreatedDesc(requests []*payouts.WithdrawalRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt().After(requests[j].CreatedAt())
	})
}
