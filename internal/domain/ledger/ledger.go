package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mlevkov/partnerhub/internal/domain/accounts"
)

var (
	ErrAmountInvalid = errors.New("ledger amount is invalid")
	ErrKindInvalid   = errors.New("ledger entry kind is invalid")
)

// EntryKind discriminates the two signs a ledger entry can carry.
type EntryKind string

const (
	// KindBonus credits the account: commission accruals and rejection
	// reversals.
	KindBonus EntryKind = "bonus"

	// KindWithdrawal debits the account at withdrawal request time.
	KindWithdrawal EntryKind = "withdrawal"
)

func ValidateKind(kind EntryKind) error {
	if kind != KindBonus && kind != KindWithdrawal {
		return ErrKindInvalid
	}

	return nil
}

// Entry is one immutable ledger record. The ledger is append-only:
// corrections are new offsetting entries, never updates.
type Entry struct {
	id          string
	login       string
	kind        EntryKind
	amount      decimal.Decimal
	description string
	createdAt   time.Time
}

func NewEntry(login string, kind EntryKind, amount decimal.Decimal, description string) (*Entry, error) {
	if err := accounts.ValidateLogin(login); err != nil {
		return nil, err
	}

	if err := ValidateKind(kind); err != nil {
		return nil, err
	}

	if amount.IsNegative() {
		return nil, ErrAmountInvalid
	}

	return &Entry{
		id:          uuid.NewString(),
		login:       login,
		kind:        kind,
		amount:      amount,
		description: description,
		createdAt:   time.Now(),
	}, nil
}

func RestoreEntry(id, login string, kind EntryKind, amount decimal.Decimal, description string, createdAt time.Time) *Entry {
	return &Entry{
		id:          id,
		login:       login,
		kind:        kind,
		amount:      amount,
		description: description,
		createdAt:   createdAt,
	}
}

func (e *Entry) ID() string {
	return e.id
}

func (e *Entry) Login() string {
	return e.login
}

func (e *Entry) Kind() EntryKind {
	return e.kind
}

func (e *Entry) Amount() decimal.Decimal {
	return e.amount
}

func (e *Entry) Description() string {
	return e.description
}

func (e *Entry) CreatedAt() time.Time {
	return e.createdAt
}

// SumByKind folds the amounts of all entries of the given kind.
func SumByKind(entries []*Entry, kind EntryKind) decimal.Decimal {
	sum := decimal.Zero

	for _, entry := range entries {
		if entry.kind == kind {
			sum = sum.Add(entry.amount)
		}
	}

	return sum
}

// Balance folds the available balance: sum of bonuses minus sum of
// withdrawals. It is always derived from the log, never stored.
func Balance(entries []*Entry) decimal.Decimal {
	return SumByKind(entries, KindBonus).Sub(SumByKind(entries, KindWithdrawal))
}
