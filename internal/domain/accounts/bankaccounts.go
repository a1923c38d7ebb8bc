package accounts

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBankNameEmpty   = errors.New("bank name is empty")
	ErrBankNumberEmpty = errors.New("bank account number is empty")
)

// BankAccount is a payout destination owned by one account.
type BankAccount struct {
	id        string
	login     string
	bankName  string
	number    string
	createdAt time.Time
}

func NewBankAccount(login, bankName, number string) (*BankAccount, error) {
	if err := ValidateLogin(login); err != nil {
		return nil, err
	}

	if bankName == "" {
		return nil, ErrBankNameEmpty
	}

	if number == "" {
		return nil, ErrBankNumberEmpty
	}

	return &BankAccount{
		id:        uuid.NewString(),
		login:     login,
		bankName:  bankName,
		number:    number,
		createdAt: time.Now(),
	}, nil
}

func RestoreBankAccount(id, login, bankName, number string, createdAt time.Time) *BankAccount {
	return &BankAccount{
		id:        id,
		login:     login,
		bankName:  bankName,
		number:    number,
		createdAt: createdAt,
	}
}

func (b *BankAccount) ID() string {
	return b.id
}

func (b *BankAccount) Login() string {
	return b.login
}

func (b *BankAccount) BankName() string {
	return b.bankName
}

func (b *BankAccount) Number() string {
	return b.number
}

func (b *BankAccount) CreatedAt() time.Time {
	return b.createdAt
}
