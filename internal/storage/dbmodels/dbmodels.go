package dbmodels

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID           string
	Login        string
	PasswordHash string
	TwoFAState   string
	Secret       sql.NullString
	TmpSecret    sql.NullString
}

type BankAccount struct {
	ID        string
	Login     string
	BankName  string
	Number    string
	CreatedAt time.Time
}

type LedgerEntry struct {
	ID          string
	Login       string
	Kind        string
	Amount      decimal.Decimal
	Description sql.NullString
	CreatedAt   time.Time
}

type WithdrawalRequest struct {
	ID            string
	Login         string
	Amount        decimal.Decimal
	BankAccountID sql.NullString
	Status        string
	Note          sql.NullString
	CreatedAt     time.Time
	ReviewedAt    sql.NullTime
	NotifiedAt    sql.NullTime
}
