package models

import (
	"github.com/shopspring/decimal"
)

type AccountRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type TwoFAStatusResponse struct {
	Enabled bool   `json:"enabled"`
	Issuer  string `json:"issuer"`
	Digits  int    `json:"digits"`
	Period  int    `json:"period"`
}

type TwoFAInitResponse struct {
	OTPAuthURI string `json:"otpauth_uri"`
}

type TwoFAEnableRequest struct {
	Code string `json:"code"`
}

type BalanceResponse struct {
	Current         decimal.Decimal `json:"current"`
	BonusTotal      decimal.Decimal `json:"bonus_total"`
	WithdrawalTotal decimal.Decimal `json:"withdrawal_total"`
}

type LedgerEntryResponse struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

type PayoutsResponse struct {
	Summary BalanceResponse       `json:"summary"`
	History []LedgerEntryResponse `json:"history"`
}

type WithdrawRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	BankAccountID string          `json:"bank_account_id,omitempty"`
}

type WithdrawResponse struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Balance decimal.Decimal `json:"balance"`
}

type WithdrawalResponse struct {
	ID            string          `json:"id"`
	Login         string          `json:"login"`
	Amount        decimal.Decimal `json:"amount"`
	BankAccountID string          `json:"bank_account_id,omitempty"`
	Status        string          `json:"status"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     string          `json:"created_at"`
	ReviewedAt    string          `json:"reviewed_at,omitempty"`
}

type ReviewRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

type CreditRequest struct {
	Login       string          `json:"login"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

type BankAccountRequest struct {
	BankName string `json:"bank_name"`
	Number   string `json:"number"`
}

type BankAccountResponse struct {
	ID        string `json:"id"`
	BankName  string `json:"bank_name"`
	Number    string `json:"number"`
	CreatedAt string `json:"created_at"`
}
