package payouts

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mlevkov/partnerhub/internal/domain/accounts"
)

var (
	ErrAmountInvalid   = errors.New("withdrawal amount must be a positive whole number")
	ErrAlreadyReviewed = errors.New("withdrawal request already reviewed")
	ErrStatusInvalid   = errors.New("withdrawal status is invalid")
)

// Status is the closed set of withdrawal request states. Pending is the
// only non-terminal state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(s), nil
	}

	return "", ErrStatusInvalid
}

// WithdrawalRequest is a reviewer-mediated intent to pay out earned
// commission. The matching ledger debit is recorded at creation time, not
// at approval.
type WithdrawalRequest struct {
	id            string
	login         string
	amount        decimal.Decimal
	bankAccountID string
	status        Status
	note          string
	createdAt     time.Time
	reviewedAt    time.Time
	notifiedAt    time.Time
}

// NewWithdrawalRequest validates the amount (positive whole units) and
// creates a pending request. The caller's available balance is
// deliberately not consulted here.
func NewWithdrawalRequest(login string, amount decimal.Decimal, bankAccountID string) (*WithdrawalRequest, error) {
	if err := accounts.ValidateLogin(login); err != nil {
		return nil, err
	}

	if !amount.IsPositive() || !amount.IsInteger() {
		return nil, ErrAmountInvalid
	}

	return &WithdrawalRequest{
		id:            uuid.NewString(),
		login:         login,
		amount:        amount,
		bankAccountID: bankAccountID,
		status:        StatusPending,
		createdAt:     time.Now(),
	}, nil
}

func RestoreWithdrawalRequest(
	id, login string,
	amount decimal.Decimal,
	bankAccountID string,
	status Status,
	note string,
	createdAt, reviewedAt, notifiedAt time.Time,
) *WithdrawalRequest {
	return &WithdrawalRequest{
		id:            id,
		login:         login,
		amount:        amount,
		bankAccountID: bankAccountID,
		status:        status,
		note:          note,
		createdAt:     createdAt,
		reviewedAt:    reviewedAt,
		notifiedAt:    notifiedAt,
	}
}

func (w *WithdrawalRequest) ID() string {
	return w.id
}

func (w *WithdrawalRequest) Login() string {
	return w.login
}

func (w *WithdrawalRequest) Amount() decimal.Decimal {
	return w.amount
}

func (w *WithdrawalRequest) BankAccountID() string {
	return w.bankAccountID
}

func (w *WithdrawalRequest) Status() Status {
	return w.status
}

func (w *WithdrawalRequest) Note() string {
	return w.note
}

func (w *WithdrawalRequest) CreatedAt() time.Time {
	return w.createdAt
}

func (w *WithdrawalRequest) ReviewedAt() time.Time {
	return w.reviewedAt
}

func (w *WithdrawalRequest) NotifiedAt() time.Time {
	return w.notifiedAt
}

func (w *WithdrawalRequest) Reviewed() bool {
	return w.status != StatusPending
}

// Approve moves pending to approved. The debit already exists, so no
// ledger change accompanies approval.
func (w *WithdrawalRequest) Approve(note string) error {
	if w.status != StatusPending {
		return ErrAlreadyReviewed
	}

	w.status = StatusApproved
	w.note = note
	w.reviewedAt = time.Now()

	return nil
}

// Reject moves pending to rejected. The caller must append the offsetting
// bonus entry that hands the debited amount back.
func (w *WithdrawalRequest) Reject(note string) error {
	if w.status != StatusPending {
		return ErrAlreadyReviewed
	}

	w.status = StatusRejected
	w.note = note
	w.reviewedAt = time.Now()

	return nil
}

func (w *WithdrawalRequest) MarkNotified() {
	w.notifiedAt = time.Now()
}
