package accounts

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mlevkov/partnerhub/internal/otp"
)

var (
	ErrLoginEmpty  = errors.New("account login is empty")
	ErrPasswdEmpty = errors.New("account password is empty")

	ErrCodeRequired   = errors.New("two-factor code is required")
	ErrInvalidCode    = errors.New("two-factor code is invalid")
	ErrNoPendingSetup = errors.New("no pending two-factor setup")
)

// TwoFAState is the closed set of two-factor provisioning states.
type TwoFAState string

const (
	// TwoFAOff: no secret of any kind is held.
	TwoFAOff TwoFAState = "off"

	// TwoFAPending: a temporary secret was issued but not yet proven.
	TwoFAPending TwoFAState = "pending"

	// TwoFAEnabled: a proven permanent secret gates sensitive operations.
	TwoFAEnabled TwoFAState = "enabled"
)

// Account is the portal identity. The two-factor secret fields are only
// meaningful in their matching state: tmpSecret in TwoFAPending, secret in
// TwoFAEnabled.
type Account struct {
	id           string
	login        string
	passwordHash string
	twofaState   TwoFAState
	secret       string
	tmpSecret    string
}

// NewAccount creates an account from raw credentials, hashing the password.
func NewAccount(login, password string) (*Account, error) {
	if err := ValidateLogin(login); err != nil {
		return nil, err
	}

	if password == "" {
		return nil, ErrPasswdEmpty
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt.GenerateFromPassword: %w", err)
	}

	return &Account{
		id:           uuid.NewString(),
		login:        login,
		passwordHash: string(hash),
		twofaState:   TwoFAOff,
	}, nil
}

// RestoreAccount rebuilds an account from stored state.
func RestoreAccount(id, login, passwordHash string, state TwoFAState, secret, tmpSecret string) *Account {
	return &Account{
		id:           id,
		login:        login,
		passwordHash: passwordHash,
		twofaState:   state,
		secret:       secret,
		tmpSecret:    tmpSecret,
	}
}

func (a *Account) ID() string {
	return a.id
}

func (a *Account) Login() string {
	return a.login
}

func (a *Account) PasswordHash() string {
	return a.passwordHash
}

func (a *Account) TwoFAState() TwoFAState {
	return a.twofaState
}

func (a *Account) TwoFAEnabled() bool {
	return a.twofaState == TwoFAEnabled
}

func (a *Account) Secret() string {
	return a.secret
}

func (a *Account) TmpSecret() string {
	return a.tmpSecret
}

// CheckPassword compares password against the stored hash.
func (a *Account) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password)); err != nil {
		return fmt.Errorf("bcrypt.CompareHashAndPassword: %w", err)
	}

	return nil
}

// RequireCode is the two-factor gate: a pure check with no side effects.
// Accounts without two-factor enabled always pass. Callers must abort their
// mutation on error.
func (a *Account) RequireCode(totp *otp.TOTP, code string) error {
	if a.twofaState != TwoFAEnabled {
		return nil
	}

	if code == "" {
		return ErrCodeRequired
	}

	if !totp.Verify(a.secret, code) {
		return ErrInvalidCode
	}

	return nil
}

// BeginTwoFASetup stores a freshly issued temporary secret, replacing any
// prior pending one. Enabled state and the permanent secret are untouched.
func (a *Account) BeginTwoFASetup(secret string) {
	a.tmpSecret = secret

	if a.twofaState == TwoFAOff {
		a.twofaState = TwoFAPending
	}
}

// EnableTwoFA proves possession of the pending secret with one valid code
// and promotes it to the permanent secret.
func (a *Account) EnableTwoFA(totp *otp.TOTP, code string) error {
	if a.tmpSecret == "" {
		return ErrNoPendingSetup
	}

	if !totp.Verify(a.tmpSecret, code) {
		return ErrInvalidCode
	}

	a.secret = a.tmpSecret
	a.tmpSecret = ""
	a.twofaState = TwoFAEnabled

	return nil
}

// DisableTwoFA clears the secret after passing the gate. Re-enabling
// requires a fresh setup cycle.
func (a *Account) DisableTwoFA(totp *otp.TOTP, code string) error {
	if err := a.RequireCode(totp, code); err != nil {
		return err
	}

	a.secret = ""
	a.tmpSecret = ""
	a.twofaState = TwoFAOff

	return nil
}

func ValidateLogin(login string) error {
	if login == "" {
		return ErrLoginEmpty
	}

	return nil
}
