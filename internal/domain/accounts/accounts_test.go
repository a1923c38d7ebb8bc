package accounts_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlevkov/partnerhub/internal/domain/accounts"
	"github.com/mlevkov/partnerhub/internal/otp"
)

func newTOTP() *otp.TOTP {
	return otp.New(otp.WithClock(func() time.Time {
		return time.Unix(1700000000, 0)
	}))
}

func newSecret(t *testing.T) string {
	t.Helper()

	secret, err := otp.NewSecret()
	require.NoError(t, err)

	return secret
}

func TestNewAccount(t *testing.T) {
	acc, err := accounts.NewAccount("alice", "s3cret")
	require.NoError(t, err)

	assert.NotEmpty(t, acc.ID())
	assert.Equal(t, "alice", acc.Login())
	assert.Equal(t, accounts.TwoFAOff, acc.TwoFAState())
	assert.NoError(t, acc.CheckPassword("s3cret"))
	assert.Error(t, acc.CheckPassword("wrong"))

	_, err = accounts.NewAccount("", "s3cret")
	assert.ErrorIs(t, err, accounts.ErrLoginEmpty)

	_, err = accounts.NewAccount("alice", "")
	assert.ErrorIs(t, err, accounts.ErrPasswdEmpty)
}

func TestRequireCodeBypassWhenDisabled(t *testing.T) {
	acc, err := accounts.NewAccount("alice", "s3cret")
	require.NoError(t, err)

	// Without two-factor enabled the gate always passes, code or no code.
	assert.NoError(t, acc.RequireCode(newTOTP(), ""))
	assert.NoError(t, acc.RequireCode(newTOTP(), "000000"))
}

func TestEnableWithoutSetup(t *testing.T) {
	acc, err := accounts.NewAccount("alice", "s3cret")
	require.NoError(t, err)

	assert.ErrorIs(t, acc.EnableTwoFA(newTOTP(), "123456"), accounts.ErrNoPendingSetup)
}

func TestEnableTwoFA(t *testing.T) {
	totp := newTOTP()

	acc, err := accounts.NewAccount("alice", "s3cret")
	require.NoError(t, err)

	secret := newSecret(t)
	acc.BeginTwoFASetup(secret)

	assert.Equal(t, accounts.TwoFAPending, acc.TwoFAState())
	assert.False(t, acc.TwoFAEnabled())

	// A wrong code does not promote the pending secret.
	err = acc.EnableTwoFA(totp, "000000")
	assert.ErrorIs(t, err, accounts.ErrInvalidCode)
	assert.Equal(t, accounts.TwoFAPending, acc.TwoFAState())

	require.NoError(t, acc.EnableTwoFA(totp, totp.Generate(secret, 0)))

	assert.True(t, acc.TwoFAEnabled())
	assert.Equal(t, secret, acc.Secret())
	assert.Empty(t, acc.TmpSecret())
}

func TestSecondSetupInvalidatesFirst(t *testing.T) {
	totp := newTOTP()

	acc, err := accounts.NewAccount("alice", "s3cret")
	require.NoError(t, err)

	first := newSecret(t)
	acc.BeginTwoFASetup(first)

	second := newSecret(t)
	acc.BeginTwoFASetup(second)

	// A code derived from the replaced secret no longer proves anything.
	err = acc.EnableTwoFA(totp, totp.Generate(first, 0))
	assert.ErrorIs(t, err, accounts.ErrInvalidCode)

	require.NoError(t, acc.EnableTwoFA(totp, totp.Generate(second, 0)))
	assert.Equal(t, second, acc.Secret())
}

func TestRequireCodeWhenEnabled(t *testing.T) {
	totp := newTOTP()

	acc, err := accounts.NewAccount("alice", "s3cret")
	require.NoError(t, err)

	secret := newSecret(t)
	acc.BeginTwoFASetup(secret)
	require.NoError(t, acc.EnableTwoFA(totp, totp.Generate(secret, 0)))

	assert.ErrorIs(t, acc.RequireCode(totp, ""), accounts.ErrCodeRequired)
	assert.ErrorIs(t, acc.RequireCode(totp, "000000"), accounts.ErrInvalidCode)
	assert.NoError(t, acc.RequireCode(totp, totp.Generate(secret, 0)))
}

func TestDisableTwoFA(t *testing.T) {
	totp := newTOTP()

	acc, err := accounts.NewAccount("alice", "s3cret")
	require.NoError(t, err)

	secret := newSecret(t)
	acc.BeginTwoFASetup(secret)
	require.NoError(t, acc.EnableTwoFA(totp, totp.Generate(secret, 0)))

	assert.ErrorIs(t, acc.DisableTwoFA(totp, ""), accounts.ErrCodeRequired)

	require.NoError(t, acc.DisableTwoFA(totp, totp.Generate(secret, 0)))

	assert.Equal(t, accounts.TwoFAOff, acc.TwoFAState())
	assert.Empty(t, acc.Secret())

	// Re-enabling needs a fresh setup cycle.
	assert.ErrorIs(t, acc.EnableTwoFA(totp, totp.Generate(secret, 0)), accounts.ErrNoPendingSetup)
}

func TestNewBankAccount(t *testing.T) {
	ba, err := accounts.NewBankAccount("alice", "First Partner Bank", "40817810000000000001")
	require.NoError(t, err)

	assert.NotEmpty(t, ba.ID())
	assert.Equal(t, "alice", ba.Login())

	_, err = accounts.NewBankAccount("alice", "", "40817810000000000001")
	assert.ErrorIs(t, err, accounts.ErrBankNameEmpty)

	_, err = accounts.NewBankAccount("alice", "First Partner Bank", "")
	assert.ErrorIs(t, err, accounts.ErrBankNumberEmpty)
}
