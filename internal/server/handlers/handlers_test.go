package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlevkov/partnerhub/internal/otp"
	"github.com/mlevkov/partnerhub/internal/server/handlers"
	"github.com/mlevkov/partnerhub/internal/server/models"
	"github.com/mlevkov/partnerhub/internal/server/router"
	"github.com/mlevkov/partnerhub/internal/storage"
	"github.com/mlevkov/partnerhub/internal/storage/inmemory"
)

type testEnv struct {
	server *httptest.Server
	store  storage.Storage
	totp   *otp.TOTP
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	totp := otp.New(otp.WithClock(func() time.Time {
		return time.Unix(1700000000, 0)
	}))

	store := storage.NewStorage(inmemory.NewStorage())

	r := router.NewRouter(store,
		router.WithSecret([]byte("testsecret")),
		router.WithTOTP(totp),
		router.WithAdminLogins([]string{"admin"}),
	)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{
		server: srv,
		store:  store,
		totp:   totp,
	}
}

func (e *testEnv) request(t *testing.T, method, path, token, body string, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)

	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func (e *testEnv) register(t *testing.T, login string) string {
	t.Helper()

	resp := e.request(t, http.MethodPost, "/api/user/register", "",
		`{"login":"`+login+`","password":"passw0rd"}`, nil)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	token, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(token)
}

func (e *testEnv) credit(t *testing.T, adminToken, login string, amount int64) {
	t.Helper()

	body := `{"login":"` + login + `","amount":` + decimal.NewFromInt(amount).String() + `,"description":"referral commission"}`

	resp := e.request(t, http.MethodPost, "/api/admin/ledger/credit", adminToken, body, nil)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func (e *testEnv) balance(t *testing.T, token string) models.BalanceResponse {
	t.Helper()

	resp := e.request(t, http.MethodGet, "/api/user/balance", token, "", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)

	return decodeJSON[models.BalanceResponse](t, resp)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "alice")

	resp := env.request(t, http.MethodPost, "/api/user/login", "",
		`{"login":"alice","password":"passw0rd"}`, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/user/login", "",
		`{"login":"alice","password":"wrong"}`, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/user/register", "",
		`{"login":"alice","password":"other"}`, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUnauthorizedFailsClosed(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/user/balance", "/api/user/twofa", "/api/user/payouts"} {
		resp := env.request(t, http.MethodGet, path, "", "", nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	resp := env.request(t, http.MethodGet, "/api/user/balance", "not-a-token", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminGroupForbiddenForUsers(t *testing.T) {
	env := newTestEnv(t)

	token := env.register(t, "alice")

	resp := env.request(t, http.MethodGet, "/api/admin/withdrawals", token, "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWithdrawAndReject(t *testing.T) {
	env := newTestEnv(t)

	adminToken := env.register(t, "admin")
	token := env.register(t, "alice")

	env.credit(t, adminToken, "alice", 100)
	require.True(t, env.balance(t, token).Current.Equal(decimal.NewFromInt(100)))

	resp := env.request(t, http.MethodPost, "/api/user/payouts/withdraw", token,
		`{"amount":40}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeJSON[models.WithdrawResponse](t, resp)
	assert.Equal(t, "pending", created.Status)
	assert.True(t, created.Balance.Equal(decimal.NewFromInt(60)))

	summary := env.balance(t, token)
	assert.True(t, summary.Current.Equal(decimal.NewFromInt(60)))
	assert.True(t, summary.WithdrawalTotal.Equal(decimal.NewFromInt(40)))

	// Rejection credits the amount back as a new entry.
	resp = env.request(t, http.MethodPost, "/api/admin/withdrawals/"+created.ID+"/status", adminToken,
		`{"status":"rejected","note":"insufficient docs"}`, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	summary = env.balance(t, token)
	assert.True(t, summary.Current.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.BonusTotal.Equal(decimal.NewFromInt(140)))
	assert.True(t, summary.WithdrawalTotal.Equal(decimal.NewFromInt(40)))

	resp = env.request(t, http.MethodGet, "/api/user/payouts/withdrawals", token, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listed := decodeJSON[[]models.WithdrawalResponse](t, resp)
	require.Len(t, listed, 1)
	assert.Equal(t, "rejected", listed[0].Status)
	assert.Equal(t, "insufficient docs", listed[0].Note)
	assert.NotEmpty(t, listed[0].ReviewedAt)
}

func TestWithdrawAndApprove(t *testing.T) {
	env := newTestEnv(t)

	adminToken := env.register(t, "admin")
	token := env.register(t, "alice")

	env.credit(t, adminToken, "alice", 100)

	resp := env.request(t, http.MethodPost, "/api/user/payouts/withdraw", token,
		`{"amount":40}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeJSON[models.WithdrawResponse](t, resp)

	resp = env.request(t, http.MethodPost, "/api/admin/withdrawals/"+created.ID+"/status", adminToken,
		`{"status":"approved"}`, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Approval adds no ledger entries: the debit happened at request time.
	summary := env.balance(t, token)
	assert.True(t, summary.Current.Equal(decimal.NewFromInt(60)))
	assert.True(t, summary.BonusTotal.Equal(decimal.NewFromInt(100)))

	// A reviewed request cannot be reviewed again.
	resp = env.request(t, http.MethodPost, "/api/admin/withdrawals/"+created.ID+"/status", adminToken,
		`{"status":"rejected","note":"flip"}`, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// And the failed second review must not have touched the ledger.
	assert.True(t, env.balance(t, token).Current.Equal(decimal.NewFromInt(60)))
}

func TestWithdrawValidation(t *testing.T) {
	env := newTestEnv(t)

	token := env.register(t, "alice")

	for _, body := range []string{
		`{"amount":0}`,
		`{"amount":-5}`,
		`{"amount":10.5}`,
	} {
		resp := env.request(t, http.MethodPost, "/api/user/payouts/withdraw", token, body, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	// The permissive contract records a debit beyond the earned balance.
	resp := env.request(t, http.MethodPost, "/api/user/payouts/withdraw", token,
		`{"amount":40}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeJSON[models.WithdrawResponse](t, resp)
	assert.True(t, created.Balance.Equal(decimal.NewFromInt(-40)))
}

func TestWithdrawBankAccountOwnership(t *testing.T) {
	env := newTestEnv(t)

	aliceToken := env.register(t, "alice")
	bobToken := env.register(t, "bob")

	resp := env.request(t, http.MethodPost, "/api/user/bankaccounts", bobToken,
		`{"bank_name":"First Partner Bank","number":"40817810000000000001"}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	bobBank := decodeJSON[models.BankAccountResponse](t, resp)

	// Someone else's bank account is rejected.
	resp = env.request(t, http.MethodPost, "/api/user/payouts/withdraw", aliceToken,
		`{"amount":10,"bank_account_id":"`+bobBank.ID+`"}`, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/user/payouts/withdraw", aliceToken,
		`{"amount":10,"bank_account_id":"does-not-exist"}`, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/user/payouts/withdraw", bobToken,
		`{"amount":10,"bank_account_id":"`+bobBank.ID+`"}`, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func secretFromURI(t *testing.T, rawURI string) string {
	t.Helper()

	uri, err := url.Parse(rawURI)
	require.NoError(t, err)

	return uri.Query().Get("secret")
}

func (e *testEnv) setupTwoFA(t *testing.T, token string) string {
	t.Helper()

	resp := e.request(t, http.MethodPost, "/api/user/twofa/init", token, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	initResp := decodeJSON[models.TwoFAInitResponse](t, resp)
	secret := secretFromURI(t, initResp.OTPAuthURI)
	require.NotEmpty(t, secret)

	resp = e.request(t, http.MethodPost, "/api/user/twofa/enable", token,
		`{"code":"`+e.totp.Generate(secret, 0)+`"}`, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return secret
}

func TestTwoFAProvisioning(t *testing.T) {
	env := newTestEnv(t)

	token := env.register(t, "alice")

	// Enable before init has nothing to verify against.
	resp := env.request(t, http.MethodPost, "/api/user/twofa/enable", token,
		`{"code":"123456"}`, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	secret := env.setupTwoFA(t, token)
	assert.NotEmpty(t, secret)

	resp = env.request(t, http.MethodGet, "/api/user/twofa", token, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status := decodeJSON[models.TwoFAStatusResponse](t, resp)
	assert.True(t, status.Enabled)
	assert.Equal(t, 6, status.Digits)
	assert.Equal(t, 30, status.Period)
}

func TestTwoFASecondInitInvalidatesFirst(t *testing.T) {
	env := newTestEnv(t)

	token := env.register(t, "alice")

	resp := env.request(t, http.MethodPost, "/api/user/twofa/init", token, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := secretFromURI(t, decodeJSON[models.TwoFAInitResponse](t, resp).OTPAuthURI)

	resp = env.request(t, http.MethodPost, "/api/user/twofa/init", token, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := secretFromURI(t, decodeJSON[models.TwoFAInitResponse](t, resp).OTPAuthURI)

	require.NotEqual(t, first, second)

	// A code for the replaced secret is rejected.
	resp = env.request(t, http.MethodPost, "/api/user/twofa/enable", token,
		`{"code":"`+env.totp.Generate(first, 0)+`"}`, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/user/twofa/enable", token,
		`{"code":"`+env.totp.Generate(second, 0)+`"}`, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTwoFAGatesWithdrawal(t *testing.T) {
	env := newTestEnv(t)

	adminToken := env.register(t, "admin")
	token := env.register(t, "alice")

	env.credit(t, adminToken, "alice", 100)

	secret := env.setupTwoFA(t, token)

	// No code header: the gate blocks before anything is written.
	resp := env.request(t, http.MethodPost, "/api/user/payouts/withdraw", token,
		`{"amount":40}`, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/user/payouts/withdraw", token,
		`{"amount":40}`, map[string]string{handlers.TwoFACodeHeader: "000000"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Nothing was debited by the failed attempts.
	assert.True(t, env.balance(t, token).Current.Equal(decimal.NewFromInt(100)))

	resp = env.request(t, http.MethodPost, "/api/user/payouts/withdraw", token,
		`{"amount":40}`, map[string]string{handlers.TwoFACodeHeader: env.totp.Generate(secret, 0)})
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.True(t, env.balance(t, token).Current.Equal(decimal.NewFromInt(60)))
}

func TestTwoFADisable(t *testing.T) {
	env := newTestEnv(t)

	token := env.register(t, "alice")
	secret := env.setupTwoFA(t, token)

	resp := env.request(t, http.MethodPost, "/api/user/twofa/disable", token, "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/user/twofa/disable", token, "",
		map[string]string{handlers.TwoFACodeHeader: env.totp.Generate(secret, 0)})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/user/twofa", token, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeJSON[models.TwoFAStatusResponse](t, resp).Enabled)

	// Disabled again means ungated mutations pass with no code.
	resp = env.request(t, http.MethodPost, "/api/user/bankaccounts", token,
		`{"bank_name":"First Partner Bank","number":"40817810000000000001"}`, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAdminListWithdrawals(t *testing.T) {
	env := newTestEnv(t)

	adminToken := env.register(t, "admin")
	token := env.register(t, "alice")

	env.credit(t, adminToken, "alice", 100)

	var firstID string

	for i := 0; i < 3; i++ {
		resp := env.request(t, http.MethodPost, "/api/user/payouts/withdraw", token,
			`{"amount":10}`, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		if created := decodeJSON[models.WithdrawResponse](t, resp); firstID == "" {
			firstID = created.ID
		}
	}

	resp := env.request(t, http.MethodPost, "/api/admin/withdrawals/"+firstID+"/status", adminToken,
		`{"status":"approved"}`, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/admin/withdrawals?status=pending", adminToken, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeJSON[[]models.WithdrawalResponse](t, resp), 2)

	resp = env.request(t, http.MethodGet, "/api/admin/withdrawals?status=approved", adminToken, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeJSON[[]models.WithdrawalResponse](t, resp), 1)

	resp = env.request(t, http.MethodGet, "/api/admin/withdrawals?limit=2&page=2", adminToken, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeJSON[[]models.WithdrawalResponse](t, resp), 1)

	resp = env.request(t, http.MethodGet, "/api/admin/withdrawals?status=bogus", adminToken, "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPayoutsHistory(t *testing.T) {
	env := newTestEnv(t)

	adminToken := env.register(t, "admin")
	token := env.register(t, "alice")

	env.credit(t, adminToken, "alice", 100)

	resp := env.request(t, http.MethodPost, "/api/user/payouts/withdraw", token,
		`{"amount":40}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(t, http.MethodGet, "/api/user/payouts", token, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payouts := decodeJSON[models.PayoutsResponse](t, resp)
	assert.True(t, payouts.Summary.BonusTotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, payouts.Summary.WithdrawalTotal.Equal(decimal.NewFromInt(40)))
	require.Len(t, payouts.History, 2)

	// Newest first.
	assert.Equal(t, "withdrawal", payouts.History[0].Kind)
	assert.Equal(t, "bonus", payouts.History[1].Kind)
}
