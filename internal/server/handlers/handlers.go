package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"

	"github.com/mlevkov/partnerhub/internal/auth"
	"github.com/mlevkov/partnerhub/internal/domain/accounts"
	"github.com/mlevkov/partnerhub/internal/domain/ledger"
	"github.com/mlevkov/partnerhub/internal/domain/payouts"
	"github.com/mlevkov/partnerhub/internal/errmsg"
	"github.com/mlevkov/partnerhub/internal/otp"
	"github.com/mlevkov/partnerhub/internal/server/models"
	"github.com/mlevkov/partnerhub/internal/storage"
)

// TwoFACodeHeader carries the current one-time code on gated mutations.
const TwoFACodeHeader = "X-2FA-Code"

const defaultPageLimit = 50

type Handlers struct {
	storage storage.Storage
	log     *slog.Logger
	auth    *auth.JWTAuth
	totp    *otp.TOTP
	issuer  string
}

// NewHandlers returns a new Handlers instance.
func NewHandlers(store storage.Storage, opts ...Option) *Handlers {
	handlers := &Handlers{
		storage: store,
		log:     slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		auth:    auth.NewJWTAuth([]byte("")),
		totp:    otp.New(),
		issuer:  "partnerhub",
	}

	// Apply options
	for _, opt := range opts {
		opt(handlers)
	}

	return handlers
}

// Option is a functional option for Handlers.
type Option func(h *Handlers)

// WithLogger is a option for Handlers that sets logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		h.log = logger
	}
}

func WithAuth(auth *auth.JWTAuth) Option {
	return func(h *Handlers) {
		h.auth = auth
	}
}

func WithTOTP(totp *otp.TOTP) Option {
	return func(h *Handlers) {
		h.totp = totp
	}
}

func WithIssuer(issuer string) Option {
	return func(h *Handlers) {
		h.issuer = issuer
	}
}

type JSONResponse struct {
	Message any `json:"message,omitempty"`
	Error   any `json:"error,omitempty"`
}

func handleJSONResponse(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func handleError(w http.ResponseWriter, err errmsg.HTTPError) {
	resp := &JSONResponse{
		Error: err.Error(),
	}

	w.Header().Set("content-type", "application/json")
	w.WriteHeader(err.Code)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		h.log.Error("storage.Ping", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

// subjectLogin extracts the caller login from the verified JWT.
func subjectLogin(r *http.Request) (string, error) {
	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return "", err
	}

	return token.Subject(), nil
}

// callerAccount loads the account behind the verified session token.
func (h *Handlers) callerAccount(w http.ResponseWriter, r *http.Request) (*accounts.Account, bool) {
	login, err := subjectLogin(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return nil, false
	}

	acc, err := h.storage.GetAccount(r.Context(), login)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			h.log.Error("storage.GetAccount", slog.Any("error", err))
			handleError(w, errmsg.ErrAccountNotFound)

			return nil, false
		}

		h.log.Error("storage.GetAccount", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return nil, false
	}

	return acc, true
}

// requireTwoFACode runs the two-factor gate against the code header. It
// must pass before any gated mutation touches the store.
func (h *Handlers) requireTwoFACode(w http.ResponseWriter, r *http.Request, acc *accounts.Account) bool {
	err := acc.RequireCode(h.totp, r.Header.Get(TwoFACodeHeader))
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, accounts.ErrCodeRequired):
		handleError(w, errmsg.ErrCodeRequired)
	case errors.Is(err, accounts.ErrInvalidCode):
		handleError(w, errmsg.ErrInvalidCode)
	default:
		h.log.Error("account.RequireCode", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
	}

	return false
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var payload models.AccountRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	acc, err := accounts.NewAccount(payload.Login, payload.Password)
	if err != nil {
		h.log.Error("accounts.NewAccount", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.CreateAccount(r.Context(), acc); err != nil {
		if errors.Is(err, storage.ErrAccountAlreadyExists) {
			h.log.Error("storage.CreateAccount", slog.Any("error", err))
			handleError(w, errmsg.ErrAccountAlreadyExists)

			return
		}

		h.log.Error("storage.CreateAccount", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	h.writeToken(w, acc)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var payload models.AccountRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	acc, err := h.storage.GetAccount(r.Context(), payload.Login)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			h.log.Error("storage.GetAccount", slog.Any("error", err))
			handleError(w, errmsg.ErrAccountCredentialsInvalid)

			return
		}

		h.log.Error("storage.GetAccount", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if err := acc.CheckPassword(payload.Password); err != nil {
		h.log.Error("account.CheckPassword", slog.Any("error", err))
		handleError(w, errmsg.ErrAccountCredentialsInvalid)

		return
	}

	h.writeToken(w, acc)
}

func (h *Handlers) writeToken(w http.ResponseWriter, acc *accounts.Account) {
	token, err := h.auth.CreateJWTString(acc.Login(), acc.ID())
	if err != nil {
		h.log.Error("auth.CreateJWTString", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.Header().Set("content-type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(token)) //nolint:errcheck
}

func (h *Handlers) TwoFAStatus(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.callerAccount(w, r)
	if !ok {
		return
	}

	handleJSONResponse(w, http.StatusOK, models.TwoFAStatusResponse{
		Enabled: acc.TwoFAEnabled(),
		Issuer:  h.issuer,
		Digits:  h.totp.Digits(),
		Period:  int(h.totp.Period().Seconds()),
	})
}

func (h *Handlers) TwoFAInit(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.callerAccount(w, r)
	if !ok {
		return
	}

	secret, err := otp.NewSecret()
	if err != nil {
		h.log.Error("otp.NewSecret", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	// Replaces any prior pending secret; an unfinished earlier setup is
	// abandoned.
	acc.BeginTwoFASetup(secret)

	if err := h.storage.UpdateAccountTwoFA(r.Context(), acc); err != nil {
		h.log.Error("storage.UpdateAccountTwoFA", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, models.TwoFAInitResponse{
		OTPAuthURI: h.totp.ProvisioningURI(secret, h.issuer, acc.Login()),
	})
}

func (h *Handlers) TwoFAEnable(w http.ResponseWriter, r *http.Request) {
	var payload models.TwoFAEnableRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	acc, ok := h.callerAccount(w, r)
	if !ok {
		return
	}

	if err := acc.EnableTwoFA(h.totp, payload.Code); err != nil {
		switch {
		case errors.Is(err, accounts.ErrNoPendingSetup):
			handleError(w, errmsg.ErrNoPendingSetup)
		case errors.Is(err, accounts.ErrInvalidCode):
			handleError(w, errmsg.ErrInvalidCode)
		default:
			h.log.Error("account.EnableTwoFA", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	if err := h.storage.UpdateAccountTwoFA(r.Context(), acc); err != nil {
		h.log.Error("storage.UpdateAccountTwoFA", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) TwoFADisable(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.callerAccount(w, r)
	if !ok {
		return
	}

	if err := acc.DisableTwoFA(h.totp, r.Header.Get(TwoFACodeHeader)); err != nil {
		switch {
		case errors.Is(err, accounts.ErrCodeRequired):
			handleError(w, errmsg.ErrCodeRequired)
		case errors.Is(err, accounts.ErrInvalidCode):
			handleError(w, errmsg.ErrInvalidCode)
		default:
			h.log.Error("account.DisableTwoFA", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	if err := h.storage.UpdateAccountTwoFA(r.Context(), acc); err != nil {
		h.log.Error("storage.UpdateAccountTwoFA", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) balanceSummary(r *http.Request, login string) (models.BalanceResponse, error) {
	bonus, err := h.storage.SumEntriesByKind(r.Context(), login, ledger.KindBonus)
	if err != nil {
		return models.BalanceResponse{}, err
	}

	withdrawn, err := h.storage.SumEntriesByKind(r.Context(), login, ledger.KindWithdrawal)
	if err != nil {
		return models.BalanceResponse{}, err
	}

	return models.BalanceResponse{
		Current:         bonus.Sub(withdrawn),
		BonusTotal:      bonus,
		WithdrawalTotal: withdrawn,
	}, nil
}

func (h *Handlers) GetBalance(w http.ResponseWriter, r *http.Request) {
	login, err := subjectLogin(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	summary, err := h.balanceSummary(r, login)
	if err != nil {
		h.log.Error("storage.SumEntriesByKind", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, summary)
}

func (h *Handlers) GetPayouts(w http.ResponseWriter, r *http.Request) {
	login, err := subjectLogin(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	summary, err := h.balanceSummary(r, login)
	if err != nil {
		h.log.Error("storage.SumEntriesByKind", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	entries, err := h.storage.GetEntriesByLogin(r.Context(), login)
	if err != nil {
		h.log.Error("storage.GetEntriesByLogin", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	history := make([]models.LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		history = append(history, models.LedgerEntryResponse{
			ID:          entry.ID(),
			Kind:        string(entry.Kind()),
			Amount:      entry.Amount(),
			Description: entry.Description(),
			CreatedAt:   entry.CreatedAt().Format(time.RFC3339),
		})
	}

	handleJSONResponse(w, http.StatusOK, models.PayoutsResponse{
		Summary: summary,
		History: history,
	})
}

func (h *Handlers) Withdraw(w http.ResponseWriter, r *http.Request) {
	var payload models.WithdrawRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	acc, ok := h.callerAccount(w, r)
	if !ok {
		return
	}

	if !h.requireTwoFACode(w, r, acc) {
		return
	}

	req, err := payouts.NewWithdrawalRequest(acc.Login(), payload.Amount, payload.BankAccountID)
	if err != nil {
		if errors.Is(err, payouts.ErrAmountInvalid) {
			h.log.Error("payouts.NewWithdrawalRequest", slog.Any("error", err))
			handleError(w, errmsg.ErrInvalidAmount)

			return
		}

		h.log.Error("payouts.NewWithdrawalRequest", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if payload.BankAccountID != "" {
		bankAccount, err := h.storage.GetBankAccount(r.Context(), payload.BankAccountID)
		if err != nil || bankAccount.Login() != acc.Login() {
			h.log.Error("storage.GetBankAccount", slog.Any("error", err))
			handleError(w, errmsg.ErrInvalidBankAccount)

			return
		}
	}

	debit, err := ledger.NewEntry(acc.Login(), ledger.KindWithdrawal, req.Amount(), "withdrawal request "+req.ID())
	if err != nil {
		h.log.Error("ledger.NewEntry", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	// The debit is recorded unconditionally at request time; whether the
	// account has earned enough is left to the reviewer.
	if err := h.storage.CreateWithdrawal(r.Context(), req, debit); err != nil {
		h.log.Error("storage.CreateWithdrawal", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	balance, err := storage.Balance(r.Context(), h.storage, acc.Login())
	if err != nil {
		h.log.Error("storage.Balance", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusCreated, models.WithdrawResponse{
		ID:      req.ID(),
		Status:  string(req.Status()),
		Balance: balance,
	})
}

func (h *Handlers) GetBankAccounts(w http.ResponseWriter, r *http.Request) {
	login, err := subjectLogin(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	bankAccounts, err := h.storage.GetBankAccountsByLogin(r.Context(), login)
	if err != nil {
		h.log.Error("storage.GetBankAccountsByLogin", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	resp := make([]models.BankAccountResponse, 0, len(bankAccounts))
	for _, ba := range bankAccounts {
		resp = append(resp, models.BankAccountResponse{
			ID:        ba.ID(),
			BankName:  ba.BankName(),
			Number:    ba.Number(),
			CreatedAt: ba.CreatedAt().Format(time.RFC3339),
		})
	}

	handleJSONResponse(w, http.StatusOK, resp)
}

func (h *Handlers) CreateBankAccount(w http.ResponseWriter, r *http.Request) {
	var payload models.BankAccountRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	acc, ok := h.callerAccount(w, r)
	if !ok {
		return
	}

	// Payment details are recovery-relevant, so the gate applies.
	if !h.requireTwoFACode(w, r, acc) {
		return
	}

	bankAccount, err := accounts.NewBankAccount(acc.Login(), payload.BankName, payload.Number)
	if err != nil {
		h.log.Error("accounts.NewBankAccount", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.CreateBankAccount(r.Context(), bankAccount); err != nil {
		h.log.Error("storage.CreateBankAccount", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusCreated, models.BankAccountResponse{
		ID:        bankAccount.ID(),
		BankName:  bankAccount.BankName(),
		Number:    bankAccount.Number(),
		CreatedAt: bankAccount.CreatedAt().Format(time.RFC3339),
	})
}

func (h *Handlers) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	login, err := subjectLogin(r)
	if err != nil {
		h.log.Error("jwtauth.FromContext", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	requests, err := h.storage.GetWithdrawalsByLogin(r.Context(), login)
	if err != nil {
		h.log.Error("storage.GetWithdrawalsByLogin", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, withdrawalResponses(requests))
}

func (h *Handlers) AdminListWithdrawals(w http.ResponseWriter, r *http.Request) {
	var statuses []payouts.Status

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := payouts.ParseStatus(raw)
		if err != nil {
			handleError(w, errmsg.ErrInvalidStatus)

			return
		}

		statuses = append(statuses, status)
	} else {
		statuses = []payouts.Status{payouts.StatusPending, payouts.StatusApproved, payouts.StatusRejected}
	}

	limit := queryInt(r, "limit", defaultPageLimit)
	page := queryInt(r, "page", 1)

	if limit < 1 {
		limit = defaultPageLimit
	}

	if page < 1 {
		page = 1
	}

	requests, err := h.storage.GetWithdrawalsByStatus(r.Context(), statuses, limit, (page-1)*limit)
	if err != nil {
		h.log.Error("storage.GetWithdrawalsByStatus", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, withdrawalResponses(requests))
}

func (h *Handlers) AdminReviewWithdrawal(w http.ResponseWriter, r *http.Request) {
	var payload models.ReviewRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	status, err := payouts.ParseStatus(payload.Status)
	if err != nil || status == payouts.StatusPending {
		handleError(w, errmsg.ErrInvalidStatus)

		return
	}

	req, err := h.storage.GetWithdrawal(r.Context(), chi.URLParam(r, "withdrawalID"))
	if err != nil {
		if errors.Is(err, storage.ErrWithdrawalNotFound) {
			handleError(w, errmsg.ErrWithdrawalNotFound)

			return
		}

		h.log.Error("storage.GetWithdrawal", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	var reversal *ledger.Entry

	switch status {
	case payouts.StatusApproved:
		err = req.Approve(payload.Note)

	case payouts.StatusRejected:
		err = req.Reject(payload.Note)
		if err == nil {
			// Rejection hands the debited amount back as a fresh credit;
			// the original entry stays untouched.
			reversal, err = ledger.NewEntry(
				req.Login(), ledger.KindBonus, req.Amount(), "withdrawal rejected "+req.ID(),
			)
		}
	}

	if err != nil {
		if errors.Is(err, payouts.ErrAlreadyReviewed) {
			handleError(w, errmsg.ErrWithdrawalAlreadyReviewed)

			return
		}

		h.log.Error("withdrawal review", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if err := h.storage.ReviewWithdrawal(r.Context(), req, reversal); err != nil {
		if errors.Is(err, payouts.ErrAlreadyReviewed) {
			handleError(w, errmsg.ErrWithdrawalAlreadyReviewed)

			return
		}

		h.log.Error("storage.ReviewWithdrawal", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) AdminCredit(w http.ResponseWriter, r *http.Request) {
	var payload models.CreditRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	if _, err := h.storage.GetAccount(r.Context(), payload.Login); err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			handleError(w, errmsg.ErrAccountNotFound)

			return
		}

		h.log.Error("storage.GetAccount", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	entry, err := ledger.NewEntry(payload.Login, ledger.KindBonus, payload.Amount, payload.Description)
	if err != nil {
		if errors.Is(err, ledger.ErrAmountInvalid) {
			handleError(w, errmsg.ErrInvalidAmount)

			return
		}

		h.log.Error("ledger.NewEntry", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.AppendEntry(r.Context(), entry); err != nil {
		h.log.Error("storage.AppendEntry", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusCreated, &JSONResponse{Message: entry.ID()})
}

func withdrawalResponses(requests []*payouts.WithdrawalRequest) []models.WithdrawalResponse {
	resp := make([]models.WithdrawalResponse, 0, len(requests))

	for _, req := range requests {
		item := models.WithdrawalResponse{
			ID:            req.ID(),
			Login:         req.Login(),
			Amount:        req.Amount(),
			BankAccountID: req.BankAccountID(),
			Status:        string(req.Status()),
			Note:          req.Note(),
			CreatedAt:     req.CreatedAt().Format(time.RFC3339),
		}

		if !req.ReviewedAt().IsZero() {
			item.ReviewedAt = req.ReviewedAt().Format(time.RFC3339)
		}

		resp = append(resp, item)
	}

	return resp
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return value
}
