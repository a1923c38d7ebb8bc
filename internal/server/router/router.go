package router

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"

	"github.com/mlevkov/partnerhub/internal/auth"
	"github.com/mlevkov/partnerhub/internal/otp"
	"github.com/mlevkov/partnerhub/internal/server/handlers"
	"github.com/mlevkov/partnerhub/internal/storage"
)

type Options struct {
	log         *slog.Logger
	secret      []byte
	totp        *otp.TOTP
	issuer      string
	adminLogins []string
}

func NewRouter(store storage.Storage, opts ...Option) chi.Router {
	r := chi.NewRouter()

	rOpts := Options{
		log:    slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		secret: []byte(""),
		totp:   otp.New(),
		issuer: "partnerhub",
	}

	for _, opt := range opts {
		opt(&rOpts)
	}

	tokenAuth := jwtauth.New("HS256", rOpts.secret, nil)

	r.Use(
		middleware.Recoverer,
		middleware.StripSlashes,
		middleware.Logger,
	)

	h := handlers.NewHandlers(store,
		handlers.WithLogger(rOpts.log),
		handlers.WithAuth(auth.NewJWTAuth(rOpts.secret)),
		handlers.WithTOTP(rOpts.totp),
		handlers.WithIssuer(rOpts.issuer),
	)

	r.Get("/ping", h.Ping)

	r.Group(func(r chi.Router) {
		r.Post("/api/user/register", h.Register)
		r.Post("/api/user/login", h.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verifier(tokenAuth),
			jwtauth.Authenticator(tokenAuth),
		)

		r.Get("/api/user/twofa", h.TwoFAStatus)
		r.Post("/api/user/twofa/init", h.TwoFAInit)
		r.Post("/api/user/twofa/enable", h.TwoFAEnable)
		r.Post("/api/user/twofa/disable", h.TwoFADisable)

		r.Get("/api/user/balance", h.GetBalance)
		r.Get("/api/user/payouts", h.GetPayouts)
		r.Get("/api/user/payouts/withdrawals", h.GetWithdrawals)
		r.Post("/api/user/payouts/withdraw", h.Withdraw)

		r.Get("/api/user/bankaccounts", h.GetBankAccounts)
		r.Post("/api/user/bankaccounts", h.CreateBankAccount)
	})

	r.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verifier(tokenAuth),
			jwtauth.Authenticator(tokenAuth),
			adminOnly(rOpts.adminLogins),
		)

		r.Get("/api/admin/withdrawals", h.AdminListWithdrawals)
		r.Post("/api/admin/withdrawals/{withdrawalID}/status", h.AdminReviewWithdrawal)
		r.Post("/api/admin/ledger/credit", h.AdminCredit)
	})

	return r
}

// adminOnly allows only subjects from the configured allowlist through.
func adminOnly(adminLogins []string) func(next http.Handler) http.Handler {
	admins := make(map[string]bool, len(adminLogins))
	for _, login := range adminLogins {
		admins[login] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())
			if err != nil || !admins[token.Subject()] {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type Option func(r *Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.log = logger
	}
}

func WithSecret(secret []byte) Option {
	return func(o *Options) {
		o.secret = secret
	}
}

func WithTOTP(totp *otp.TOTP) Option {
	return func(o *Options) {
		o.totp = totp
	}
}

func WithIssuer(issuer string) Option {
	return func(o *Options) {
		o.issuer = issuer
	}
}

func WithAdminLogins(logins []string) Option {
	return func(o *Options) {
		o.adminLogins = logins
	}
}
