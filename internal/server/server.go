package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mlevkov/partnerhub/internal/otp"
	"github.com/mlevkov/partnerhub/internal/server/router"
	"github.com/mlevkov/partnerhub/internal/storage"
)

type Server struct {
	srv *http.Server
	log *slog.Logger
}

type Options struct {
	addr        string
	secret      []byte
	log         *slog.Logger
	totp        *otp.TOTP
	issuer      string
	adminLogins []string
}

func NewServer(store storage.Storage, opts ...Option) (*Server, error) {
	sOpts := Options{
		addr:   "0.0.0.0:8080",
		secret: []byte(""),
		log:    slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		totp:   otp.New(),
		issuer: "partnerhub",
	}

	for _, opt := range opts {
		opt(&sOpts)
	}

	r := router.NewRouter(store,
		router.WithLogger(sOpts.log),
		router.WithSecret(sOpts.secret),
		router.WithTOTP(sOpts.totp),
		router.WithIssuer(sOpts.issuer),
		router.WithAdminLogins(sOpts.adminLogins),
	)

	srv := &http.Server{
		Addr:              sOpts.addr,
		Handler:           r,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return &Server{
		srv: srv,
		log: sOpts.log,
	}, nil
}

type Option func(o *Options)

func WithServerAddr(addr string) Option {
	return func(o *Options) {
		o.addr = addr
	}
}

func WithJWTSecretKey(secret []byte) Option {
	return func(o *Options) {
		o.secret = secret
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(o *Options) {
		o.log = log
	}
}

func WithTOTP(totp *otp.TOTP) Option {
	return func(o *Options) {
		o.totp = totp
	}
}

func WithTwoFAIssuer(issuer string) Option {
	return func(o *Options) {
		if issuer != "" {
			o.issuer = issuer
		}
	}
}

func WithAdminLogins(logins []string) Option {
	return func(o *Options) {
		o.adminLogins = logins
	}
}

func (s *Server) Start() error {
	s.log.Info(fmt.Sprintf("Starting server on %s", s.srv.Addr))

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}

	return nil
}
