package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mlevkov/partnerhub/internal/config"
	"github.com/mlevkov/partnerhub/internal/logger"
	"github.com/mlevkov/partnerhub/internal/notifier"
	"github.com/mlevkov/partnerhub/internal/otp"
	"github.com/mlevkov/partnerhub/internal/server"
	"github.com/mlevkov/partnerhub/internal/storage"
	"github.com/mlevkov/partnerhub/internal/storage/inmemory"
	"github.com/mlevkov/partnerhub/internal/storage/pgstorage"
)

type Application struct {
	log      *slog.Logger
	server   *server.Server
	notifier *notifier.Notifier
	storage  storage.Storage
}

func New() (*Application, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config.NewConfig: %w", err)
	}

	logLevel, err := logger.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger.ParseLogLevel: %w", err)
	}

	logg := logger.NewLogger(
		logger.WithLevel(logLevel),
		logger.WithFormat(logger.LogFormatJSON),
		logger.WithAddSource(false),
	)

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	totp := otp.New()

	srv, err := server.NewServer(
		store,
		server.WithServerAddr(cfg.ServerAddr),
		server.WithJWTSecretKey([]byte(cfg.JWTSecretKey)),
		server.WithLogger(logg),
		server.WithTOTP(totp),
		server.WithTwoFAIssuer(cfg.TwoFAIssuer),
		server.WithAdminLogins(cfg.AdminLogins),
	)
	if err != nil {
		return nil, fmt.Errorf("server.NewServer: %w", err)
	}

	app := &Application{
		log:     logg,
		server:  srv,
		storage: store,
	}

	if cfg.WebhookURI != "" {
		app.notifier = notifier.NewNotifier(
			store,
			notifier.WithLogger(logg),
			notifier.WithWebhookURI(cfg.WebhookURI),
			notifier.WithPollInterval(cfg.NotifyInterval),
		)
	}

	return app, nil
}

func newStorage(cfg config.Config) (storage.Storage, error) {
	if cfg.DatabaseURI == "" {
		return storage.NewStorage(inmemory.NewStorage()), nil
	}

	pgstore, err := pgstorage.NewStorage(cfg.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("pgstorage.NewStorage: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pgstore.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("pgstore.Bootstrap: %w", err)
	}

	return storage.NewStorage(pgstore), nil
}

func (a *Application) Run() error {
	errChan := make(chan error, 1)

	go func() {
		if err := a.server.Start(); err != nil {
			errChan <- fmt.Errorf("server.Start: %w", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.notifier != nil {
		go func() {
			if err := a.notifier.Run(ctx); err != nil {
				errChan <- fmt.Errorf("notifier.Run: %w", err)
			}
		}()
	}

	// Graceful shutdown handler
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err

	case <-quit:
		a.log.Info("Gracefully shutting down application...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.Shutdown", slog.Any("error", err))
		}

		if err := a.storage.Close(); err != nil {
			a.log.Error("storage.Close", slog.Any("error", err))
		}

		return nil
	}
}
