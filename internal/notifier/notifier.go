package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mlevkov/partnerhub/internal/httpclient"
	"github.com/mlevkov/partnerhub/internal/storage"
)

const batchSize = 20

// Notifier reports reviewed withdrawal requests to the payout processor
// webhook and marks them notified on success.
type Notifier struct {
	log          *slog.Logger
	pollInterval time.Duration
	storage      storage.Storage
	client       *Client
}

type Config struct {
	logger       *slog.Logger
	pollInterval time.Duration
	webhookURI   string
}

func NewNotifier(store storage.Storage, opts ...Option) *Notifier {
	cfg := &Config{
		logger:       slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		pollInterval: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	client := NewClient(
		WithClientLogger(cfg.logger),
		WithRestyClient(httpclient.New(httpclient.WithBaseURL(cfg.webhookURI))),
	)

	return &Notifier{
		log:          cfg.logger.With(slog.String("module", "notifier")),
		pollInterval: cfg.pollInterval,
		storage:      store,
		client:       client,
	}
}

type Option func(c *Config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.pollInterval = interval
	}
}

func WithWebhookURI(uri string) Option {
	return func(c *Config) {
		c.webhookURI = uri
	}
}

func (n *Notifier) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	n.log.Info("Start payout notifier daemon")

	for {
		select {
		case <-ctx.Done():
			n.log.Info("Context done, stopping payout notifier daemon")

			return nil

		case <-ticker.C:
			if err := n.process(ctx); err != nil {
				n.log.Error("notifier.process", slog.Any("error", err))
			}
		}
	}
}

func (n *Notifier) process(ctx context.Context) error {
	requests, err := n.storage.GetUnnotifiedReviewed(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("storage.GetUnnotifiedReviewed: %w", err)
	}

	for _, req := range requests {
		if err := n.client.SendReview(ctx, req); err != nil {
			if errors.Is(err, ErrWebhookUnavailable) {
				// The processor will pick it up on the next tick.
				n.log.Warn("webhook unavailable, deferring",
					slog.String("withdrawal", req.ID()))

				return nil
			}

			return fmt.Errorf("client.SendReview: %w", err)
		}

		if err := n.storage.MarkWithdrawalNotified(ctx, req.ID()); err != nil {
			return fmt.Errorf("storage.MarkWithdrawalNotified: %w", err)
		}

		n.log.Info("Reported withdrawal review",
			slog.String("withdrawal", req.ID()),
			slog.String("status", string(req.Status())))
	}

	return nil
}
