package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/mlevkov/partnerhub/internal/domain/payouts"
	"github.com/mlevkov/partnerhub/internal/httpclient"
)

var ErrWebhookUnavailable = errors.New("payout webhook unavailable")

type ReviewEvent struct {
	ID     string          `json:"id"`
	Login  string          `json:"login"`
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status"`
	Note   string          `json:"note,omitempty"`
}

type Client struct {
	log    *slog.Logger
	client *resty.Client
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		log:    slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		client: httpclient.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type ClientOption func(c *Client)

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = logger
	}
}

func WithRestyClient(client *resty.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// SendReview posts one reviewed withdrawal to the payout processor.
func (c *Client) SendReview(ctx context.Context, req *payouts.WithdrawalRequest) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(ReviewEvent{
			ID:     req.ID(),
			Login:  req.Login(),
			Amount: req.Amount(),
			Status: string(req.Status()),
			Note:   req.Note(),
		}).
		Post("/v1/payout-reviews")
	if err != nil {
		return fmt.Errorf("client.R: %w", err)
	}

	switch {
	case resp.StatusCode() >= http.StatusInternalServerError,
		resp.StatusCode() == http.StatusTooManyRequests:
		return ErrWebhookUnavailable

	case resp.StatusCode() >= http.StatusBadRequest:
		return fmt.Errorf("webhook rejected event: %s", resp.Status())
	}

	return nil
}
