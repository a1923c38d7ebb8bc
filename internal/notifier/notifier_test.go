package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlevkov/partnerhub/internal/domain/ledger"
	"github.com/mlevkov/partnerhub/internal/domain/payouts"
	"github.com/mlevkov/partnerhub/internal/httpclient"
	"github.com/mlevkov/partnerhub/internal/storage/inmemory"
)

func reviewedWithdrawal(t *testing.T, store *inmemory.Storage, login string) *payouts.WithdrawalRequest {
	t.Helper()

	ctx := context.Background()

	req, err := payouts.NewWithdrawalRequest(login, decimal.NewFromInt(40), "")
	require.NoError(t, err)

	debit, err := ledger.NewEntry(login, ledger.KindWithdrawal, req.Amount(), "withdrawal request "+req.ID())
	require.NoError(t, err)

	require.NoError(t, store.CreateWithdrawal(ctx, req, debit))
	require.NoError(t, req.Approve(""))
	require.NoError(t, store.ReviewWithdrawal(ctx, req, nil))

	return req
}

func TestProcessReportsAndMarks(t *testing.T) {
	store := inmemory.NewStorage()
	req := reviewedWithdrawal(t, store, "alice")

	var events []ReviewEvent

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payout-reviews", r.URL.Path)

		var event ReviewEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		events = append(events, event)

		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewNotifier(store, WithWebhookURI(srv.URL))

	require.NoError(t, n.process(context.Background()))

	require.Len(t, events, 1)
	assert.Equal(t, req.ID(), events[0].ID)
	assert.Equal(t, "alice", events[0].Login)
	assert.Equal(t, "approved", events[0].Status)

	remaining, err := store.GetUnnotifiedReviewed(context.Background(), batchSize)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// A second pass has nothing to send.
	require.NoError(t, n.process(context.Background()))
	assert.Len(t, events, 1)
}

func TestProcessDefersOnUnavailableWebhook(t *testing.T) {
	store := inmemory.NewStorage()
	reviewedWithdrawal(t, store, "alice")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := NewNotifier(store, WithWebhookURI(srv.URL))

	// Unavailable is not an error; the batch stays queued for the next tick.
	require.NoError(t, n.process(context.Background()))

	remaining, err := store.GetUnnotifiedReviewed(context.Background(), batchSize)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestSendReviewRejectedEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(WithRestyClient(httpclient.New(httpclient.WithBaseURL(srv.URL))))

	req, err := payouts.NewWithdrawalRequest("alice", decimal.NewFromInt(40), "")
	require.NoError(t, err)
	require.NoError(t, req.Reject("insufficient docs"))

	err = client.SendReview(context.Background(), req)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrWebhookUnavailable)
}
