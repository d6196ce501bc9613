package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentClient_Disabled(t *testing.T) {
	assert.Nil(t, NewPaymentClient("", "key", time.Second))
}

func TestAuthorizedAmount(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/payments/pay_ok":
			json.NewEncoder(w).Encode(PaymentResponse{ID: "pay_ok", Status: PaymentCaptured, Amount: 130, Currency: "EUR"})
		case "/payments/pay_pending":
			json.NewEncoder(w).Encode(PaymentResponse{ID: "pay_pending", Status: "PENDING", Amount: 130})
		case "/payments/pay_boom":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewPaymentClient(server.URL, "secret", 2*time.Second)
	ctx := context.Background()

	amount, err := client.AuthorizedAmount(ctx, "pay_ok")
	require.NoError(t, err)
	assert.InDelta(t, 130, amount, 0.001)

	_, err = client.AuthorizedAmount(ctx, "pay_pending")
	assert.ErrorIs(t, err, ErrPaymentNotAuthorized)

	_, err = client.AuthorizedAmount(ctx, "pay_missing")
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	calls.Store(0)
	_, err = client.AuthorizedAmount(ctx, "pay_boom")
	assert.Error(t, err)
	assert.EqualValues(t, 3, calls.Load(), "server errors are retried twice")
}
