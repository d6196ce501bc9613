package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotAuthorized = errors.New("payment not authorized")
)

// PaymentStatus values reported by the payment processor
const (
	PaymentAuthorized = "AUTHORIZED"
	PaymentCaptured   = "CAPTURED"
)

// PaymentResponse is the processor's view of one payment
type PaymentResponse struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// PaymentClient resolves payment ids against the external payment processor.
// The engine only ever sees the authorized amount.
type PaymentClient struct {
	client *resty.Client
}

// NewPaymentClient returns nil when baseURL is empty
func NewPaymentClient(baseURL, apiKey string, timeout time.Duration) *PaymentClient {
	if baseURL == "" {
		return nil
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &PaymentClient{client: client}
}

// AuthorizedAmount fetches a payment and returns its amount when the
// processor authorized or captured it
func (p *PaymentClient) AuthorizedAmount(ctx context.Context, paymentID string) (float64, error) {
	var payment PaymentResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&payment).
		Get("/payments/" + url.PathEscape(paymentID))
	if err != nil {
		return 0, fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return 0, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	case resp.IsError():
		return 0, fmt.Errorf("payment processor error %d: %s", resp.StatusCode(), resp.String())
	}

	if payment.Status != PaymentAuthorized && payment.Status != PaymentCaptured {
		return 0, fmt.Errorf("%w: %s is %s", ErrPaymentNotAuthorized, paymentID, payment.Status)
	}
	return payment.Amount, nil
}
