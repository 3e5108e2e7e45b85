// Package payment abstracts the external payment gateway. Only a stub that
// builds checkout URLs is provided.
package payment

import (
	"context"
	"errors"
	"net/url"
	"strconv"
)

// CheckoutRequest describes one pending payment handed to the gateway.
type CheckoutRequest struct {
	MerchantOrderID string
	Amount          float64
	Method          string
	Description     string
}

// Checkout is what the gateway returns for a new order.
type Checkout struct {
	URL       string `json:"checkout_url"`
	Reference string `json:"gateway_reference,omitempty"`
}

// Gateway starts a checkout for a pending payment.
type Gateway interface {
	StartCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}

// StubGateway never talks to a provider. The checkout URL is BaseURL with
// the order id and amount as query parameters.
type StubGateway struct {
	BaseURL string
}

func NewStubGateway(baseURL string) *StubGateway {
	return &StubGateway{BaseURL: baseURL}
}

func (g *StubGateway) StartCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.MerchantOrderID == "" {
		return nil, errors.New("payment: merchant order id is required")
	}
	u, err := url.Parse(g.BaseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("order", req.MerchantOrderID)
	q.Set("amount", strconv.FormatFloat(req.Amount, 'f', 2, 64))
	if req.Method != "" {
		q.Set("method", req.Method)
	}
	u.RawQuery = q.Encode()
	return &Checkout{URL: u.String()}, nil
}
