package payment

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubGatewayBuildsCheckoutURL(t *testing.T) {
	g := NewStubGateway("https://pay.example.test/checkout")
	out, err := g.StartCheckout(context.Background(), CheckoutRequest{
		MerchantOrderID: "order-1", Amount: 150, Method: "card",
	})
	require.NoError(t, err)

	u, err := url.Parse(out.URL)
	require.NoError(t, err)
	assert.Equal(t, "pay.example.test", u.Host)
	assert.Equal(t, "/checkout", u.Path)
	assert.Equal(t, "order-1", u.Query().Get("order"))
	assert.Equal(t, "150.00", u.Query().Get("amount"))
	assert.Equal(t, "card", u.Query().Get("method"))
}

func TestStubGatewayRequiresOrderID(t *testing.T) {
	_, err := NewStubGateway("https://pay.example.test").StartCheckout(context.Background(), CheckoutRequest{})
	assert.Error(t, err)
}
