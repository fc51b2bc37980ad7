package gateway

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// GATEWAY INTERFACE
// =====================================================

// Gateway is the hosted-checkout payment provider. Create a checkout to
// get a redirect URL, then learn the outcome from webhooks and from
// polling GetCheckout. Redirect query parameters are never trusted.
type Gateway interface {
	// CreateCheckout registers a payment session and returns its token
	// plus the URL to send the customer to.
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)

	// GetCheckout fetches the authoritative state of a checkout session.
	GetCheckout(ctx context.Context, token string) (*CheckoutStatus, error)

	// VerifyWebhook authenticates an incoming gateway notification.
	VerifyWebhook(r *http.Request, body []byte) error
}

// ReturnURLs are the browser redirect targets per checkout outcome.
type ReturnURLs struct {
	Success string
	Decline string
	Fail    string
	Cancel  string
}

// CheckoutRequest describes the payment session to create. Amount is in
// major units of Currency; the provider adapter converts to minor units.
type CheckoutRequest struct {
	OrderID         uuid.UUID
	OrderNumber     string
	Amount          decimal.Decimal
	Currency        string
	Description     string
	CustomerEmail   string
	ReturnURLs      ReturnURLs
	NotificationURL string
}

// Checkout is a freshly created payment session.
type Checkout struct {
	Token       string
	RedirectURL string
}

// CheckoutStatus is the provider's view of a session. TrackingID carries
// the order id the session was created with.
type CheckoutStatus struct {
	Token      string
	Status     string
	TrackingID string
	Raw        map[string]interface{}
}
