package mock

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"commerce-backend/internal/domains/payment/gateway"
)

// Gateway is an in-memory gateway for development and tests. Checkouts
// stay pending until ForceStatus flips them.
type Gateway struct {
	mu        sync.Mutex
	checkouts map[string]*gateway.CheckoutStatus
}

func NewGateway() *Gateway {
	return &Gateway{checkouts: make(map[string]*gateway.CheckoutStatus)}
}

func (g *Gateway) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	token := uuid.New().String()
	g.checkouts[token] = &gateway.CheckoutStatus{
		Token:      token,
		Status:     "pending",
		TrackingID: req.OrderID.String(),
	}
	return &gateway.Checkout{
		Token:       token,
		RedirectURL: fmt.Sprintf("https://checkout.example.test/%s", token),
	}, nil
}

func (g *Gateway) GetCheckout(ctx context.Context, token string) (*gateway.CheckoutStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status, ok := g.checkouts[token]
	if !ok {
		return nil, fmt.Errorf("unknown checkout token %q", token)
	}
	copied := *status
	return &copied, nil
}

func (g *Gateway) VerifyWebhook(r *http.Request, body []byte) error {
	return nil
}

// ForceStatus sets the status a later GetCheckout reports.
func (g *Gateway) ForceStatus(token, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.checkouts[token]; ok {
		c.Status = status
	}
}
