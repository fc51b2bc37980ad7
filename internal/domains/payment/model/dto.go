package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// WEBHOOK PAYLOAD
// =====================================================

// WebhookNotification is the gateway's notification body. Depending on
// provider version the payload nests under "transaction" or "checkout";
// both shapes are accepted.
type WebhookNotification struct {
	Transaction *WebhookTransaction `json:"transaction,omitempty"`
	Checkout    *WebhookCheckout    `json:"checkout,omitempty"`
}

type WebhookTransaction struct {
	UID        string `json:"uid"`
	Token      string `json:"token"`
	Status     string `json:"status"`
	TrackingID string `json:"tracking_id"`
}

type WebhookCheckout struct {
	Token  string `json:"token"`
	Status string `json:"status"`
	Order  struct {
		TrackingID string `json:"tracking_id"`
	} `json:"order"`
}

// GatewayToken extracts the checkout token, whichever shape carried it.
func (n *WebhookNotification) GatewayToken() string {
	if n.Checkout != nil && n.Checkout.Token != "" {
		return n.Checkout.Token
	}
	if n.Transaction != nil {
		return n.Transaction.Token
	}
	return ""
}

// RawStatus extracts the provider status string.
func (n *WebhookNotification) RawStatus() string {
	if n.Checkout != nil && n.Checkout.Status != "" {
		return n.Checkout.Status
	}
	if n.Transaction != nil {
		return n.Transaction.Status
	}
	return ""
}

// TrackingID extracts the order id the session was created with.
func (n *WebhookNotification) TrackingID() string {
	if n.Checkout != nil && n.Checkout.Order.TrackingID != "" {
		return n.Checkout.Order.TrackingID
	}
	if n.Transaction != nil {
		return n.Transaction.TrackingID
	}
	return ""
}

// =====================================================
// RESULT DTOs
// =====================================================

// InitiateResult is the response to a payment initiation: where to send
// the customer.
type InitiateResult struct {
	OrderID     uuid.UUID       `json:"order_id"`
	Token       string          `json:"token"`
	RedirectURL string          `json:"redirect_url"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
}

// OutcomeResult reports what applying a gateway outcome did.
type OutcomeResult struct {
	OrderID          uuid.UUID `json:"order_id"`
	AttemptStatus    string    `json:"attempt_status"`
	OrderStatus      string    `json:"order_status,omitempty"`
	PaymentStatus    string    `json:"payment_status,omitempty"`
	Applied          bool      `json:"applied"`
	AlreadyProcessed bool      `json:"already_processed"`
}

// StatusResult is the customer-facing payment status of an order.
type StatusResult struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderStatus   string    `json:"order_status"`
	PaymentStatus string    `json:"payment_status"`
	AttemptStatus string    `json:"attempt_status,omitempty"`
	GatewayToken  string    `json:"gateway_token,omitempty"`
}
