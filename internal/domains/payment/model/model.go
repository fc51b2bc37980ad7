package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// PAYMENT ATTEMPT STATUSES
// =====================================================
const (
	AttemptStatusPending   = "pending"
	AttemptStatusSucceeded = "succeeded"
	AttemptStatusFailed    = "failed"
	AttemptStatusCancelled = "cancelled"
)

// PaymentAttempt records one round-trip to the gateway for an order. The
// gateway token is unique, so a replayed webhook always lands on the same
// attempt row.
type PaymentAttempt struct {
	ID           uuid.UUID        `json:"id"`
	OrderID      uuid.UUID        `json:"order_id"`
	GatewayToken string           `json:"gateway_token"`
	MethodType   string           `json:"method_type"`
	Amount       decimal.Decimal  `json:"amount"`
	Currency     string           `json:"currency"`
	Status       string           `json:"status"`
	Details      map[string]any   `json:"details,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// IsTerminal reports whether the attempt reached a final status.
func (a *PaymentAttempt) IsTerminal() bool {
	return a.Status != AttemptStatusPending
}
