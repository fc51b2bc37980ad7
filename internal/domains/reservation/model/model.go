package model

import (
	"time"

	"github.com/google/uuid"
)

// =====================================================
// RESERVATION STATES
// =====================================================
// A reservation terminates exactly once and never resurrects.
const (
	StateActive    = "active"
	StateFulfilled = "fulfilled"
	StateReleased  = "released"
)

// Reservation is a time-bounded hold on a quantity of one stock item on
// behalf of one order line.
type Reservation struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     uuid.UUID  `json:"order_id"`
	StockItemID uuid.UUID  `json:"stock_item_id"`
	Quantity    int        `json:"quantity"`
	State       string     `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	TerminalAt  *time.Time `json:"terminal_at,omitempty"`
}

// IsActive reports whether the reservation still holds stock.
func (r *Reservation) IsActive() bool {
	return r.State == StateActive
}

// IsExpired reports whether the hold has outlived its TTL.
func (r *Reservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// MinutesRemaining is the read-model countdown shown to customers; zero
// once expired or terminal.
func (r *Reservation) MinutesRemaining(now time.Time) int {
	if !r.IsActive() || r.IsExpired(now) {
		return 0
	}
	return int(r.ExpiresAt.Sub(now).Minutes())
}

// Line is one (stock item, quantity) pair of a reservation batch.
type Line struct {
	LineIndex   int
	StockItemID uuid.UUID
	SKU         string
	Quantity    int
}

// View is the reservation read model used in order details and dashboards.
type View struct {
	ID               uuid.UUID  `json:"id"`
	OrderID          uuid.UUID  `json:"order_id"`
	StockItemID      uuid.UUID  `json:"stock_item_id"`
	SKU              string     `json:"sku"`
	ItemName         string     `json:"item_name"`
	Quantity         int        `json:"quantity"`
	State            string     `json:"state"`
	ExpiresAt        time.Time  `json:"expires_at"`
	TerminalAt       *time.Time `json:"terminal_at,omitempty"`
	MinutesRemaining int        `json:"minutes_remaining"`
}

// ExpiredRow is what the expiry sweep works on: the reservation plus the
// order fields needed to decide whether releasing is safe.
type ExpiredRow struct {
	ReservationID uuid.UUID
	OrderID       uuid.UUID
	StockItemID   uuid.UUID
	Quantity      int
	ExpiresAt     time.Time
	PaymentStatus string
	OrderStatus   string
}
