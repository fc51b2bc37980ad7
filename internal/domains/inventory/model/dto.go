package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// CheckAvailabilityRequest queries whether the requested quantities can be
// reserved right now. Read-only; gives no hold on the stock.
type CheckAvailabilityRequest struct {
	Items []CheckAvailabilityItem `json:"items"`
}

type CheckAvailabilityItem struct {
	StockItemID uuid.UUID `json:"stock_item_id"`
	Quantity    int       `json:"quantity"`
}

func (r CheckAvailabilityRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items, validation.Required, validation.Length(1, 100)),
	)
}

func (i CheckAvailabilityItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.StockItemID, validation.Required),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1)),
	)
}

type CheckAvailabilityResult struct {
	StockItemID uuid.UUID `json:"stock_item_id"`
	SKU         string    `json:"sku"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
	InStock     bool      `json:"in_stock"`
}

// BulkAdjustRequest is the admin ledger adjustment. Deltas may be negative;
// each adjustment is followed by a reserved-count reconciliation pass.
type BulkAdjustRequest struct {
	Adjustments []Adjustment `json:"adjustments"`
}

type Adjustment struct {
	StockItemID uuid.UUID `json:"stock_item_id"`
	Delta       int       `json:"delta"`
	Reason      string    `json:"reason"`
}

func (r BulkAdjustRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Adjustments, validation.Required, validation.Length(1, 200)),
	)
}

func (a Adjustment) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.StockItemID, validation.Required),
		validation.Field(&a.Delta, validation.Required),
	)
}

type AdjustResult struct {
	StockItemID uuid.UUID `json:"stock_item_id"`
	OnHand      int       `json:"on_hand"`
	Reserved    int       `json:"reserved"`
	Applied     bool      `json:"applied"`
	Error       string    `json:"error,omitempty"`
}

// Dashboard aggregates the operator view of the reservation engine.
type Dashboard struct {
	TotalReserved      int        `json:"total_reserved"`
	ActiveReservations int        `json:"active_reservations"`
	CurrentlyExpired   int        `json:"currently_expired"`
	PendingOrders      int        `json:"pending_orders"`
	LowStockItems      int        `json:"low_stock_items"`
	LastSweepAt        *time.Time `json:"last_sweep_at,omitempty"`
}

type LowStockItem struct {
	StockItemID  uuid.UUID `json:"stock_item_id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	OnHand       int       `json:"on_hand"`
	Reserved     int       `json:"reserved"`
	Available    int       `json:"available"`
	LowThreshold int       `json:"low_threshold"`
}
