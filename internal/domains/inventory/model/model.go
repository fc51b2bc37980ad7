package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// STOCK ITEM KINDS
// =====================================================
// A stock item is either a regular product variant or a time-limited drop
// allocation. One table discriminated by kind, not two parallel hierarchies.
const (
	KindVariant = "variant"
	KindDrop    = "drop"
)

// StockItem is the unit of inventory accounting for one SKU.
// Mutated only by the ledger repository; treated as an immutable value
// object everywhere else.
type StockItem struct {
	ID           uuid.UUID       `json:"id"`
	Kind         string          `json:"kind"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	OnHand       int             `json:"on_hand"`
	Reserved     int             `json:"reserved"`
	LowThreshold int             `json:"low_threshold"`
	IsActive     bool            `json:"is_active"`
	Version      int             `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Available is the quantity that can still be reserved.
func (s *StockItem) Available() int {
	return s.OnHand - s.Reserved
}

// IsLowStock reports whether the item is at or below its alert threshold.
func (s *StockItem) IsLowStock() bool {
	return s.Available() <= s.LowThreshold
}

// PickSellable chooses the stock item a product SKU sells from. An active
// drop allocation with stock remaining wins over the plain variant so
// limited allocations sell first; a sold-out drop falls back to the
// variant. Returns nil when nothing is sellable.
func PickSellable(items []StockItem) *StockItem {
	var variant *StockItem
	for i := range items {
		item := &items[i]
		if !item.IsActive {
			continue
		}
		switch item.Kind {
		case KindDrop:
			if item.Available() > 0 {
				return item
			}
		case KindVariant:
			if variant == nil {
				variant = item
			}
		}
	}
	return variant
}
