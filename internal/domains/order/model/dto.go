package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// REQUEST DTOs
// =====================================================

// CreateOrderRequest checks out the caller's cart. Shipping is selected
// either by a configured method id or by an inline name+cost override.
type CreateOrderRequest struct {
	ShippingAddress    Address          `json:"shipping_address"`
	BillingAddress     *Address         `json:"billing_address,omitempty"`
	ShippingMethodID   *uuid.UUID       `json:"shipping_method_id,omitempty"`
	ShippingMethodName *string          `json:"shipping_method_name,omitempty"`
	ShippingCost       *decimal.Decimal `json:"shipping_cost,omitempty"`
	GuestEmail         *string          `json:"guest_email,omitempty"`
	CustomerNotes      *string          `json:"customer_notes,omitempty"`
}

func (r CreateOrderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ShippingAddress, validation.Required),
		validation.Field(&r.ShippingMethodName, validation.Length(1, 100)),
		validation.Field(&r.ShippingCost,
			validation.When(r.ShippingMethodName != nil, validation.NotNil.Error("shipping_cost is required with shipping_method_name")),
			validation.By(nonNegativeCost)),
		validation.Field(&r.GuestEmail, is.Email),
	)
}

// DirectOrderItem is one line of a direct buy, bypassing the cart. The
// SKU names the product; stock resolution picks the backing stock item.
type DirectOrderItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

func (i DirectOrderItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.SKU, validation.Required, validation.Length(1, 100)),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1), validation.Max(1000)),
	)
}

// CreateDirectOrderRequest places an order for explicit items.
type CreateDirectOrderRequest struct {
	Items              []DirectOrderItem `json:"items"`
	ShippingAddress    Address           `json:"shipping_address"`
	BillingAddress     *Address          `json:"billing_address,omitempty"`
	ShippingMethodID   *uuid.UUID        `json:"shipping_method_id,omitempty"`
	ShippingMethodName *string           `json:"shipping_method_name,omitempty"`
	ShippingCost       *decimal.Decimal  `json:"shipping_cost,omitempty"`
	GuestEmail         *string           `json:"guest_email,omitempty"`
	CustomerNotes      *string           `json:"customer_notes,omitempty"`
}

func (r CreateDirectOrderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.ShippingAddress, validation.Required),
		validation.Field(&r.ShippingMethodName, validation.Length(1, 100)),
		validation.Field(&r.ShippingCost,
			validation.When(r.ShippingMethodName != nil, validation.NotNil.Error("shipping_cost is required with shipping_method_name")),
			validation.By(nonNegativeCost)),
		validation.Field(&r.GuestEmail, is.Email),
	)
}

func nonNegativeCost(value interface{}) error {
	cost, ok := value.(*decimal.Decimal)
	if !ok || cost == nil {
		return nil
	}
	if cost.IsNegative() {
		return errors.New("must be zero or greater")
	}
	return nil
}

func (a Address) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&a.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&a.Street, validation.Required, validation.Length(1, 255)),
		validation.Field(&a.City, validation.Required, validation.Length(1, 100)),
		validation.Field(&a.PostalCode, validation.Required, validation.Length(1, 20)),
		validation.Field(&a.Country, validation.Required, validation.Length(2, 100)),
	)
}

// ShipOrderRequest marks an order shipped with its tracking number.
type ShipOrderRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

func (r ShipOrderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TrackingNumber, validation.Required, validation.Length(1, 100)),
	)
}

// BulkOrderRequest applies one lifecycle event to many orders.
type BulkOrderRequest struct {
	OrderIDs []uuid.UUID `json:"order_ids"`
}

func (r BulkOrderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrderIDs, validation.Required, validation.Length(1, 100)),
	)
}

// =====================================================
// RESPONSE DTOs
// =====================================================

// OrderResponse is the order detail payload with its lines.
type OrderResponse struct {
	Order *Order      `json:"order"`
	Lines []OrderLine `json:"lines"`
}

// OrderSummary is the list-view projection.
type OrderSummary struct {
	ID            uuid.UUID       `json:"id"`
	OrderNumber   string          `json:"order_number"`
	OrderStatus   string          `json:"order_status"`
	PaymentStatus string          `json:"payment_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	LineCount     int             `json:"line_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BulkOrderResult reports one order's outcome in a bulk operation.
type BulkOrderResult struct {
	OrderID uuid.UUID `json:"order_id"`
	Applied bool      `json:"applied"`
	Error   string    `json:"error,omitempty"`
}
