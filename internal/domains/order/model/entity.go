package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// ORDER STATUS CONSTANTS
// =====================================================
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusProcessing     = "processing"
	OrderStatusShipped        = "shipped"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
	OrderStatusRefunded       = "refunded"
	OrderStatusFailed         = "failed"
)

// =====================================================
// PAYMENT STATUS CONSTANTS
// =====================================================
const (
	PaymentStatusPending         = "pending"
	PaymentStatusPaid            = "paid"
	PaymentStatusFailed          = "failed"
	PaymentStatusCancelled       = "cancelled"
	PaymentStatusRefundedPartial = "refunded_partial"
	PaymentStatusRefundedFull    = "refunded_full"
)

// TerminalOrderStatuses never transition again; reservations under them
// are orphans if still active.
var TerminalOrderStatuses = map[string]bool{
	OrderStatusDelivered: true,
	OrderStatusCancelled: true,
	OrderStatusRefunded:  true,
	OrderStatusFailed:    true,
}

// Address is snapshotted onto the order as JSONB so later edits to a
// customer's address book never rewrite order history.
type Address struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// =====================================================
// ENTITY: Order
// =====================================================
type Order struct {
	ID                 uuid.UUID       `json:"id"`
	OrderNumber        string          `json:"order_number"`
	UserID             *uuid.UUID      `json:"user_id,omitempty"`
	GuestEmail         *string         `json:"guest_email,omitempty"`
	ShippingAddress    Address         `json:"shipping_address"`
	BillingAddress     Address         `json:"billing_address"`
	ShippingMethodName *string         `json:"shipping_method_name,omitempty"`
	ShippingCost       decimal.Decimal `json:"shipping_cost"`
	SubtotalAmount     decimal.Decimal `json:"subtotal_amount"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	Currency           string          `json:"currency"`
	OrderStatus        string          `json:"order_status"`
	PaymentStatus      string          `json:"payment_status"`
	CustomerNotes      *string         `json:"customer_notes,omitempty"`
	TrackingNumber     *string         `json:"tracking_number,omitempty"`
	ShippedAt          *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// CanBeCancelledByUser checks if the customer may still cancel.
// Business rule: anything not yet shipped is cancellable.
func (o *Order) CanBeCancelledByUser() bool {
	return o.OrderStatus == OrderStatusPendingPayment || o.OrderStatus == OrderStatusProcessing
}

// IsPaymentCompleted checks if payment settled in full.
func (o *Order) IsPaymentCompleted() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// OwnedBy reports whether the order belongs to the given user.
func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID != nil && *o.UserID == userID
}

// ContactEmail returns whichever email can reach the buyer.
func (o *Order) ContactEmail() string {
	if o.GuestEmail != nil {
		return *o.GuestEmail
	}
	return ""
}

// =====================================================
// ENTITY: OrderLine
// =====================================================
// Name, SKU and price are snapshots taken at checkout; catalog edits
// after the fact do not touch them.
type OrderLine struct {
	ID           uuid.UUID       `json:"id"`
	OrderID      uuid.UUID       `json:"order_id"`
	StockItemID  uuid.UUID       `json:"stock_item_id"`
	NameSnapshot string          `json:"name"`
	SKUSnapshot  string          `json:"sku"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CalculateSubtotal computes quantity times unit price.
func (l *OrderLine) CalculateSubtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// =====================================================
// ENTITY: ShippingMethod
// =====================================================
type ShippingMethod struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Cost        decimal.Decimal `json:"cost"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewOrderNumber builds the public order number: ORD-YYYYMMDD-XXXXXXXX,
// where the suffix is the first 8 hex chars of the order id.
func NewOrderNumber(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("ORD-%s-%s",
		at.UTC().Format("20060102"),
		strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8]))
}
