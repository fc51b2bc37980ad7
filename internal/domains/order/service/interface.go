package service

import (
	"context"

	"github.com/google/uuid"

	"commerce-backend/internal/domains/order/model"
)

// CheckoutService places orders: cart checkout and direct buy. Every
// placement reserves stock, writes the order and clears the cart in one
// transaction.
type CheckoutService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, req model.CreateOrderRequest) (*model.OrderResponse, error)
	CreateDirectOrder(ctx context.Context, userID *uuid.UUID, req model.CreateDirectOrderRequest) (*model.OrderResponse, error)

	GetOrder(ctx context.Context, orderID uuid.UUID) (*model.OrderResponse, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.OrderSummary, error)
	ListAdmin(ctx context.Context, orderStatus, paymentStatus string, limit, offset int) ([]model.OrderSummary, error)
	ListShippingMethods(ctx context.Context) ([]model.ShippingMethod, error)
}

// LifecycleService drives an order through its state machine. ApplyEvent
// is the single write path: it locks the order, computes the transition
// and settles reservations in the same transaction.
type LifecycleService interface {
	ApplyEvent(ctx context.Context, orderID uuid.UUID, event string, trackingNumber *string) (*model.Order, error)
	CancelByUser(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error)
	BulkApply(ctx context.Context, orderIDs []uuid.UUID, event string) []model.BulkOrderResult
}
