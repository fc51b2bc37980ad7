package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"commerce-backend/internal/domains/order/model"
)

// OrderRepository persists orders and their line snapshots.
type OrderRepository interface {
	// CreateTx inserts the order and its lines inside the caller's
	// transaction, alongside the reservation batch.
	CreateTx(ctx context.Context, tx pgx.Tx, order *model.Order, lines []model.OrderLine) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	GetLines(ctx context.Context, orderID uuid.UUID) ([]model.OrderLine, error)

	// GetForUpdateTx locks the order row; every lifecycle transition
	// re-reads under this lock before applying its guard.
	GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// ApplyTransitionTx writes the statuses and timestamps a computed
	// transition produced.
	ApplyTransitionTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, t model.Transition, trackingNumber *string) error

	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.OrderSummary, error)
	ListAdmin(ctx context.Context, orderStatus, paymentStatus string, limit, offset int) ([]model.OrderSummary, error)

	// FindAbandoned returns ids of orders still awaiting payment past the
	// cutoff; the sweep cancels them.
	FindAbandoned(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// ShippingMethodRepository reads the configured delivery options.
type ShippingMethodRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ShippingMethod, error)
	ListActive(ctx context.Context) ([]model.ShippingMethod, error)
}
