package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"commerce-backend/internal/domains/inventory/model"
)

// Ledger is the stock ledger: the only writer of (on_hand, reserved).
// The Tx-suffixed mutators run inside a caller-owned transaction so the
// reservation store can compose them with its own inserts atomically;
// each acquires an exclusive row lock ordered by stock item id.
type Ledger interface {
	// TryReserveTx locks the row, verifies available >= qty and bumps
	// reserved. Returns the post-mutation item. An insufficient balance
	// returns (nil, available, nil) so callers can build the deficit list
	// without treating it as an infrastructure failure.
	TryReserveTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty int) (item *model.StockItem, available int, err error)

	// ReleaseTx returns qty to available: reserved -= qty (clamped at 0).
	ReleaseTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty int) error

	// FulfillTx converts a hold into a permanent decrement:
	// reserved -= qty, on_hand -= qty, both clamped, atomically.
	FulfillTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty int) error

	// Adjust applies an admin on_hand delta in its own transaction.
	Adjust(ctx context.Context, itemID uuid.UUID, delta int) (*model.StockItem, error)

	// ReconcileReserved recomputes reserved from the active reservations of
	// the item. Follows Adjust, which may leave I4 transiently violated.
	ReconcileReserved(ctx context.Context, itemID uuid.UUID) error

	GetByID(ctx context.Context, itemID uuid.UUID) (*model.StockItem, error)

	// ResolveForProduct picks the stock item backing a product reference:
	// an active drop allocation with stock wins over the plain variant.
	ResolveForProduct(ctx context.Context, productSKU string) (*model.StockItem, error)

	ListLowStock(ctx context.Context, limit int) ([]model.LowStockItem, error)
	Dashboard(ctx context.Context) (*model.Dashboard, error)
	CheckAvailability(ctx context.Context, items []model.CheckAvailabilityItem) ([]model.CheckAvailabilityResult, error)
}
