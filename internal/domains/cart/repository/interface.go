package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"commerce-backend/internal/domains/cart/model"
)

// RepositoryInterface reads and clears carts. Cart contents are written by
// the storefront; checkout only consumes them.
type RepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	GetItemsByCartID(ctx context.Context, cartID uuid.UUID) ([]model.CartItem, error)
	UpsertItem(ctx context.Context, cartID, stockItemID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, cartID, stockItemID uuid.UUID) error

	// ClearTx empties the cart inside the checkout transaction, so the
	// cart survives untouched when checkout rolls back.
	ClearTx(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error
}
