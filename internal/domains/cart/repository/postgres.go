package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"commerce-backend/internal/domains/cart/model"
	"commerce-backend/internal/infrastructure/database"
	"commerce-backend/internal/shared/apperrors"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	var cart model.Cart
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1`, userID).
		Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "cart not found", err)
		}
		return nil, database.TranslateError(err, "failed to get cart")
	}
	return &cart, nil
}

func (r *postgresRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	var cart model.Cart
	err := r.pool.QueryRow(ctx, `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id, user_id, created_at, updated_at`, userID).
		Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, database.TranslateError(err, "failed to create cart")
	}
	return &cart, nil
}

func (r *postgresRepository) GetItemsByCartID(ctx context.Context, cartID uuid.UUID) ([]model.CartItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ci.id, ci.cart_id, ci.stock_item_id, s.name, s.sku, s.unit_price,
		       ci.quantity, ci.created_at
		FROM cart_items ci
		JOIN stock_items s ON s.id = ci.stock_item_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at ASC`, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var out []model.CartItem
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.StockItemID, &item.ItemName,
			&item.SKU, &item.UnitPrice, &item.Quantity, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *postgresRepository) UpsertItem(ctx context.Context, cartID, stockItemID uuid.UUID, quantity int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cart_items (cart_id, stock_item_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT unique_cart_item
		DO UPDATE SET quantity = EXCLUDED.quantity`,
		cartID, stockItemID, quantity)
	if err != nil {
		return database.TranslateError(err, "failed to upsert cart item")
	}
	return nil
}

func (r *postgresRepository) RemoveItem(ctx context.Context, cartID, stockItemID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = $1 AND stock_item_id = $2`, cartID, stockItemID)
	if err != nil {
		return database.TranslateError(err, "failed to remove cart item")
	}
	return nil
}

func (r *postgresRepository) ClearTx(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return database.TranslateError(err, "failed to clear cart")
	}
	return nil
}
