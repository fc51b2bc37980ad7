package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"commerce-backend/internal/domains/inventory/model"
	"commerce-backend/internal/infrastructure/database"
	"commerce-backend/internal/shared/apperrors"
)

const stockItemColumns = `
	id, kind, sku, name, unit_price, on_hand, reserved,
	low_threshold, is_active, version, created_at, updated_at`

type postgresLedger struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewLedger creates the PostgreSQL stock ledger.
func NewLedger(pool *pgxpool.Pool, lockTimeout time.Duration) Ledger {
	return &postgresLedger{pool: pool, lockTimeout: lockTimeout}
}

func scanStockItem(row pgx.Row) (*model.StockItem, error) {
	var item model.StockItem
	err := row.Scan(
		&item.ID,
		&item.Kind,
		&item.SKU,
		&item.Name,
		&item.UnitPrice,
		&item.OnHand,
		&item.Reserved,
		&item.LowThreshold,
		&item.IsActive,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// lockRow reads one stock item with an exclusive row lock. The lock_timeout
// is scoped to the transaction; exceeding it surfaces as 55P03 which
// TranslateError maps to a retryable LockTimeout.
func (r *postgresLedger) lockRow(ctx context.Context, tx pgx.Tx, itemID uuid.UUID) (*model.StockItem, error) {
	if _, err := tx.Exec(ctx,
		fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("failed to set lock timeout: %w", err)
	}

	row := tx.QueryRow(ctx, `
		SELECT `+stockItemColumns+`
		FROM stock_items
		WHERE id = $1
		FOR UPDATE`, itemID)

	item, err := scanStockItem(row)
	if err != nil {
		return nil, database.TranslateError(err, "failed to lock stock item")
	}
	return item, nil
}

func (r *postgresLedger) TryReserveTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty int) (*model.StockItem, int, error) {
	if qty <= 0 {
		return nil, 0, apperrors.New(apperrors.KindValidation, "reserve quantity must be positive")
	}

	item, err := r.lockRow(ctx, tx, itemID)
	if err != nil {
		return nil, 0, err
	}

	if !item.IsActive {
		return nil, 0, nil
	}
	if item.Available() < qty {
		return nil, item.Available(), nil
	}

	row := tx.QueryRow(ctx, `
		UPDATE stock_items
		SET reserved = reserved + $2,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+stockItemColumns, itemID, qty)

	updated, err := scanStockItem(row)
	if err != nil {
		return nil, 0, database.TranslateError(err, "failed to reserve stock")
	}
	return updated, updated.Available(), nil
}

func (r *postgresLedger) ReleaseTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty int) error {
	if _, err := r.lockRow(ctx, tx, itemID); err != nil {
		return err
	}

	// The GREATEST clamp is a defensive floor only; the reservation state
	// machine guarantees a single release per reservation.
	_, err := tx.Exec(ctx, `
		UPDATE stock_items
		SET reserved = GREATEST(0, reserved - $2),
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1`, itemID, qty)
	if err != nil {
		return database.TranslateError(err, "failed to release stock")
	}
	return nil
}

func (r *postgresLedger) FulfillTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty int) error {
	if _, err := r.lockRow(ctx, tx, itemID); err != nil {
		return err
	}

	_, err := tx.Exec(ctx, `
		UPDATE stock_items
		SET reserved = GREATEST(0, reserved - $2),
		    on_hand = GREATEST(0, on_hand - $2),
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1`, itemID, qty)
	if err != nil {
		return database.TranslateError(err, "failed to fulfill stock")
	}
	return nil
}

func (r *postgresLedger) Adjust(ctx context.Context, itemID uuid.UUID, delta int) (*model.StockItem, error) {
	var updated *model.StockItem
	err := database.WithinTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := r.lockRow(ctx, tx, itemID); err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `
			UPDATE stock_items
			SET on_hand = on_hand + $2,
			    version = version + 1,
			    updated_at = now()
			WHERE id = $1
			RETURNING `+stockItemColumns, itemID, delta)

		item, err := scanStockItem(row)
		if err != nil {
			return database.TranslateError(err, "failed to adjust stock")
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *postgresLedger) ReconcileReserved(ctx context.Context, itemID uuid.UUID) error {
	return database.WithinTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := r.lockRow(ctx, tx, itemID); err != nil {
			return err
		}

		// I4: reserved must equal the sum of active reservation quantities.
		_, err := tx.Exec(ctx, `
			UPDATE stock_items s
			SET reserved = LEAST(s.on_hand, COALESCE((
			        SELECT SUM(r.quantity)
			        FROM reservations r
			        WHERE r.stock_item_id = s.id AND r.state = 'active'
			    ), 0)),
			    version = version + 1,
			    updated_at = now()
			WHERE s.id = $1`, itemID)
		if err != nil {
			return database.TranslateError(err, "failed to reconcile reserved count")
		}
		return nil
	})
}

func (r *postgresLedger) GetByID(ctx context.Context, itemID uuid.UUID) (*model.StockItem, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+stockItemColumns+`
		FROM stock_items
		WHERE id = $1`, itemID)

	item, err := scanStockItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "stock item not found", err)
		}
		return nil, fmt.Errorf("failed to get stock item: %w", err)
	}
	return item, nil
}

func (r *postgresLedger) ResolveForProduct(ctx context.Context, productSKU string) (*model.StockItem, error) {
	// A SKU carries at most one row per kind; fetch the active ones and
	// let the model decide which sells.
	rows, err := r.pool.Query(ctx, `
		SELECT `+stockItemColumns+`
		FROM stock_items
		WHERE sku = $1 AND is_active`, productSKU)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve stock item: %w", err)
	}
	defer rows.Close()

	var items []model.StockItem
	for rows.Next() {
		item, err := scanStockItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to resolve stock item: %w", err)
	}

	picked := model.PickSellable(items)
	if picked == nil {
		return nil, apperrors.New(apperrors.KindNotFound,
			fmt.Sprintf("no sellable stock item for sku %q", productSKU))
	}
	return picked, nil
}

func (r *postgresLedger) ListLowStock(ctx context.Context, limit int) ([]model.LowStockItem, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, sku, name, kind, on_hand, reserved, low_threshold
		FROM stock_items
		WHERE is_active AND on_hand - reserved <= low_threshold
		ORDER BY on_hand - reserved ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock items: %w", err)
	}
	defer rows.Close()

	var items []model.LowStockItem
	for rows.Next() {
		var it model.LowStockItem
		if err := rows.Scan(&it.StockItemID, &it.SKU, &it.Name, &it.Kind,
			&it.OnHand, &it.Reserved, &it.LowThreshold); err != nil {
			return nil, fmt.Errorf("failed to scan low stock item: %w", err)
		}
		it.Available = it.OnHand - it.Reserved
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *postgresLedger) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	var d model.Dashboard
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT SUM(reserved) FROM stock_items), 0),
			(SELECT COUNT(*) FROM reservations WHERE state = 'active'),
			(SELECT COUNT(*) FROM reservations WHERE state = 'active' AND expires_at < now()),
			(SELECT COUNT(*) FROM orders WHERE payment_status = 'pending'),
			(SELECT COUNT(*) FROM stock_items WHERE is_active AND on_hand - reserved <= low_threshold),
			(SELECT MAX(finished_at) FROM sweep_runs)`).
		Scan(&d.TotalReserved, &d.ActiveReservations, &d.CurrentlyExpired,
			&d.PendingOrders, &d.LowStockItems, &d.LastSweepAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory dashboard: %w", err)
	}
	return &d, nil
}

func (r *postgresLedger) CheckAvailability(ctx context.Context, items []model.CheckAvailabilityItem) ([]model.CheckAvailabilityResult, error) {
	results := make([]model.CheckAvailabilityResult, 0, len(items))
	for _, req := range items {
		item, err := r.GetByID(ctx, req.StockItemID)
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				results = append(results, model.CheckAvailabilityResult{
					StockItemID: req.StockItemID,
					Requested:   req.Quantity,
					Available:   0,
					InStock:     false,
				})
				continue
			}
			return nil, err
		}

		results = append(results, model.CheckAvailabilityResult{
			StockItemID: item.ID,
			SKU:         item.SKU,
			Requested:   req.Quantity,
			Available:   item.Available(),
			InStock:     item.IsActive && item.Available() >= req.Quantity,
		})
	}
	return results, nil
}
