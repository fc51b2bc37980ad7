package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"commerce-backend/internal/domains/order/model"
	"commerce-backend/internal/infrastructure/database"
	"commerce-backend/internal/shared/apperrors"
)

const orderColumns = `
	id, order_number, user_id, guest_email, shipping_address, billing_address,
	shipping_method_name, shipping_cost, subtotal_amount, total_amount, currency,
	order_status, payment_status, customer_notes, tracking_number,
	shipped_at, delivered_at, created_at, updated_at`

type postgresOrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &postgresOrderRepository{pool: pool}
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var shippingJSON, billingJSON []byte
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.GuestEmail,
		&shippingJSON,
		&billingJSON,
		&o.ShippingMethodName,
		&o.ShippingCost,
		&o.SubtotalAmount,
		&o.TotalAmount,
		&o.Currency,
		&o.OrderStatus,
		&o.PaymentStatus,
		&o.CustomerNotes,
		&o.TrackingNumber,
		&o.ShippedAt,
		&o.DeliveredAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to decode shipping address: %w", err)
	}
	if err := json.Unmarshal(billingJSON, &o.BillingAddress); err != nil {
		return nil, fmt.Errorf("failed to decode billing address: %w", err)
	}
	return &o, nil
}

func (r *postgresOrderRepository) CreateTx(ctx context.Context, tx pgx.Tx, order *model.Order, lines []model.OrderLine) error {
	shippingJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}
	billingJSON, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode billing address: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, guest_email, shipping_address, billing_address,
			shipping_method_name, shipping_cost, subtotal_amount, total_amount, currency,
			order_status, payment_status, customer_notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)`,
		order.ID, order.OrderNumber, order.UserID, order.GuestEmail,
		shippingJSON, billingJSON,
		order.ShippingMethodName, order.ShippingCost,
		order.SubtotalAmount, order.TotalAmount, order.Currency,
		order.OrderStatus, order.PaymentStatus, order.CustomerNotes, order.CreatedAt)
	if err != nil {
		return database.TranslateError(err, "failed to insert order")
	}

	for i := range lines {
		line := &lines[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO order_lines (
				id, order_id, stock_item_id, name_snapshot, sku_snapshot,
				quantity, unit_price, subtotal, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			line.ID, line.OrderID, line.StockItemID, line.NameSnapshot, line.SKUSnapshot,
			line.Quantity, line.UnitPrice, line.Subtotal, line.CreatedAt)
		if err != nil {
			return database.TranslateError(err, "failed to insert order line")
		}
	}
	return nil
}

func (r *postgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "order not found", err)
		}
		return nil, database.TranslateError(err, "failed to get order")
	}
	return order, nil
}

func (r *postgresOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "order not found", err)
		}
		return nil, database.TranslateError(err, "failed to get order")
	}
	return order, nil
}

func (r *postgresOrderRepository) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "order not found", err)
		}
		return nil, database.TranslateError(err, "failed to lock order")
	}
	return order, nil
}

func (r *postgresOrderRepository) GetLines(ctx context.Context, orderID uuid.UUID) ([]model.OrderLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, stock_item_id, name_snapshot, sku_snapshot,
		       quantity, unit_price, subtotal, created_at
		FROM order_lines
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var out []model.OrderLine
	for rows.Next() {
		var l model.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.StockItemID, &l.NameSnapshot, &l.SKUSnapshot,
			&l.Quantity, &l.UnitPrice, &l.Subtotal, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *postgresOrderRepository) ApplyTransitionTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, t model.Transition, trackingNumber *string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET order_status    = $2,
		    payment_status  = $3,
		    tracking_number = COALESCE($4, tracking_number),
		    shipped_at      = CASE WHEN $5 THEN NOW() ELSE shipped_at END,
		    delivered_at    = CASE WHEN $6 THEN NOW() ELSE delivered_at END,
		    updated_at      = NOW()
		WHERE id = $1`,
		orderID, t.OrderStatus, t.PaymentStatus, trackingNumber, t.MarkShipped, t.MarkDelivered)
	if err != nil {
		return database.TranslateError(err, "failed to apply order transition")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.KindNotFound, "order not found")
	}
	return nil
}

func (r *postgresOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.OrderSummary, error) {
	return r.listSummaries(ctx, `
		WHERE o.user_id = $1
		GROUP BY o.id
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
}

func (r *postgresOrderRepository) ListAdmin(ctx context.Context, orderStatus, paymentStatus string, limit, offset int) ([]model.OrderSummary, error) {
	return r.listSummaries(ctx, `
		WHERE ($1 = '' OR o.order_status = $1)
		  AND ($2 = '' OR o.payment_status = $2)
		GROUP BY o.id
		ORDER BY o.created_at DESC
		LIMIT $3 OFFSET $4`, orderStatus, paymentStatus, limit, offset)
}

func (r *postgresOrderRepository) listSummaries(ctx context.Context, clause string, args ...interface{}) ([]model.OrderSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.order_number, o.order_status, o.payment_status,
		       o.total_amount, o.currency, COUNT(l.id), o.created_at
		FROM orders o
		LEFT JOIN order_lines l ON l.order_id = o.id
		`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var out []model.OrderSummary
	for rows.Next() {
		var s model.OrderSummary
		if err := rows.Scan(&s.ID, &s.OrderNumber, &s.OrderStatus, &s.PaymentStatus,
			&s.TotalAmount, &s.Currency, &s.LineCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindAbandoned lists stale pending orders with no live holds left. An
// order still backed by an active reservation belongs to the expiry step,
// not here.
func (r *postgresOrderRepository) FindAbandoned(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM orders
		WHERE order_status = 'pending_payment'
		  AND payment_status = 'pending'
		  AND created_at < $1
		  AND NOT EXISTS (
		      SELECT 1 FROM reservations r
		      WHERE r.order_id = orders.id AND r.state = 'active'
		  )
		ORDER BY created_at ASC
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query abandoned orders: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// =====================================================
// SHIPPING METHODS
// =====================================================
type postgresShippingMethodRepository struct {
	pool *pgxpool.Pool
}

func NewShippingMethodRepository(pool *pgxpool.Pool) ShippingMethodRepository {
	return &postgresShippingMethodRepository{pool: pool}
}

func (r *postgresShippingMethodRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ShippingMethod, error) {
	var m model.ShippingMethod
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, cost, is_active, created_at
		FROM shipping_methods
		WHERE id = $1 AND is_active = TRUE`, id).
		Scan(&m.ID, &m.Name, &m.Description, &m.Cost, &m.IsActive, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "shipping method not found", err)
		}
		return nil, database.TranslateError(err, "failed to get shipping method")
	}
	return &m, nil
}

func (r *postgresShippingMethodRepository) ListActive(ctx context.Context) ([]model.ShippingMethod, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, cost, is_active, created_at
		FROM shipping_methods
		WHERE is_active = TRUE
		ORDER BY cost ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipping methods: %w", err)
	}
	defer rows.Close()

	var out []model.ShippingMethod
	for rows.Next() {
		var m model.ShippingMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Cost, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shipping method: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
