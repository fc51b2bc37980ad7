package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"commerce-backend/internal/domains/reservation/model"
	"commerce-backend/internal/infrastructure/database"
	"commerce-backend/internal/shared/apperrors"
)

const reservationColumns = `
	id, order_id, stock_item_id, quantity, state, created_at, expires_at, terminal_at`

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(
		&res.ID,
		&res.OrderID,
		&res.StockItemID,
		&res.Quantity,
		&res.State,
		&res.CreatedAt,
		&res.ExpiresAt,
		&res.TerminalAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *postgresRepository) CreateTx(ctx context.Context, tx pgx.Tx, res *model.Reservation) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO reservations (id, order_id, stock_item_id, quantity, state, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		res.ID, res.OrderID, res.StockItemID, res.Quantity, res.State, res.CreatedAt, res.ExpiresAt)
	if err != nil {
		return database.TranslateError(err, "failed to insert reservation")
	}
	return nil
}

func (r *postgresRepository) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Reservation, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
		FOR UPDATE`, id)

	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "reservation not found", err)
		}
		return nil, database.TranslateError(err, "failed to lock reservation")
	}
	return res, nil
}

func (r *postgresRepository) MarkTerminalTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, state string, at time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE reservations
		SET state = $2, terminal_at = $3
		WHERE id = $1 AND state = 'active'`, id, state, at)
	if err != nil {
		return database.TranslateError(err, "failed to terminate reservation")
	}
	if tag.RowsAffected() == 0 {
		// Caller holds the row lock and checked the state, so this means a
		// caller bug, not a race.
		return apperrors.New(apperrors.KindStateGuard, "reservation is not active")
	}
	return nil
}

func (r *postgresRepository) ListActiveByOrderTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.Reservation, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE order_id = $1 AND state = 'active'
		ORDER BY stock_item_id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active reservations: %w", err)
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func (r *postgresRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.View, error) {
	return r.listViews(ctx, `
		WHERE r.order_id = $1
		ORDER BY r.created_at ASC`, orderID)
}

func (r *postgresRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.View, error) {
	return r.listViews(ctx, `
		JOIN orders o ON o.id = r.order_id AND o.user_id = $1
		WHERE r.state = 'active'
		ORDER BY r.expires_at ASC`, userID)
}

func (r *postgresRepository) listViews(ctx context.Context, clause string, arg interface{}) ([]model.View, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.order_id, r.stock_item_id, s.sku, s.name,
		       r.quantity, r.state, r.expires_at, r.terminal_at
		FROM reservations r
		JOIN stock_items s ON s.id = r.stock_item_id
		`+clause, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var out []model.View
	for rows.Next() {
		var v model.View
		if err := rows.Scan(&v.ID, &v.OrderID, &v.StockItemID, &v.SKU, &v.ItemName,
			&v.Quantity, &v.State, &v.ExpiresAt, &v.TerminalAt); err != nil {
			return nil, fmt.Errorf("failed to scan reservation view: %w", err)
		}
		res := model.Reservation{State: v.State, ExpiresAt: v.ExpiresAt}
		v.MinutesRemaining = res.MinutesRemaining(now)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *postgresRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.ExpiredRow, error) {
	return r.findRows(ctx, `
		SELECT r.id, r.order_id, r.stock_item_id, r.quantity, r.expires_at,
		       o.payment_status, o.order_status
		FROM reservations r
		JOIN orders o ON o.id = r.order_id
		WHERE r.state = 'active'
		  AND r.expires_at < $1
		  AND o.payment_status IN ('pending', 'failed', 'cancelled')
		ORDER BY r.expires_at ASC
		LIMIT $2`, now, limit)
}

func (r *postgresRepository) FindOrphans(ctx context.Context, limit int) ([]model.ExpiredRow, error) {
	return r.findRows(ctx, `
		SELECT r.id, r.order_id, r.stock_item_id, r.quantity, r.expires_at,
		       o.payment_status, o.order_status
		FROM reservations r
		JOIN orders o ON o.id = r.order_id
		WHERE r.state = 'active'
		  AND o.order_status IN ('cancelled', 'refunded', 'failed')
		ORDER BY r.expires_at ASC
		LIMIT $1`, limit)
}

func (r *postgresRepository) findRows(ctx context.Context, query string, args ...interface{}) ([]model.ExpiredRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations for sweep: %w", err)
	}
	defer rows.Close()

	var out []model.ExpiredRow
	for rows.Next() {
		var row model.ExpiredRow
		if err := rows.Scan(&row.ReservationID, &row.OrderID, &row.StockItemID,
			&row.Quantity, &row.ExpiresAt, &row.PaymentStatus, &row.OrderStatus); err != nil {
			return nil, fmt.Errorf("failed to scan sweep row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
