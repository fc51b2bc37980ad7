package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"commerce-backend/internal/domains/reservation/model"
)

// Repository persists reservation rows. Ledger arithmetic lives in the
// inventory repository; this one only records the holds themselves.
type Repository interface {
	CreateTx(ctx context.Context, tx pgx.Tx, res *model.Reservation) error

	// GetForUpdateTx re-reads a reservation under an exclusive lock. The
	// terminate path depends on this lock to serialize duplicate webhooks.
	GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Reservation, error)

	// MarkTerminalTx flips an ACTIVE reservation to its terminal state.
	MarkTerminalTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, state string, at time.Time) error

	ListActiveByOrderTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.Reservation, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.View, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.View, error)

	// FindExpired returns active reservations past their expiry whose order
	// payment status permits releasing, oldest first, capped at limit.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]model.ExpiredRow, error)

	// FindOrphans returns active reservations whose order has already
	// reached a terminal state without the reconciler acting.
	FindOrphans(ctx context.Context, limit int) ([]model.ExpiredRow, error)
}
