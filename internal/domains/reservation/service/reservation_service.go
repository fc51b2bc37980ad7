package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	invrepo "commerce-backend/internal/domains/inventory/repository"
	"commerce-backend/internal/domains/reservation/model"
	"commerce-backend/internal/domains/reservation/repository"
	"commerce-backend/internal/infrastructure/database"
	"commerce-backend/internal/shared/apperrors"
	"commerce-backend/pkg/logger"
)

// Outcome is a terminal reservation disposition.
type Outcome string

const (
	OutcomeFulfilled Outcome = model.StateFulfilled
	OutcomeReleased  Outcome = model.StateReleased
)

// TerminateResult reports what a terminate call actually did.
type TerminateResult struct {
	ReservationID uuid.UUID
	Outcome       string
	AlreadyDone   bool // the reservation was terminal before this call
}

// Store is the reservation store: the single composer of ledger mutation
// and reservation rows. Terminate is the sole correctness guarantee
// against duplicate webhook delivery, so everything funnels through it.
type Store interface {
	// ReserveBatchTx reserves every line inside the caller's transaction,
	// all-or-nothing. Failure is a typed InsufficientStock error listing
	// every deficit; the caller's rollback undoes any partial ledger work.
	ReserveBatchTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, lines []model.Line) ([]model.Reservation, error)

	// Terminate settles one reservation in its own transaction.
	Terminate(ctx context.Context, reservationID uuid.UUID, outcome Outcome) (*TerminateResult, error)

	// TerminateTx is Terminate composed into a caller-owned transaction.
	TerminateTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID, outcome Outcome) (*TerminateResult, error)

	// TerminateOrderTx settles every active reservation of an order.
	TerminateOrderTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, outcome Outcome) (int, error)

	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.View, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.View, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]model.ExpiredRow, error)
	FindOrphans(ctx context.Context, limit int) ([]model.ExpiredRow, error)
}

type reservationStore struct {
	pool   *pgxpool.Pool
	repo   repository.Repository
	ledger invrepo.Ledger
	ttl    time.Duration
}

func NewStore(pool *pgxpool.Pool, repo repository.Repository, ledger invrepo.Ledger, ttl time.Duration) Store {
	return &reservationStore{pool: pool, repo: repo, ledger: ledger, ttl: ttl}
}

func (s *reservationStore) ReserveBatchTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, lines []model.Line) ([]model.Reservation, error) {
	if len(lines) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "reservation batch is empty")
	}

	// Stable lock order: ascending stock item id, so two concurrent
	// checkouts over the same items cannot deadlock each other.
	sorted := make([]model.Line, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StockItemID.String() < sorted[j].StockItemID.String()
	})

	now := time.Now()
	expiresAt := now.Add(s.ttl)

	var deficits []apperrors.StockDeficit
	var created []model.Reservation

	for _, line := range sorted {
		item, available, err := s.ledger.TryReserveTx(ctx, tx, line.StockItemID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if item == nil {
			deficits = append(deficits, apperrors.StockDeficit{
				Line:      line.LineIndex,
				SKU:       line.SKU,
				Requested: line.Quantity,
				Available: available,
			})
			continue
		}

		res := model.Reservation{
			ID:          uuid.New(),
			OrderID:     orderID,
			StockItemID: line.StockItemID,
			Quantity:    line.Quantity,
			State:       model.StateActive,
			CreatedAt:   now,
			ExpiresAt:   expiresAt,
		}
		if err := s.repo.CreateTx(ctx, tx, &res); err != nil {
			return nil, err
		}
		created = append(created, res)
	}

	if len(deficits) > 0 {
		// The caller aborts the transaction; no ledger mutation persists.
		return nil, apperrors.InsufficientStock(deficits)
	}
	return created, nil
}

func (s *reservationStore) Terminate(ctx context.Context, reservationID uuid.UUID, outcome Outcome) (*TerminateResult, error) {
	var result *TerminateResult
	err := database.WithinTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		result, err = s.TerminateTx(ctx, tx, reservationID, outcome)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *reservationStore) TerminateTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID, outcome Outcome) (*TerminateResult, error) {
	res, err := s.repo.GetForUpdateTx(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}

	// Idempotence: a terminal reservation reports its prior outcome and
	// mutates nothing. Duplicate webhooks land here.
	if !res.IsActive() {
		return &TerminateResult{
			ReservationID: res.ID,
			Outcome:       res.State,
			AlreadyDone:   true,
		}, nil
	}

	switch outcome {
	case OutcomeFulfilled:
		err = s.ledger.FulfillTx(ctx, tx, res.StockItemID, res.Quantity)
	case OutcomeReleased:
		err = s.ledger.ReleaseTx(ctx, tx, res.StockItemID, res.Quantity)
	default:
		return nil, fmt.Errorf("unknown reservation outcome %q", outcome)
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkTerminalTx(ctx, tx, res.ID, string(outcome), time.Now()); err != nil {
		return nil, err
	}

	return &TerminateResult{
		ReservationID: res.ID,
		Outcome:       string(outcome),
	}, nil
}

func (s *reservationStore) TerminateOrderTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, outcome Outcome) (int, error) {
	active, err := s.repo.ListActiveByOrderTx(ctx, tx, orderID)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, res := range active {
		result, err := s.TerminateTx(ctx, tx, res.ID, outcome)
		if err != nil {
			return settled, err
		}
		if !result.AlreadyDone {
			settled++
		}
	}

	if settled > 0 {
		logger.Info("order reservations settled", map[string]interface{}{
			"order_id": orderID.String(),
			"outcome":  string(outcome),
			"count":    settled,
		})
	}
	return settled, nil
}

func (s *reservationStore) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.View, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

func (s *reservationStore) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.View, error) {
	return s.repo.ListActiveByUser(ctx, userID)
}

func (s *reservationStore) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.ExpiredRow, error) {
	return s.repo.FindExpired(ctx, now, limit)
}

func (s *reservationStore) FindOrphans(ctx context.Context, limit int) ([]model.ExpiredRow, error) {
	return s.repo.FindOrphans(ctx, limit)
}
