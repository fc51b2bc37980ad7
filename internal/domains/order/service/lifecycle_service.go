package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"commerce-backend/internal/domains/order/model"
	"commerce-backend/internal/domains/order/repository"
	reservation "commerce-backend/internal/domains/reservation/service"
	"commerce-backend/internal/infrastructure/database"
	"commerce-backend/internal/shared/apperrors"
	"commerce-backend/pkg/logger"
)

type lifecycleService struct {
	pool         *pgxpool.Pool
	orderRepo    repository.OrderRepository
	reservations reservation.Store
}

func NewLifecycleService(pool *pgxpool.Pool, orderRepo repository.OrderRepository, reservations reservation.Store) LifecycleService {
	return &lifecycleService{pool: pool, orderRepo: orderRepo, reservations: reservations}
}

// ApplyEvent is the single write path of the order state machine. The
// order row is locked first, so concurrent events on one order serialize
// and the loser re-evaluates its guard against the new state.
func (s *lifecycleService) ApplyEvent(ctx context.Context, orderID uuid.UUID, event string, trackingNumber *string) (*model.Order, error) {
	var updated *model.Order
	err := database.WithinTx(ctx, s.pool, func(tx pgx.Tx) error {
		order, err := s.orderRepo.GetForUpdateTx(ctx, tx, orderID)
		if err != nil {
			return err
		}

		t, err := model.Apply(event, order.OrderStatus, order.PaymentStatus)
		if err != nil {
			return err
		}

		switch t.Reservations {
		case model.EffectFulfill:
			if _, err := s.reservations.TerminateOrderTx(ctx, tx, orderID, reservation.OutcomeFulfilled); err != nil {
				return err
			}
		case model.EffectRelease:
			if _, err := s.reservations.TerminateOrderTx(ctx, tx, orderID, reservation.OutcomeReleased); err != nil {
				return err
			}
		}

		if err := s.orderRepo.ApplyTransitionTx(ctx, tx, orderID, t, trackingNumber); err != nil {
			return err
		}

		order.OrderStatus = t.OrderStatus
		order.PaymentStatus = t.PaymentStatus
		if trackingNumber != nil {
			order.TrackingNumber = trackingNumber
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("order transitioned", map[string]interface{}{
		"order_id":       orderID.String(),
		"event":          event,
		"order_status":   updated.OrderStatus,
		"payment_status": updated.PaymentStatus,
	})
	return updated, nil
}

func (s *lifecycleService) CancelByUser(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(userID) {
		return nil, apperrors.New(apperrors.KindNotFound, "order not found")
	}
	return s.ApplyEvent(ctx, orderID, model.EventUserCancel, nil)
}

// BulkApply runs each order in its own transaction; one guarded-out order
// never blocks the rest of the batch.
func (s *lifecycleService) BulkApply(ctx context.Context, orderIDs []uuid.UUID, event string) []model.BulkOrderResult {
	results := make([]model.BulkOrderResult, 0, len(orderIDs))
	for _, id := range orderIDs {
		result := model.BulkOrderResult{OrderID: id, Applied: true}
		if _, err := s.ApplyEvent(ctx, id, event, nil); err != nil {
			result.Applied = false
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}
