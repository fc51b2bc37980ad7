package service

import (
	"context"
	"fmt"

	"commerce-backend/internal/domains/inventory/model"
	"commerce-backend/internal/domains/inventory/repository"
	"commerce-backend/internal/shared/apperrors"
	"commerce-backend/pkg/logger"
)

// Service exposes the read models and the admin adjustment path of the
// ledger. Reservation-driven mutation goes through the reservation store,
// never through here.
type Service interface {
	CheckAvailability(ctx context.Context, req model.CheckAvailabilityRequest) ([]model.CheckAvailabilityResult, error)
	ListLowStock(ctx context.Context, limit int) ([]model.LowStockItem, error)
	Dashboard(ctx context.Context) (*model.Dashboard, error)
	BulkAdjust(ctx context.Context, req model.BulkAdjustRequest) ([]model.AdjustResult, error)
}

type inventoryService struct {
	ledger repository.Ledger
}

func NewService(ledger repository.Ledger) Service {
	return &inventoryService{ledger: ledger}
}

func (s *inventoryService) CheckAvailability(ctx context.Context, req model.CheckAvailabilityRequest) ([]model.CheckAvailabilityResult, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid availability request", err)
	}
	return s.ledger.CheckAvailability(ctx, req.Items)
}

func (s *inventoryService) ListLowStock(ctx context.Context, limit int) ([]model.LowStockItem, error) {
	return s.ledger.ListLowStock(ctx, limit)
}

func (s *inventoryService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	return s.ledger.Dashboard(ctx)
}

// BulkAdjust applies admin deltas one item at a time. Adjust can leave the
// reserved count out of sync with active reservations, so every applied
// delta is followed by a reconciliation pass on that item. Partial success
// is reported per item rather than aborting the whole batch.
func (s *inventoryService) BulkAdjust(ctx context.Context, req model.BulkAdjustRequest) ([]model.AdjustResult, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid adjustment request", err)
	}

	results := make([]model.AdjustResult, 0, len(req.Adjustments))
	for _, adj := range req.Adjustments {
		item, err := s.ledger.Adjust(ctx, adj.StockItemID, adj.Delta)
		if err != nil {
			logger.Error(fmt.Sprintf("stock adjustment failed for %s", adj.StockItemID), err)
			results = append(results, model.AdjustResult{
				StockItemID: adj.StockItemID,
				Applied:     false,
				Error:       err.Error(),
			})
			continue
		}

		if err := s.ledger.ReconcileReserved(ctx, adj.StockItemID); err != nil {
			logger.Error(fmt.Sprintf("reserved reconciliation failed for %s", adj.StockItemID), err)
		}

		results = append(results, model.AdjustResult{
			StockItemID: item.ID,
			OnHand:      item.OnHand,
			Reserved:    item.Reserved,
			Applied:     true,
		})
	}
	return results, nil
}
