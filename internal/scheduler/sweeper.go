package scheduler

import (
	"context"
	"time"

	ordermodel "commerce-backend/internal/domains/order/model"
	orderrepo "commerce-backend/internal/domains/order/repository"
	orderservice "commerce-backend/internal/domains/order/service"
	payment "commerce-backend/internal/domains/payment/service"
	resmodel "commerce-backend/internal/domains/reservation/model"
	reservation "commerce-backend/internal/domains/reservation/service"
	"commerce-backend/internal/shared/apperrors"
	"commerce-backend/pkg/logger"
)

// Options tune one sweep pass.
type Options struct {
	BatchSize    int
	HardTimeout  time.Duration // pending orders older than this get cancelled
	ReconcileMax int           // cap on gateway polls per pass
	StatsRetain  time.Duration // how long sweep_runs rows are kept
	DryRun       bool
}

// Sweeper is the periodic janitor: it releases expired and orphaned
// holds, cancels abandoned orders and reconciles stuck payments. Every
// termination runs in its own transaction so one poisoned row cannot
// wedge the whole pass.
type Sweeper struct {
	reservations reservation.Store
	orders       orderrepo.OrderRepository
	lifecycle    orderservice.LifecycleService
	payments     payment.Service
	runs         RunRepository
}

func NewSweeper(
	reservations reservation.Store,
	orders orderrepo.OrderRepository,
	lifecycle orderservice.LifecycleService,
	payments payment.Service,
	runs RunRepository,
) *Sweeper {
	return &Sweeper{
		reservations: reservations,
		orders:       orders,
		lifecycle:    lifecycle,
		payments:     payments,
		runs:         runs,
	}
}

// Sweep runs one full pass and records it.
func (s *Sweeper) Sweep(ctx context.Context, opts Options) (*SweepRun, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}

	run := &SweepRun{StartedAt: time.Now(), DryRun: opts.DryRun}

	s.expireReservations(ctx, opts, run)
	s.releaseOrphans(ctx, opts, run)
	s.cancelAbandoned(ctx, opts, run)
	s.reconcilePayments(ctx, opts, run)

	run.FinishedAt = time.Now()

	if err := s.runs.Insert(ctx, run); err != nil {
		logger.Error("failed to record sweep run", err)
		run.Errors++
	}
	if opts.StatsRetain > 0 && !opts.DryRun {
		if _, err := s.runs.Prune(ctx, time.Now().Add(-opts.StatsRetain)); err != nil {
			logger.Error("failed to prune sweep runs", err)
		}
	}

	logger.Info("sweep finished", map[string]interface{}{
		"dry_run":              run.DryRun,
		"reservations_expired": run.ReservationsExpired,
		"orphans_released":     run.OrphansReleased,
		"orders_cancelled":     run.OrdersCancelled,
		"payments_reconciled":  run.PaymentsReconciled,
		"errors":               run.Errors,
		"duration_ms":          run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	})
	return run, nil
}

// expireReservations releases holds past their TTL. An expired hold on an
// order still awaiting payment cancels the whole order; holds whose order
// payment already failed or was cancelled are released individually.
func (s *Sweeper) expireReservations(ctx context.Context, opts Options, run *SweepRun) {
	rows, err := s.reservations.FindExpired(ctx, time.Now(), opts.BatchSize)
	if err != nil {
		logger.Error("failed to find expired reservations", err)
		run.Errors++
		return
	}

	cancelled := make(map[string]bool)
	for _, row := range rows {
		if opts.DryRun {
			run.ReservationsExpired++
			continue
		}

		if row.OrderStatus == ordermodel.OrderStatusPendingPayment {
			if cancelled[row.OrderID.String()] {
				continue
			}
			// Cancelling the order releases every hold it still has.
			_, err := s.lifecycle.ApplyEvent(ctx, row.OrderID, ordermodel.EventReservationExpired, nil)
			if err != nil {
				if apperrors.KindOf(err) == apperrors.KindStateGuard {
					// Payment landed between the query and the lock.
					continue
				}
				logger.Error("failed to cancel order with expired reservations", err)
				run.Errors++
				continue
			}
			cancelled[row.OrderID.String()] = true
			run.OrdersCancelled++
			run.ReservationsExpired++
			continue
		}

		result, err := s.reservations.Terminate(ctx, row.ReservationID, reservation.OutcomeReleased)
		if err != nil {
			logger.Error("failed to release expired reservation", err)
			run.Errors++
			continue
		}
		if !result.AlreadyDone {
			run.ReservationsExpired++
		}
	}
}

// releaseOrphans frees holds whose order already reached a terminal state
// without its reservations being settled.
func (s *Sweeper) releaseOrphans(ctx context.Context, opts Options, run *SweepRun) {
	rows, err := s.reservations.FindOrphans(ctx, opts.BatchSize)
	if err != nil {
		logger.Error("failed to find orphaned reservations", err)
		run.Errors++
		return
	}

	for _, row := range rows {
		if opts.DryRun {
			run.OrphansReleased++
			continue
		}

		outcome := reservation.OutcomeReleased
		if shouldFulfillOrphan(row) {
			outcome = reservation.OutcomeFulfilled
		}
		result, err := s.reservations.Terminate(ctx, row.ReservationID, outcome)
		if err != nil {
			logger.Error("failed to release orphaned reservation", err)
			run.Errors++
			continue
		}
		if !result.AlreadyDone {
			run.OrphansReleased++
		}
	}
}

// shouldFulfillOrphan decides the terminal disposition of an orphan. A
// refunded order was paid and shipped out of the warehouse, so its stock
// is gone and the hold converts to a fulfilment, not a release.
func shouldFulfillOrphan(row resmodel.ExpiredRow) bool {
	return row.OrderStatus == ordermodel.OrderStatusRefunded
}

// cancelAbandoned cancels orders that sat in pending_payment past the
// hard timeout with no active reservations left. Orders still holding
// stock are the expiry step's job.
func (s *Sweeper) cancelAbandoned(ctx context.Context, opts Options, run *SweepRun) {
	if opts.HardTimeout <= 0 {
		return
	}

	ids, err := s.orders.FindAbandoned(ctx, time.Now().Add(-opts.HardTimeout), opts.BatchSize)
	if err != nil {
		logger.Error("failed to find abandoned orders", err)
		run.Errors++
		return
	}

	for _, id := range ids {
		if opts.DryRun {
			run.OrdersCancelled++
			continue
		}

		_, err := s.lifecycle.ApplyEvent(ctx, id, ordermodel.EventReservationExpired, nil)
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindStateGuard {
				continue
			}
			logger.Error("failed to cancel abandoned order", err)
			run.Errors++
			continue
		}
		run.OrdersCancelled++
	}
}

// reconcilePayments polls the gateway about attempts stuck in pending.
func (s *Sweeper) reconcilePayments(ctx context.Context, opts Options, run *SweepRun) {
	if opts.ReconcileMax <= 0 || opts.DryRun {
		return
	}

	moved, err := s.payments.ReconcilePending(ctx, opts.HardTimeout, opts.ReconcileMax)
	if err != nil {
		logger.Error("failed to reconcile pending payments", err)
		run.Errors++
		return
	}
	run.PaymentsReconciled = moved
}
