package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ordermodel "commerce-backend/internal/domains/order/model"
	paymodel "commerce-backend/internal/domains/payment/model"
	resmodel "commerce-backend/internal/domains/reservation/model"
	reservation "commerce-backend/internal/domains/reservation/service"
	"commerce-backend/internal/shared/apperrors"
)

// =====================================================
// FAKES
// =====================================================

type fakeStore struct {
	expired     []resmodel.ExpiredRow
	orphans     []resmodel.ExpiredRow
	terminated  map[uuid.UUID]reservation.Outcome
	alreadyDone map[uuid.UUID]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		terminated:  make(map[uuid.UUID]reservation.Outcome),
		alreadyDone: make(map[uuid.UUID]bool),
	}
}

func (f *fakeStore) FindExpired(ctx context.Context, now time.Time, limit int) ([]resmodel.ExpiredRow, error) {
	return f.expired, nil
}

func (f *fakeStore) FindOrphans(ctx context.Context, limit int) ([]resmodel.ExpiredRow, error) {
	return f.orphans, nil
}

func (f *fakeStore) Terminate(ctx context.Context, id uuid.UUID, outcome reservation.Outcome) (*reservation.TerminateResult, error) {
	if f.alreadyDone[id] {
		return &reservation.TerminateResult{ReservationID: id, AlreadyDone: true}, nil
	}
	f.terminated[id] = outcome
	return &reservation.TerminateResult{ReservationID: id, Outcome: string(outcome)}, nil
}

func (f *fakeStore) ReserveBatchTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, lines []resmodel.Line) ([]resmodel.Reservation, error) {
	panic("not used by the sweeper")
}
func (f *fakeStore) TerminateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, outcome reservation.Outcome) (*reservation.TerminateResult, error) {
	return f.Terminate(ctx, id, outcome)
}
func (f *fakeStore) TerminateOrderTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, outcome reservation.Outcome) (int, error) {
	return 0, nil
}
func (f *fakeStore) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]resmodel.View, error) {
	return nil, nil
}
func (f *fakeStore) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]resmodel.View, error) {
	return nil, nil
}

type fakeOrders struct {
	abandoned []uuid.UUID
}

func (f *fakeOrders) FindAbandoned(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	return f.abandoned, nil
}
func (f *fakeOrders) CreateTx(ctx context.Context, tx pgx.Tx, o *ordermodel.Order, lines []ordermodel.OrderLine) error {
	return nil
}
func (f *fakeOrders) GetByID(ctx context.Context, id uuid.UUID) (*ordermodel.Order, error) {
	return nil, apperrors.New(apperrors.KindNotFound, "order not found")
}
func (f *fakeOrders) GetByOrderNumber(ctx context.Context, n string) (*ordermodel.Order, error) {
	return nil, apperrors.New(apperrors.KindNotFound, "order not found")
}
func (f *fakeOrders) GetLines(ctx context.Context, orderID uuid.UUID) ([]ordermodel.OrderLine, error) {
	return nil, nil
}
func (f *fakeOrders) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*ordermodel.Order, error) {
	return nil, apperrors.New(apperrors.KindNotFound, "order not found")
}
func (f *fakeOrders) ApplyTransitionTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, t ordermodel.Transition, tracking *string) error {
	return nil
}
func (f *fakeOrders) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]ordermodel.OrderSummary, error) {
	return nil, nil
}
func (f *fakeOrders) ListAdmin(ctx context.Context, os, ps string, limit, offset int) ([]ordermodel.OrderSummary, error) {
	return nil, nil
}

type fakeLifecycle struct {
	events  map[uuid.UUID][]string
	guarded map[uuid.UUID]bool // orders whose guard rejects further events
}

func newFakeLifecycle() *fakeLifecycle {
	return &fakeLifecycle{
		events:  make(map[uuid.UUID][]string),
		guarded: make(map[uuid.UUID]bool),
	}
}

func (f *fakeLifecycle) ApplyEvent(ctx context.Context, orderID uuid.UUID, event string, tracking *string) (*ordermodel.Order, error) {
	if f.guarded[orderID] {
		return nil, apperrors.New(apperrors.KindStateGuard, "order already decided")
	}
	f.events[orderID] = append(f.events[orderID], event)
	return &ordermodel.Order{ID: orderID, OrderStatus: ordermodel.OrderStatusCancelled}, nil
}

func (f *fakeLifecycle) CancelByUser(ctx context.Context, userID, orderID uuid.UUID) (*ordermodel.Order, error) {
	return nil, nil
}

func (f *fakeLifecycle) BulkApply(ctx context.Context, ids []uuid.UUID, event string) []ordermodel.BulkOrderResult {
	return nil
}

type fakeReconciler struct {
	moved int
	calls int
}

func (f *fakeReconciler) ReconcilePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	f.calls++
	return f.moved, nil
}

func (f *fakeReconciler) InitiatePayment(ctx context.Context, orderID uuid.UUID) (*paymodel.InitiateResult, error) {
	panic("not used by the sweeper")
}
func (f *fakeReconciler) HandleWebhook(ctx context.Context, n paymodel.WebhookNotification) (*paymodel.OutcomeResult, error) {
	panic("not used by the sweeper")
}
func (f *fakeReconciler) HandleReturn(ctx context.Context, token string) (string, error) {
	panic("not used by the sweeper")
}
func (f *fakeReconciler) CheckStatus(ctx context.Context, token string) (*paymodel.StatusResult, error) {
	panic("not used by the sweeper")
}

type fakeRuns struct {
	inserted []SweepRun
	pruned   int
}

func (f *fakeRuns) Insert(ctx context.Context, run *SweepRun) error {
	f.inserted = append(f.inserted, *run)
	return nil
}

func (f *fakeRuns) Prune(ctx context.Context, before time.Time) (int64, error) {
	f.pruned++
	return 0, nil
}

func expiredRow(orderID uuid.UUID, orderStatus string) resmodel.ExpiredRow {
	return resmodel.ExpiredRow{
		ReservationID: uuid.New(),
		OrderID:       orderID,
		StockItemID:   uuid.New(),
		Quantity:      1,
		ExpiresAt:     time.Now().Add(-time.Minute),
		OrderStatus:   orderStatus,
	}
}

// =====================================================
// TESTS
// =====================================================

func TestSweep_ExpiredHoldCancelsPendingOrderOnce(t *testing.T) {
	store := newFakeStore()
	life := newFakeLifecycle()
	runs := &fakeRuns{}

	// Two expired holds on the same unpaid order.
	orderID := uuid.New()
	store.expired = []resmodel.ExpiredRow{
		expiredRow(orderID, ordermodel.OrderStatusPendingPayment),
		expiredRow(orderID, ordermodel.OrderStatusPendingPayment),
	}

	sweeper := NewSweeper(store, &fakeOrders{}, life, &fakeReconciler{}, runs)
	run, err := sweeper.Sweep(context.Background(), Options{})
	require.NoError(t, err)

	// One cancellation event covers both holds; the order transition
	// releases them, not per-row terminates.
	assert.Equal(t, []string{ordermodel.EventReservationExpired}, life.events[orderID])
	assert.Equal(t, 1, run.OrdersCancelled)
	assert.Empty(t, store.terminated)
	assert.Zero(t, run.Errors)
}

func TestSweep_ExpiredHoldOnDecidedOrderIsReleasedDirectly(t *testing.T) {
	store := newFakeStore()
	life := newFakeLifecycle()

	row := expiredRow(uuid.New(), ordermodel.OrderStatusFailed)
	store.expired = []resmodel.ExpiredRow{row}

	sweeper := NewSweeper(store, &fakeOrders{}, life, &fakeReconciler{}, &fakeRuns{})
	run, err := sweeper.Sweep(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, reservation.OutcomeReleased, store.terminated[row.ReservationID])
	assert.Equal(t, 1, run.ReservationsExpired)
	assert.Empty(t, life.events)
}

func TestSweep_RaceWithPaymentIsSkippedQuietly(t *testing.T) {
	store := newFakeStore()
	life := newFakeLifecycle()

	orderID := uuid.New()
	store.expired = []resmodel.ExpiredRow{expiredRow(orderID, ordermodel.OrderStatusPendingPayment)}
	life.guarded[orderID] = true // payment landed between query and lock

	sweeper := NewSweeper(store, &fakeOrders{}, life, &fakeReconciler{}, &fakeRuns{})
	run, err := sweeper.Sweep(context.Background(), Options{})
	require.NoError(t, err)

	assert.Zero(t, run.OrdersCancelled)
	assert.Zero(t, run.Errors, "a guard rejection is a race, not a failure")
}

func TestSweep_OrphanDisposition(t *testing.T) {
	store := newFakeStore()

	released := expiredRow(uuid.New(), ordermodel.OrderStatusCancelled)
	fulfilled := expiredRow(uuid.New(), ordermodel.OrderStatusRefunded)
	store.orphans = []resmodel.ExpiredRow{released, fulfilled}

	sweeper := NewSweeper(store, &fakeOrders{}, newFakeLifecycle(), &fakeReconciler{}, &fakeRuns{})
	run, err := sweeper.Sweep(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, reservation.OutcomeReleased, store.terminated[released.ReservationID])
	// Refunded stock already left the warehouse; the hold converts.
	assert.Equal(t, reservation.OutcomeFulfilled, store.terminated[fulfilled.ReservationID])
	assert.Equal(t, 2, run.OrphansReleased)
}

func TestSweep_AlreadySettledOrphanNotCounted(t *testing.T) {
	store := newFakeStore()
	row := expiredRow(uuid.New(), ordermodel.OrderStatusCancelled)
	store.orphans = []resmodel.ExpiredRow{row}
	store.alreadyDone[row.ReservationID] = true

	sweeper := NewSweeper(store, &fakeOrders{}, newFakeLifecycle(), &fakeReconciler{}, &fakeRuns{})
	run, err := sweeper.Sweep(context.Background(), Options{})
	require.NoError(t, err)
	assert.Zero(t, run.OrphansReleased)
}

func TestSweep_CancelsAbandonedOrders(t *testing.T) {
	life := newFakeLifecycle()
	stale := uuid.New()
	orders := &fakeOrders{abandoned: []uuid.UUID{stale}}

	sweeper := NewSweeper(newFakeStore(), orders, life, &fakeReconciler{}, &fakeRuns{})
	run, err := sweeper.Sweep(context.Background(), Options{HardTimeout: time.Hour})
	require.NoError(t, err)

	assert.Equal(t, []string{ordermodel.EventReservationExpired}, life.events[stale])
	assert.Equal(t, 1, run.OrdersCancelled)
}

func TestSweep_ReconcilesPayments(t *testing.T) {
	reconciler := &fakeReconciler{moved: 3}

	sweeper := NewSweeper(newFakeStore(), &fakeOrders{}, newFakeLifecycle(), reconciler, &fakeRuns{})
	run, err := sweeper.Sweep(context.Background(), Options{HardTimeout: time.Hour, ReconcileMax: 10})
	require.NoError(t, err)

	assert.Equal(t, 1, reconciler.calls)
	assert.Equal(t, 3, run.PaymentsReconciled)
}

func TestSweep_DryRunCountsWithoutMutating(t *testing.T) {
	store := newFakeStore()
	life := newFakeLifecycle()

	store.expired = []resmodel.ExpiredRow{expiredRow(uuid.New(), ordermodel.OrderStatusPendingPayment)}
	store.orphans = []resmodel.ExpiredRow{expiredRow(uuid.New(), ordermodel.OrderStatusCancelled)}
	orders := &fakeOrders{abandoned: []uuid.UUID{uuid.New()}}
	reconciler := &fakeReconciler{moved: 5}
	runs := &fakeRuns{}

	sweeper := NewSweeper(store, orders, life, reconciler, runs)
	run, err := sweeper.Sweep(context.Background(), Options{
		HardTimeout:  time.Hour,
		ReconcileMax: 10,
		StatsRetain:  24 * time.Hour,
		DryRun:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, run.ReservationsExpired)
	assert.Equal(t, 1, run.OrphansReleased)
	assert.Equal(t, 1, run.OrdersCancelled)
	assert.Zero(t, run.PaymentsReconciled)

	assert.Empty(t, store.terminated)
	assert.Empty(t, life.events)
	assert.Zero(t, reconciler.calls)
	assert.Zero(t, runs.pruned, "dry runs never prune history")
	require.Len(t, runs.inserted, 1)
	assert.True(t, runs.inserted[0].DryRun)
}

func TestSweep_RecordsAndPrunesHistory(t *testing.T) {
	runs := &fakeRuns{}

	sweeper := NewSweeper(newFakeStore(), &fakeOrders{}, newFakeLifecycle(), &fakeReconciler{}, runs)
	_, err := sweeper.Sweep(context.Background(), Options{StatsRetain: 24 * time.Hour})
	require.NoError(t, err)

	require.Len(t, runs.inserted, 1)
	assert.Equal(t, 1, runs.pruned)
	assert.False(t, runs.inserted[0].FinishedAt.Before(runs.inserted[0].StartedAt))
}
