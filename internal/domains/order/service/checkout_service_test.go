package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartmodel "commerce-backend/internal/domains/cart/model"
	invmodel "commerce-backend/internal/domains/inventory/model"
	"commerce-backend/internal/domains/order/model"
	resmodel "commerce-backend/internal/domains/reservation/model"
	reservation "commerce-backend/internal/domains/reservation/service"
	"commerce-backend/internal/infrastructure/queue"
	"commerce-backend/internal/shared/apperrors"
)

// =====================================================
// FAKES
// =====================================================

// callLog records the order of persistence calls inside the checkout
// transaction.
type callLog struct {
	calls []string
}

type fakeOrderStore struct {
	log     *callLog
	created *model.Order
	lines   []model.OrderLine
}

func (f *fakeOrderStore) CreateTx(ctx context.Context, tx pgx.Tx, order *model.Order, lines []model.OrderLine) error {
	f.log.calls = append(f.log.calls, "order.create")
	f.created = order
	f.lines = lines
	return nil
}

func (f *fakeOrderStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	if f.created != nil && f.created.ID == id {
		copied := *f.created
		return &copied, nil
	}
	return nil, apperrors.New(apperrors.KindNotFound, "order not found")
}

func (f *fakeOrderStore) GetByOrderNumber(ctx context.Context, n string) (*model.Order, error) {
	return nil, apperrors.New(apperrors.KindNotFound, "order not found")
}
func (f *fakeOrderStore) GetLines(ctx context.Context, orderID uuid.UUID) ([]model.OrderLine, error) {
	return f.lines, nil
}
func (f *fakeOrderStore) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	return f.GetByID(ctx, id)
}
func (f *fakeOrderStore) ApplyTransitionTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, t model.Transition, tracking *string) error {
	return nil
}
func (f *fakeOrderStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.OrderSummary, error) {
	return nil, nil
}
func (f *fakeOrderStore) ListAdmin(ctx context.Context, os, ps string, limit, offset int) ([]model.OrderSummary, error) {
	return nil, nil
}
func (f *fakeOrderStore) FindAbandoned(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	return nil, nil
}

type fakeReservations struct {
	log      *callLog
	orderIDs []uuid.UUID
	lines    []resmodel.Line
	fail     error
}

func (f *fakeReservations) ReserveBatchTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, lines []resmodel.Line) ([]resmodel.Reservation, error) {
	f.log.calls = append(f.log.calls, "reserve.batch")
	if f.fail != nil {
		return nil, f.fail
	}
	f.orderIDs = append(f.orderIDs, orderID)
	f.lines = append(f.lines, lines...)
	return nil, nil
}

func (f *fakeReservations) Terminate(ctx context.Context, id uuid.UUID, outcome reservation.Outcome) (*reservation.TerminateResult, error) {
	panic("not used by checkout")
}
func (f *fakeReservations) TerminateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, outcome reservation.Outcome) (*reservation.TerminateResult, error) {
	panic("not used by checkout")
}
func (f *fakeReservations) TerminateOrderTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, outcome reservation.Outcome) (int, error) {
	panic("not used by checkout")
}
func (f *fakeReservations) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]resmodel.View, error) {
	panic("not used by checkout")
}
func (f *fakeReservations) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]resmodel.View, error) {
	panic("not used by checkout")
}
func (f *fakeReservations) FindExpired(ctx context.Context, now time.Time, limit int) ([]resmodel.ExpiredRow, error) {
	panic("not used by checkout")
}
func (f *fakeReservations) FindOrphans(ctx context.Context, limit int) ([]resmodel.ExpiredRow, error) {
	panic("not used by checkout")
}

type fakeCartStore struct {
	log     *callLog
	cart    cartmodel.Cart
	items   []cartmodel.CartItem
	cleared bool
}

func (f *fakeCartStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*cartmodel.Cart, error) {
	copied := f.cart
	return &copied, nil
}
func (f *fakeCartStore) GetOrCreate(ctx context.Context, userID uuid.UUID) (*cartmodel.Cart, error) {
	return f.GetByUserID(ctx, userID)
}
func (f *fakeCartStore) GetItemsByCartID(ctx context.Context, cartID uuid.UUID) ([]cartmodel.CartItem, error) {
	return f.items, nil
}
func (f *fakeCartStore) UpsertItem(ctx context.Context, cartID, stockItemID uuid.UUID, quantity int) error {
	return nil
}
func (f *fakeCartStore) RemoveItem(ctx context.Context, cartID, stockItemID uuid.UUID) error {
	return nil
}
func (f *fakeCartStore) ClearTx(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	f.log.calls = append(f.log.calls, "cart.clear")
	f.cleared = true
	return nil
}

type fakeShippingStore struct {
	methods map[uuid.UUID]*model.ShippingMethod
	lookups int
}

func (f *fakeShippingStore) GetByID(ctx context.Context, id uuid.UUID) (*model.ShippingMethod, error) {
	f.lookups++
	m, ok := f.methods[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "shipping method not found")
	}
	copied := *m
	return &copied, nil
}
func (f *fakeShippingStore) ListActive(ctx context.Context) ([]model.ShippingMethod, error) {
	return nil, nil
}

type fakeLedger struct {
	bySKU map[string]*invmodel.StockItem
}

func (f *fakeLedger) ResolveForProduct(ctx context.Context, sku string) (*invmodel.StockItem, error) {
	item, ok := f.bySKU[sku]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "no sellable stock item")
	}
	copied := *item
	return &copied, nil
}

func (f *fakeLedger) TryReserveTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty int) (*invmodel.StockItem, int, error) {
	panic("not used by checkout")
}
func (f *fakeLedger) ReleaseTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty int) error {
	panic("not used by checkout")
}
func (f *fakeLedger) FulfillTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, qty int) error {
	panic("not used by checkout")
}
func (f *fakeLedger) Adjust(ctx context.Context, itemID uuid.UUID, delta int) (*invmodel.StockItem, error) {
	panic("not used by checkout")
}
func (f *fakeLedger) ReconcileReserved(ctx context.Context, itemID uuid.UUID) error {
	panic("not used by checkout")
}
func (f *fakeLedger) GetByID(ctx context.Context, itemID uuid.UUID) (*invmodel.StockItem, error) {
	panic("not used by checkout")
}
func (f *fakeLedger) ListLowStock(ctx context.Context, limit int) ([]invmodel.LowStockItem, error) {
	panic("not used by checkout")
}
func (f *fakeLedger) Dashboard(ctx context.Context) (*invmodel.Dashboard, error) {
	panic("not used by checkout")
}
func (f *fakeLedger) CheckAvailability(ctx context.Context, items []invmodel.CheckAvailabilityItem) ([]invmodel.CheckAvailabilityResult, error) {
	panic("not used by checkout")
}

type fakeProducer struct {
	payloads []queue.OrderConfirmationPayload
}

func (f *fakeProducer) EnqueueOrderConfirmation(payload queue.OrderConfirmationPayload) error {
	f.payloads = append(f.payloads, payload)
	return nil
}

// =====================================================
// FIXTURE
// =====================================================

type checkoutFixture struct {
	svc      *checkoutService
	log      *callLog
	orders   *fakeOrderStore
	res      *fakeReservations
	carts    *fakeCartStore
	shipping *fakeShippingStore
	ledger   *fakeLedger
	producer *fakeProducer
	userID   uuid.UUID
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	log := &callLog{}
	userID := uuid.New()
	itemID := uuid.New()

	carts := &fakeCartStore{
		log:  log,
		cart: cartmodel.Cart{ID: uuid.New(), UserID: userID},
		items: []cartmodel.CartItem{{
			StockItemID: itemID,
			ItemName:    "Field Jacket",
			SKU:         "JKT-001",
			UnitPrice:   decimal.RequireFromString("120.00"),
			Quantity:    2,
		}},
	}

	orders := &fakeOrderStore{log: log}
	res := &fakeReservations{log: log}
	shipping := &fakeShippingStore{methods: make(map[uuid.UUID]*model.ShippingMethod)}
	ledger := &fakeLedger{bySKU: map[string]*invmodel.StockItem{
		"JKT-001": {
			ID:        itemID,
			Kind:      invmodel.KindVariant,
			SKU:       "JKT-001",
			Name:      "Field Jacket",
			UnitPrice: decimal.RequireFromString("120.00"),
			OnHand:    10,
			IsActive:  true,
		},
	}}
	producer := &fakeProducer{}

	svc := &checkoutService{
		runTx: func(ctx context.Context, fn func(pgx.Tx) error) error {
			return fn(nil)
		},
		orderRepo:    orders,
		shippingRepo: shipping,
		cartRepo:     carts,
		ledger:       ledger,
		reservations: res,
		producer:     producer,
		currency:     "EUR",
	}

	return &checkoutFixture{
		svc: svc, log: log, orders: orders, res: res, carts: carts,
		shipping: shipping, ledger: ledger, producer: producer, userID: userID,
	}
}

func testAddress() model.Address {
	return model.Address{
		FirstName:  "Maja",
		LastName:   "Nowak",
		Street:     "Main St 1",
		City:       "Warsaw",
		PostalCode: "00-001",
		Country:    "PL",
	}
}

// =====================================================
// TESTS
// =====================================================

func TestCreateOrder_WritesOrderBeforeReserving(t *testing.T) {
	fx := newCheckoutFixture(t)

	resp, err := fx.svc.CreateOrder(context.Background(), fx.userID, model.CreateOrderRequest{
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	// Reservations reference the order row; it must exist first, and the
	// cart may only empty once the holds are in.
	assert.Equal(t, []string{"order.create", "reserve.batch", "cart.clear"}, fx.log.calls)

	require.Len(t, fx.res.orderIDs, 1)
	assert.Equal(t, resp.Order.ID, fx.res.orderIDs[0])
	require.Len(t, fx.res.lines, 1)
	assert.Equal(t, 2, fx.res.lines[0].Quantity)

	assert.Equal(t, "240.00", resp.Order.TotalAmount.StringFixed(2))
	assert.Equal(t, "EUR", resp.Order.Currency)
	assert.Equal(t, model.OrderStatusPendingPayment, resp.Order.OrderStatus)
	assert.Equal(t, model.PaymentStatusPending, resp.Order.PaymentStatus)
}

func TestCreateOrder_InsufficientStockLeavesCartIntact(t *testing.T) {
	fx := newCheckoutFixture(t)
	fx.res.fail = apperrors.InsufficientStock([]apperrors.StockDeficit{
		{Line: 0, SKU: "JKT-001", Requested: 2, Available: 1},
	})

	_, err := fx.svc.CreateOrder(context.Background(), fx.userID, model.CreateOrderRequest{
		ShippingAddress: testAddress(),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInsufficientStock, apperrors.KindOf(err))

	assert.False(t, fx.carts.cleared, "a failed checkout must not empty the cart")
	assert.Empty(t, fx.producer.payloads, "no confirmation for an order that rolled back")
}

func TestCreateOrder_ShippingMethodByID(t *testing.T) {
	fx := newCheckoutFixture(t)
	methodID := uuid.New()
	fx.shipping.methods[methodID] = &model.ShippingMethod{
		ID:   methodID,
		Name: "Express",
		Cost: decimal.RequireFromString("9.99"),
	}

	resp, err := fx.svc.CreateOrder(context.Background(), fx.userID, model.CreateOrderRequest{
		ShippingAddress:  testAddress(),
		ShippingMethodID: &methodID,
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Order.ShippingMethodName)
	assert.Equal(t, "Express", *resp.Order.ShippingMethodName)
	assert.Equal(t, "9.99", resp.Order.ShippingCost.StringFixed(2))
	assert.Equal(t, "249.99", resp.Order.TotalAmount.StringFixed(2))
}

func TestCreateOrder_ShippingOverrideByNameAndCost(t *testing.T) {
	fx := newCheckoutFixture(t)
	name := "Courier flat rate"
	cost := decimal.RequireFromString("5.50")

	resp, err := fx.svc.CreateOrder(context.Background(), fx.userID, model.CreateOrderRequest{
		ShippingAddress:    testAddress(),
		ShippingMethodName: &name,
		ShippingCost:       &cost,
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Order.ShippingMethodName)
	assert.Equal(t, name, *resp.Order.ShippingMethodName)
	assert.Equal(t, "5.50", resp.Order.ShippingCost.StringFixed(2))
	assert.Equal(t, "245.50", resp.Order.TotalAmount.StringFixed(2))
	assert.Zero(t, fx.shipping.lookups, "an inline override needs no configured method")
}

func TestCreateOrder_ShippingOverrideRequiresCost(t *testing.T) {
	fx := newCheckoutFixture(t)
	name := "Courier flat rate"

	_, err := fx.svc.CreateOrder(context.Background(), fx.userID, model.CreateOrderRequest{
		ShippingAddress:    testAddress(),
		ShippingMethodName: &name,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestCreateDirectOrder_ResolvesSKUs(t *testing.T) {
	fx := newCheckoutFixture(t)
	email := "guest@example.com"

	resp, err := fx.svc.CreateDirectOrder(context.Background(), nil, model.CreateDirectOrderRequest{
		Items:           []model.DirectOrderItem{{SKU: "JKT-001", Quantity: 3}},
		ShippingAddress: testAddress(),
		GuestEmail:      &email,
	})
	require.NoError(t, err)

	// Order first, then reservations; no cart involved in a direct buy.
	assert.Equal(t, []string{"order.create", "reserve.batch"}, fx.log.calls)

	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "JKT-001", resp.Lines[0].SKUSnapshot)
	assert.Equal(t, "120.00", resp.Lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "360.00", resp.Order.TotalAmount.StringFixed(2))

	require.Len(t, fx.producer.payloads, 1)
	assert.Equal(t, email, fx.producer.payloads[0].Email)
}

func TestCreateDirectOrder_GuestNeedsEmail(t *testing.T) {
	fx := newCheckoutFixture(t)

	_, err := fx.svc.CreateDirectOrder(context.Background(), nil, model.CreateDirectOrderRequest{
		Items:           []model.DirectOrderItem{{SKU: "JKT-001", Quantity: 1}},
		ShippingAddress: testAddress(),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Empty(t, fx.log.calls)
}
