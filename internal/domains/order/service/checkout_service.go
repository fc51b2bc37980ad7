package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	cartRepo "commerce-backend/internal/domains/cart/repository"
	invrepo "commerce-backend/internal/domains/inventory/repository"
	"commerce-backend/internal/domains/order/model"
	"commerce-backend/internal/domains/order/repository"
	resmodel "commerce-backend/internal/domains/reservation/model"
	reservation "commerce-backend/internal/domains/reservation/service"
	"commerce-backend/internal/infrastructure/database"
	"commerce-backend/internal/infrastructure/queue"
	"commerce-backend/internal/shared/apperrors"
	"commerce-backend/pkg/logger"
)

// checkoutLine carries the snapshot data for one order line before it is
// persisted.
type checkoutLine struct {
	stockItemID uuid.UUID
	name        string
	sku         string
	quantity    int
	unitPrice   decimal.Decimal
}

// shippingChoice is the checkout's delivery selection: a configured
// method referenced by id, or an explicit name+cost override.
type shippingChoice struct {
	methodID *uuid.UUID
	name     *string
	cost     *decimal.Decimal
}

type checkoutService struct {
	runTx        func(context.Context, func(pgx.Tx) error) error
	orderRepo    repository.OrderRepository
	shippingRepo repository.ShippingMethodRepository
	cartRepo     cartRepo.RepositoryInterface
	ledger       invrepo.Ledger
	reservations reservation.Store
	producer     queue.Producer
	currency     string
}

func NewCheckoutService(
	pool *pgxpool.Pool,
	orderRepo repository.OrderRepository,
	shippingRepo repository.ShippingMethodRepository,
	cartRepository cartRepo.RepositoryInterface,
	ledger invrepo.Ledger,
	reservations reservation.Store,
	producer queue.Producer,
	currency string,
) CheckoutService {
	return &checkoutService{
		runTx: func(ctx context.Context, fn func(pgx.Tx) error) error {
			return database.WithinTx(ctx, pool, fn)
		},
		orderRepo:    orderRepo,
		shippingRepo: shippingRepo,
		cartRepo:     cartRepository,
		ledger:       ledger,
		reservations: reservations,
		producer:     producer,
		currency:     currency,
	}
}

// CreateOrder checks out the caller's cart.
func (s *checkoutService) CreateOrder(ctx context.Context, userID uuid.UUID, req model.CreateOrderRequest) (*model.OrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid checkout request", err)
	}

	cart, err := s.cartRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.cartRepo.GetItemsByCartID(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "cart is empty")
	}

	lines := make([]checkoutLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, checkoutLine{
			stockItemID: item.StockItemID,
			name:        item.ItemName,
			sku:         item.SKU,
			quantity:    item.Quantity,
			unitPrice:   item.UnitPrice,
		})
	}

	choice := shippingChoice{methodID: req.ShippingMethodID, name: req.ShippingMethodName, cost: req.ShippingCost}
	return s.placeOrder(ctx, &userID, req.GuestEmail, req.ShippingAddress, req.BillingAddress,
		choice, req.CustomerNotes, lines, cart.ID)
}

// CreateDirectOrder places an order for explicit items, bypassing the
// cart. Guests must supply a contact email.
func (s *checkoutService) CreateDirectOrder(ctx context.Context, userID *uuid.UUID, req model.CreateDirectOrderRequest) (*model.OrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid checkout request", err)
	}
	if userID == nil && req.GuestEmail == nil {
		return nil, apperrors.New(apperrors.KindValidation, "guest checkout requires an email address")
	}

	lines := make([]checkoutLine, 0, len(req.Items))
	for _, reqItem := range req.Items {
		item, err := s.ledger.ResolveForProduct(ctx, reqItem.SKU)
		if err != nil {
			return nil, err
		}
		lines = append(lines, checkoutLine{
			stockItemID: item.ID,
			name:        item.Name,
			sku:         item.SKU,
			quantity:    reqItem.Quantity,
			unitPrice:   item.UnitPrice,
		})
	}

	choice := shippingChoice{methodID: req.ShippingMethodID, name: req.ShippingMethodName, cost: req.ShippingCost}
	return s.placeOrder(ctx, userID, req.GuestEmail, req.ShippingAddress, req.BillingAddress,
		choice, req.CustomerNotes, lines, uuid.Nil)
}

// placeOrder runs the single checkout transaction: write the order with
// its snapshots, reserve every line against it, clear the cart. The order
// row goes in first because reservations reference it. Any failure rolls
// the whole thing back, including partial reservations.
func (s *checkoutService) placeOrder(
	ctx context.Context,
	userID *uuid.UUID,
	guestEmail *string,
	shipping model.Address,
	billing *model.Address,
	choice shippingChoice,
	notes *string,
	lines []checkoutLine,
	cartID uuid.UUID,
) (*model.OrderResponse, error) {
	var methodName *string
	shippingCost := decimal.Zero
	switch {
	case choice.methodID != nil:
		method, err := s.shippingRepo.GetByID(ctx, *choice.methodID)
		if err != nil {
			return nil, err
		}
		methodName = &method.Name
		shippingCost = method.Cost
	case choice.name != nil:
		methodName = choice.name
		if choice.cost != nil {
			shippingCost = *choice.cost
		}
	}

	now := time.Now()
	orderID := uuid.New()

	subtotal := decimal.Zero
	orderLines := make([]model.OrderLine, 0, len(lines))
	resLines := make([]resmodel.Line, 0, len(lines))
	for i, line := range lines {
		lineSubtotal := line.unitPrice.Mul(decimal.NewFromInt(int64(line.quantity)))
		subtotal = subtotal.Add(lineSubtotal)
		orderLines = append(orderLines, model.OrderLine{
			ID:           uuid.New(),
			OrderID:      orderID,
			StockItemID:  line.stockItemID,
			NameSnapshot: line.name,
			SKUSnapshot:  line.sku,
			Quantity:     line.quantity,
			UnitPrice:    line.unitPrice,
			Subtotal:     lineSubtotal,
			CreatedAt:    now,
		})
		resLines = append(resLines, resmodel.Line{
			LineIndex:   i,
			StockItemID: line.stockItemID,
			SKU:         line.sku,
			Quantity:    line.quantity,
		})
	}

	billingAddr := shipping
	if billing != nil {
		billingAddr = *billing
	}

	order := &model.Order{
		ID:                 orderID,
		OrderNumber:        model.NewOrderNumber(orderID, now),
		UserID:             userID,
		GuestEmail:         guestEmail,
		ShippingAddress:    shipping,
		BillingAddress:     billingAddr,
		ShippingMethodName: methodName,
		ShippingCost:       shippingCost,
		SubtotalAmount:     subtotal,
		TotalAmount:        subtotal.Add(shippingCost),
		Currency:           s.currency,
		OrderStatus:        model.OrderStatusPendingPayment,
		PaymentStatus:      model.PaymentStatusPending,
		CustomerNotes:      notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.runTx(ctx, func(tx pgx.Tx) error {
		if err := s.orderRepo.CreateTx(ctx, tx, order, orderLines); err != nil {
			return err
		}
		if _, err := s.reservations.ReserveBatchTx(ctx, tx, orderID, resLines); err != nil {
			return err
		}
		if cartID != uuid.Nil {
			// Cleared only once the reservations held; a failed checkout
			// leaves the cart intact for another try.
			if err := s.cartRepo.ClearTx(ctx, tx, cartID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("order placed", map[string]interface{}{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"lines":        len(orderLines),
		"total":        order.TotalAmount.StringFixed(2),
	})

	s.enqueueConfirmation(order)

	return &model.OrderResponse{Order: order, Lines: orderLines}, nil
}

// enqueueConfirmation is best-effort: a broker outage must not fail an
// order that is already committed.
func (s *checkoutService) enqueueConfirmation(order *model.Order) {
	email := order.ContactEmail()
	if email == "" {
		return
	}
	err := s.producer.EnqueueOrderConfirmation(queue.OrderConfirmationPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Email:       email,
		TotalAmount: order.TotalAmount.StringFixed(2),
		Currency:    order.Currency,
	})
	if err != nil {
		logger.Warn("failed to enqueue confirmation email", map[string]interface{}{
			"order_id": order.ID.String(),
			"error":    err.Error(),
		})
	}
}

func (s *checkoutService) GetOrder(ctx context.Context, orderID uuid.UUID) (*model.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines, err := s.orderRepo.GetLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &model.OrderResponse{Order: order, Lines: lines}, nil
}

func (s *checkoutService) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.OrderSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.orderRepo.ListByUser(ctx, userID, limit, offset)
}

func (s *checkoutService) ListAdmin(ctx context.Context, orderStatus, paymentStatus string, limit, offset int) ([]model.OrderSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.orderRepo.ListAdmin(ctx, orderStatus, paymentStatus, limit, offset)
}

func (s *checkoutService) ListShippingMethods(ctx context.Context) ([]model.ShippingMethod, error) {
	return s.shippingRepo.ListActive(ctx)
}
