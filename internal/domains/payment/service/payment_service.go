package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	currency "commerce-backend/internal/domains/currency/service"
	ordermodel "commerce-backend/internal/domains/order/model"
	orderrepo "commerce-backend/internal/domains/order/repository"
	orderservice "commerce-backend/internal/domains/order/service"
	"commerce-backend/internal/domains/payment/gateway"
	"commerce-backend/internal/domains/payment/model"
	"commerce-backend/internal/domains/payment/repository"
	"commerce-backend/internal/shared/apperrors"
	"commerce-backend/pkg/logger"
)

// Service is the payment reconciler: it opens gateway sessions and folds
// every gateway signal (webhook, browser return, poll) into order events.
type Service interface {
	InitiatePayment(ctx context.Context, orderID uuid.UUID) (*model.InitiateResult, error)

	// HandleWebhook applies a verified gateway notification. Replays and
	// out-of-order deliveries come back as no-op results, never errors.
	HandleWebhook(ctx context.Context, notification model.WebhookNotification) (*model.OutcomeResult, error)

	// HandleReturn processes a browser redirect. The outcome is re-read
	// from the gateway; the redirect's own claim is ignored. Returns the
	// frontend URL to forward the customer to.
	HandleReturn(ctx context.Context, token string) (string, error)

	// CheckStatus answers a customer poll about a checkout token, nudging
	// the gateway when the attempt is still pending.
	CheckStatus(ctx context.Context, token string) (*model.StatusResult, error)

	// ReconcilePending polls the gateway about attempts stuck in pending
	// and applies whatever it learns. Returns how many orders moved.
	ReconcilePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type Config struct {
	PaymentCurrency string
	FrontendURL     string
	BackendURL      string
}

type paymentService struct {
	gateway   gateway.Gateway
	repo      repository.Repository
	orderRepo orderrepo.OrderRepository
	lifecycle orderservice.LifecycleService
	converter currency.Converter
	cfg       Config
}

func NewService(
	gw gateway.Gateway,
	repo repository.Repository,
	orderRepo orderrepo.OrderRepository,
	lifecycle orderservice.LifecycleService,
	converter currency.Converter,
	cfg Config,
) Service {
	return &paymentService{
		gateway:   gw,
		repo:      repo,
		orderRepo: orderRepo,
		lifecycle: lifecycle,
		converter: converter,
		cfg:       cfg,
	}
}

func (s *paymentService) InitiatePayment(ctx context.Context, orderID uuid.UUID) (*model.InitiateResult, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.OrderStatus != ordermodel.OrderStatusPendingPayment ||
		order.PaymentStatus != ordermodel.PaymentStatusPending {
		return nil, apperrors.New(apperrors.KindStateGuard, "order is not awaiting payment")
	}

	amount := order.TotalAmount
	payCurrency := order.Currency
	if s.cfg.PaymentCurrency != "" && s.cfg.PaymentCurrency != order.Currency {
		amount, err = s.converter.Convert(ctx, order.TotalAmount, order.Currency, s.cfg.PaymentCurrency)
		if err != nil {
			return nil, err
		}
		payCurrency = s.cfg.PaymentCurrency
	}

	checkout, err := s.gateway.CreateCheckout(ctx, gateway.CheckoutRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Amount:        amount,
		Currency:      payCurrency,
		Description:   fmt.Sprintf("Order %s", order.OrderNumber),
		CustomerEmail: order.ContactEmail(),
		ReturnURLs: gateway.ReturnURLs{
			Success: s.returnURL("success"),
			Decline: s.returnURL("declined"),
			Fail:    s.returnURL("failed"),
			Cancel:  s.returnURL("cancelled"),
		},
		NotificationURL: s.cfg.BackendURL + "/api/v1/webhooks/paypro",
	})
	if err != nil {
		return nil, err
	}

	attempt := &model.PaymentAttempt{
		ID:           uuid.New(),
		OrderID:      order.ID,
		GatewayToken: checkout.Token,
		MethodType:   "credit_card",
		Amount:       amount,
		Currency:     payCurrency,
		Status:       model.AttemptStatusPending,
	}
	if err := s.repo.Create(ctx, attempt); err != nil {
		return nil, err
	}

	logger.Info("payment initiated", map[string]interface{}{
		"order_id": order.ID.String(),
		"token":    checkout.Token,
		"amount":   amount.StringFixed(2),
		"currency": payCurrency,
	})

	return &model.InitiateResult{
		OrderID:     order.ID,
		Token:       checkout.Token,
		RedirectURL: checkout.RedirectURL,
		Amount:      amount,
		Currency:    payCurrency,
	}, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, notification model.WebhookNotification) (*model.OutcomeResult, error) {
	token := notification.GatewayToken()
	if token == "" {
		return nil, apperrors.New(apperrors.KindValidation, "notification carries no checkout token")
	}

	attempt, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	details := map[string]interface{}{
		"raw_status": notification.RawStatus(),
		"source":     "webhook",
	}
	return s.applyOutcome(ctx, attempt, notification.RawStatus(), details)
}

func (s *paymentService) HandleReturn(ctx context.Context, token string) (string, error) {
	if token == "" {
		return s.frontendResult("", "unknown"), apperrors.New(apperrors.KindValidation, "missing checkout token")
	}

	attempt, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return s.frontendResult("", "unknown"), err
	}

	status, err := s.gateway.GetCheckout(ctx, token)
	if err != nil {
		// The gateway is unreachable; the customer still needs a page.
		// Reconciliation settles the order later.
		logger.Warn("failed to verify checkout on return", map[string]interface{}{
			"token": token,
			"error": err.Error(),
		})
		return s.frontendResult(attempt.OrderID.String(), "pending"), nil
	}

	result, err := s.applyOutcome(ctx, attempt, status.Status, map[string]interface{}{
		"raw_status": status.Status,
		"source":     "return",
	})
	if err != nil {
		return s.frontendResult(attempt.OrderID.String(), "pending"), err
	}
	return s.frontendResult(attempt.OrderID.String(), result.AttemptStatus), nil
}

func (s *paymentService) CheckStatus(ctx context.Context, token string) (*model.StatusResult, error) {
	if token == "" {
		return nil, apperrors.New(apperrors.KindValidation, "missing checkout token")
	}

	attempt, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByID(ctx, attempt.OrderID)
	if err != nil {
		return nil, err
	}

	result := &model.StatusResult{
		OrderID:       order.ID,
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
		AttemptStatus: attempt.Status,
		GatewayToken:  attempt.GatewayToken,
	}

	// A pending attempt is worth a live poll; the answer may settle the
	// order right here.
	if !attempt.IsTerminal() {
		status, err := s.gateway.GetCheckout(ctx, attempt.GatewayToken)
		if err == nil {
			if applied, err := s.applyOutcome(ctx, attempt, status.Status, map[string]interface{}{
				"raw_status": status.Status,
				"source":     "status_poll",
			}); err == nil {
				result.AttemptStatus = applied.AttemptStatus
				if applied.OrderStatus != "" {
					result.OrderStatus = applied.OrderStatus
					result.PaymentStatus = applied.PaymentStatus
				}
			}
		}
	}
	return result, nil
}

func (s *paymentService) ReconcilePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	attempts, err := s.repo.FindPendingOlderThan(ctx, time.Now().Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}

	moved := 0
	for i := range attempts {
		attempt := &attempts[i]
		status, err := s.gateway.GetCheckout(ctx, attempt.GatewayToken)
		if err != nil {
			logger.Warn("reconcile poll failed", map[string]interface{}{
				"token": attempt.GatewayToken,
				"error": err.Error(),
			})
			continue
		}
		result, err := s.applyOutcome(ctx, attempt, status.Status, map[string]interface{}{
			"raw_status": status.Status,
			"source":     "reconcile",
		})
		if err != nil {
			logger.Error("failed to apply reconciled outcome", err)
			continue
		}
		if result.Applied {
			moved++
		}
	}
	return moved, nil
}

// applyOutcome folds one gateway status onto the attempt and its order.
// Pending statuses and guarded-out transitions are no-ops, which is what
// makes webhook replay and webhook/return races safe.
func (s *paymentService) applyOutcome(ctx context.Context, attempt *model.PaymentAttempt, rawStatus string, details map[string]interface{}) (*model.OutcomeResult, error) {
	normalized := model.NormalizeStatus(rawStatus)
	result := &model.OutcomeResult{
		OrderID:       attempt.OrderID,
		AttemptStatus: normalized,
	}

	if normalized == model.AttemptStatusPending {
		result.AttemptStatus = attempt.Status
		return result, nil
	}

	var event string
	switch normalized {
	case model.AttemptStatusSucceeded:
		event = ordermodel.EventPaymentSucceeded
	case model.AttemptStatusFailed:
		event = ordermodel.EventPaymentFailed
	case model.AttemptStatusCancelled:
		event = ordermodel.EventPaymentCancelled
	}

	order, err := s.lifecycle.ApplyEvent(ctx, attempt.OrderID, event, nil)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindStateGuard {
			// Replay or out-of-order delivery: the order has already been
			// decided. Record the attempt outcome and report a no-op.
			result.AlreadyProcessed = true
			if attempt.Status != normalized {
				if uerr := s.repo.UpdateStatus(ctx, attempt.ID, normalized, details); uerr != nil {
					return nil, uerr
				}
			}
			return result, nil
		}
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, attempt.ID, normalized, details); err != nil {
		return nil, err
	}

	result.Applied = true
	result.OrderStatus = order.OrderStatus
	result.PaymentStatus = order.PaymentStatus
	return result, nil
}

func (s *paymentService) returnURL(outcome string) string {
	return fmt.Sprintf("%s/api/v1/payment/%s", s.cfg.BackendURL, outcome)
}

func (s *paymentService) frontendResult(orderID, status string) string {
	q := url.Values{}
	if orderID != "" {
		q.Set("order", orderID)
	}
	q.Set("status", status)
	return fmt.Sprintf("%s/checkout/result?%s", s.cfg.FrontendURL, q.Encode())
}
