package handlers

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"commerce-backend/internal/infrastructure/email"
	"commerce-backend/internal/infrastructure/queue"
)

// OrderConfirmationHandler sends the checkout confirmation email.
func OrderConfirmationHandler(emailSvc email.EmailService) func(ctx context.Context, t *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var p queue.OrderConfirmationPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return asynq.SkipRetry // malformed payload never succeeds on retry
		}
		if p.Email == "" {
			return asynq.SkipRetry
		}

		return emailSvc.SendOrderConfirmation(ctx, email.OrderConfirmationData{
			Email:       p.Email,
			OrderNumber: p.OrderNumber,
			TotalAmount: p.TotalAmount,
			Currency:    p.Currency,
		})
	}
}
