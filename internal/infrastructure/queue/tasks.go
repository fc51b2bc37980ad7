package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// =====================================================
// TASK TYPES
// =====================================================
const (
	TypeOrderConfirmation = "email:order_confirmation"
)

// OrderConfirmationPayload is the task payload for the checkout
// confirmation email.
type OrderConfirmationPayload struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Email       string    `json:"email"`
	TotalAmount string    `json:"total_amount"`
	Currency    string    `json:"currency"`
}

// Producer is the enqueue-side of the task queue. Checkout treats it as
// best-effort: a broker outage never fails an order.
type Producer interface {
	EnqueueOrderConfirmation(payload OrderConfirmationPayload) error
}

type asynqProducer struct {
	client *asynq.Client
}

func NewProducer(client *asynq.Client) Producer {
	return &asynqProducer{client: client}
}

func (p *asynqProducer) EnqueueOrderConfirmation(payload OrderConfirmationPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal confirmation payload: %w", err)
	}
	task := asynq.NewTask(TypeOrderConfirmation, data)
	_, err = p.client.Enqueue(task,
		asynq.Queue("email"),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("failed to enqueue confirmation task: %w", err)
	}
	return nil
}
