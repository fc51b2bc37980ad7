package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"commerce-backend/internal/domains/payment/model"
)

// Repository persists payment attempts. The gateway token is the natural
// key for webhook correlation.
type Repository interface {
	Create(ctx context.Context, attempt *model.PaymentAttempt) error
	GetByToken(ctx context.Context, token string) (*model.PaymentAttempt, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, details map[string]interface{}) error

	// FindPendingOlderThan returns attempts still pending past the cutoff;
	// the reconciler polls the gateway about them.
	FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]model.PaymentAttempt, error)
}
