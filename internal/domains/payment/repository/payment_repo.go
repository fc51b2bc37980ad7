package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"commerce-backend/internal/domains/payment/model"
	"commerce-backend/internal/infrastructure/database"
	"commerce-backend/internal/shared/apperrors"
)

const attemptColumns = `
	id, order_id, gateway_token, method_type, amount, currency, status, details, created_at, updated_at`

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.PaymentAttempt, error) {
	var a model.PaymentAttempt
	var details []byte
	err := row.Scan(
		&a.ID,
		&a.OrderID,
		&a.GatewayToken,
		&a.MethodType,
		&a.Amount,
		&a.Currency,
		&a.Status,
		&details,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("failed to decode attempt details: %w", err)
		}
	}
	return &a, nil
}

func (r *postgresRepository) Create(ctx context.Context, attempt *model.PaymentAttempt) error {
	var details []byte
	if attempt.Details != nil {
		var err error
		details, err = json.Marshal(attempt.Details)
		if err != nil {
			return fmt.Errorf("failed to encode attempt details: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO payment_attempts (id, order_id, gateway_token, method_type, amount, currency, status, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		attempt.ID, attempt.OrderID, attempt.GatewayToken, attempt.MethodType,
		attempt.Amount, attempt.Currency, attempt.Status, details)
	if err != nil {
		if database.IsUniqueViolation(err, "payment_attempts_gateway_token_key") {
			return apperrors.Wrap(apperrors.KindIntegrity, "duplicate gateway token", err)
		}
		return database.TranslateError(err, "failed to insert payment attempt")
	}
	return nil
}

func (r *postgresRepository) GetByToken(ctx context.Context, token string) (*model.PaymentAttempt, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+attemptColumns+`
		FROM payment_attempts
		WHERE gateway_token = $1`, token)
	attempt, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "payment attempt not found", err)
		}
		return nil, database.TranslateError(err, "failed to get payment attempt")
	}
	return attempt, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, details map[string]interface{}) error {
	var detailsJSON []byte
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode attempt details: %w", err)
		}
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE payment_attempts
		SET status     = $2,
		    details    = COALESCE($3, details),
		    updated_at = NOW()
		WHERE id = $1`, id, status, detailsJSON)
	if err != nil {
		return database.TranslateError(err, "failed to update payment attempt")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.KindNotFound, "payment attempt not found")
	}
	return nil
}

func (r *postgresRepository) FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]model.PaymentAttempt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attemptColumns+`
		FROM payment_attempts
		WHERE status = 'pending'
		  AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending attempts: %w", err)
	}
	defer rows.Close()

	var out []model.PaymentAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment attempt: %w", err)
		}
		out = append(out, *attempt)
	}
	return out, rows.Err()
}
