package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SweepRun is one recorded execution of the sweeper.
type SweepRun struct {
	StartedAt           time.Time
	FinishedAt          time.Time
	DryRun              bool
	ReservationsExpired int
	OrphansReleased     int
	OrdersCancelled     int
	PaymentsReconciled  int
	Errors              int
}

// RunRepository persists the sweep execution log.
type RunRepository interface {
	Insert(ctx context.Context, run *SweepRun) error
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type postgresRunRepository struct {
	pool *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) RunRepository {
	return &postgresRunRepository{pool: pool}
}

func (r *postgresRunRepository) Insert(ctx context.Context, run *SweepRun) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sweep_runs (started_at, finished_at, dry_run,
			reservations_expired, orphans_released, orders_cancelled,
			payments_reconciled, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.StartedAt, run.FinishedAt, run.DryRun,
		run.ReservationsExpired, run.OrphansReleased, run.OrdersCancelled,
		run.PaymentsReconciled, run.Errors)
	if err != nil {
		return fmt.Errorf("failed to record sweep run: %w", err)
	}
	return nil
}

func (r *postgresRunRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sweep_runs WHERE started_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sweep runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
