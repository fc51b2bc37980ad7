package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"commerce-backend/internal/shared/apperrors"
	"commerce-backend/pkg/logger"
)

// WithinTx runs fn inside a read-committed transaction, committing on nil
// and rolling back otherwise. Rollback after commit is a no-op, so the
// deferred rollback is always safe.
func WithinTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Error("transaction rollback failed", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// PostgreSQL error codes the engine cares about.
const (
	pgCodeLockNotAvailable = "55P03"
	pgCodeCheckViolation   = "23514"
	pgCodeUniqueViolation  = "23505"
	pgCodeForeignKey       = "23503"
)

// TranslateError converts low-level pgx errors into typed domain errors.
// A fired check constraint means a bug upstream let an illegal ledger
// mutation through; it must surface loudly, never be swallowed.
func TranslateError(err error, context string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.Wrap(apperrors.KindNotFound, context, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeLockNotAvailable:
			return apperrors.Wrap(apperrors.KindLockTimeout, context, err)
		case pgCodeCheckViolation:
			return apperrors.Wrap(apperrors.KindIntegrity,
				fmt.Sprintf("%s: check constraint %q fired", context, pgErr.ConstraintName), err)
		case pgCodeUniqueViolation:
			return apperrors.Wrap(apperrors.KindIntegrity,
				fmt.Sprintf("%s: unique constraint %q violated", context, pgErr.ConstraintName), err)
		case pgCodeForeignKey:
			return apperrors.Wrap(apperrors.KindIntegrity,
				fmt.Sprintf("%s: foreign key %q violated", context, pgErr.ConstraintName), err)
		}
	}

	return fmt.Errorf("%s: %w", context, err)
}

// IsUniqueViolation reports whether err is a unique-constraint violation,
// optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgCodeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
