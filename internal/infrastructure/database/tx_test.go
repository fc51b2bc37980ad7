package database

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"commerce-backend/internal/shared/apperrors"
)

func pgError(code, constraint string) error {
	return &pgconn.PgError{Code: code, ConstraintName: constraint}
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.Kind
	}{
		{"no rows", pgx.ErrNoRows, apperrors.KindNotFound},
		{"lock timeout", pgError(pgCodeLockNotAvailable, ""), apperrors.KindLockTimeout},
		{"check violation", pgError(pgCodeCheckViolation, "check_reserved_within_on_hand"), apperrors.KindIntegrity},
		{"unique violation", pgError(pgCodeUniqueViolation, "uniq_stock_items_sku_kind"), apperrors.KindIntegrity},
		{"foreign key violation", pgError(pgCodeForeignKey, "reservations_order_id_fkey"), apperrors.KindIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateError(tt.err, "op failed")
			assert.Equal(t, tt.want, apperrors.KindOf(got))
		})
	}
}

func TestTranslateError_PassthroughAndNil(t *testing.T) {
	assert.NoError(t, TranslateError(nil, "op"))

	plain := errors.New("connection refused")
	got := TranslateError(plain, "op failed")
	assert.ErrorIs(t, got, plain)
	assert.Empty(t, apperrors.KindOf(got))
}
