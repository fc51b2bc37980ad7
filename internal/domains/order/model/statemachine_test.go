package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-backend/internal/shared/apperrors"
)

func TestApply_PaymentSucceeded(t *testing.T) {
	tr, err := Apply(EventPaymentSucceeded, OrderStatusPendingPayment, PaymentStatusPending)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusProcessing, tr.OrderStatus)
	assert.Equal(t, PaymentStatusPaid, tr.PaymentStatus)
	assert.Equal(t, EffectFulfill, tr.Reservations)
}

func TestApply_PaymentSucceeded_ReplayIsGuarded(t *testing.T) {
	// A second success webhook must not re-fulfill.
	_, err := Apply(EventPaymentSucceeded, OrderStatusProcessing, PaymentStatusPaid)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStateGuard, apperrors.KindOf(err))
}

func TestApply_PaymentFailed(t *testing.T) {
	tr, err := Apply(EventPaymentFailed, OrderStatusPendingPayment, PaymentStatusPending)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusFailed, tr.OrderStatus)
	assert.Equal(t, PaymentStatusFailed, tr.PaymentStatus)
	assert.Equal(t, EffectRelease, tr.Reservations)
}

func TestApply_PaymentCancelled(t *testing.T) {
	tr, err := Apply(EventPaymentCancelled, OrderStatusPendingPayment, PaymentStatusPending)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusCancelled, tr.OrderStatus)
	assert.Equal(t, PaymentStatusCancelled, tr.PaymentStatus)
	assert.Equal(t, EffectRelease, tr.Reservations)
}

func TestApply_FailureAfterSuccessIsGuarded(t *testing.T) {
	// Out-of-order webhook delivery: success already landed.
	_, err := Apply(EventPaymentFailed, OrderStatusProcessing, PaymentStatusPaid)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStateGuard, apperrors.KindOf(err))
}

func TestApply_ReservationExpired(t *testing.T) {
	tr, err := Apply(EventReservationExpired, OrderStatusPendingPayment, PaymentStatusPending)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusCancelled, tr.OrderStatus)
	assert.Equal(t, PaymentStatusCancelled, tr.PaymentStatus)
	assert.Equal(t, EffectRelease, tr.Reservations)
}

func TestApply_ReservationExpired_PaidOrderIsProtected(t *testing.T) {
	// The sweep must never cancel an order whose payment landed.
	_, err := Apply(EventReservationExpired, OrderStatusProcessing, PaymentStatusPaid)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStateGuard, apperrors.KindOf(err))
}

func TestApply_AdminCancel_PendingOrder(t *testing.T) {
	tr, err := Apply(EventAdminCancel, OrderStatusPendingPayment, PaymentStatusPending)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusCancelled, tr.OrderStatus)
	assert.Equal(t, PaymentStatusCancelled, tr.PaymentStatus)
	assert.Equal(t, EffectRelease, tr.Reservations)
}

func TestApply_AdminCancel_PaidOrderRecordsRefund(t *testing.T) {
	tr, err := Apply(EventAdminCancel, OrderStatusProcessing, PaymentStatusPaid)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusCancelled, tr.OrderStatus)
	assert.Equal(t, PaymentStatusRefundedFull, tr.PaymentStatus)
	assert.Equal(t, EffectRelease, tr.Reservations)
}

func TestApply_AdminCancel_ShippedOrderIsGuarded(t *testing.T) {
	_, err := Apply(EventAdminCancel, OrderStatusShipped, PaymentStatusPaid)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStateGuard, apperrors.KindOf(err))
}

func TestApply_AdminShip(t *testing.T) {
	tr, err := Apply(EventAdminShip, OrderStatusProcessing, PaymentStatusPaid)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusShipped, tr.OrderStatus)
	assert.Equal(t, PaymentStatusPaid, tr.PaymentStatus)
	assert.Equal(t, EffectNone, tr.Reservations)
	assert.True(t, tr.MarkShipped)
}

func TestApply_AdminShip_RequiresPayment(t *testing.T) {
	_, err := Apply(EventAdminShip, OrderStatusPendingPayment, PaymentStatusPending)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStateGuard, apperrors.KindOf(err))
}

func TestApply_AdminDeliver(t *testing.T) {
	tr, err := Apply(EventAdminDeliver, OrderStatusShipped, PaymentStatusPaid)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusDelivered, tr.OrderStatus)
	assert.True(t, tr.MarkDelivered)
}

func TestApply_AdminDeliver_NotShippedIsGuarded(t *testing.T) {
	for _, status := range []string{OrderStatusPendingPayment, OrderStatusProcessing, OrderStatusDelivered, OrderStatusCancelled} {
		_, err := Apply(EventAdminDeliver, status, PaymentStatusPaid)
		assert.Error(t, err, "status %s", status)
	}
}

func TestApply_UnknownEvent(t *testing.T) {
	_, err := Apply("warp", OrderStatusPendingPayment, PaymentStatusPending)
	require.Error(t, err)
	assert.NotEqual(t, apperrors.KindStateGuard, apperrors.KindOf(err))
}

func TestApply_TerminalStatesNeverTransition(t *testing.T) {
	events := []string{
		EventPaymentSucceeded, EventPaymentFailed, EventPaymentCancelled,
		EventReservationExpired, EventUserCancel, EventAdminCancel,
		EventAdminShip, EventAdminDeliver,
	}
	for terminal := range TerminalOrderStatuses {
		for _, event := range events {
			_, err := Apply(event, terminal, PaymentStatusCancelled)
			assert.Error(t, err, "event %s on %s", event, terminal)
		}
	}
}
