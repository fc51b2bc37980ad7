package model

import (
	"fmt"

	"commerce-backend/internal/shared/apperrors"
)

// =====================================================
// ORDER LIFECYCLE EVENTS
// =====================================================
const (
	EventPaymentSucceeded   = "payment_succeeded"
	EventPaymentFailed      = "payment_failed"
	EventPaymentCancelled   = "payment_cancelled"
	EventReservationExpired = "reservation_expired"
	EventUserCancel         = "user_cancel"
	EventAdminCancel        = "admin_cancel"
	EventAdminShip          = "admin_ship"
	EventAdminDeliver       = "admin_deliver"
)

// ReservationEffect is what a transition demands of the order's active
// reservations.
type ReservationEffect string

const (
	EffectNone    ReservationEffect = "none"
	EffectFulfill ReservationEffect = "fulfill"
	EffectRelease ReservationEffect = "release"
)

// Transition is the pure outcome of applying an event: the statuses the
// order moves to plus the reservation side effect the caller must run in
// the same transaction.
type Transition struct {
	OrderStatus   string
	PaymentStatus string
	Reservations  ReservationEffect
	MarkShipped   bool
	MarkDelivered bool
}

// Apply computes the transition for an event against the order's current
// statuses. It mutates nothing; guard failures come back as StateGuard
// errors for the caller to map (replayed webhooks map them to no-ops,
// admin endpoints surface them as conflicts).
func Apply(event, orderStatus, paymentStatus string) (Transition, error) {
	switch event {
	case EventPaymentSucceeded:
		// Replays of a settled payment are guarded out, not re-applied.
		if paymentStatus == PaymentStatusPaid {
			return Transition{}, guard(event, orderStatus, paymentStatus)
		}
		if orderStatus != OrderStatusPendingPayment {
			return Transition{}, guard(event, orderStatus, paymentStatus)
		}
		return Transition{
			OrderStatus:   OrderStatusProcessing,
			PaymentStatus: PaymentStatusPaid,
			Reservations:  EffectFulfill,
		}, nil

	case EventPaymentFailed:
		if orderStatus != OrderStatusPendingPayment || paymentStatus != PaymentStatusPending {
			return Transition{}, guard(event, orderStatus, paymentStatus)
		}
		return Transition{
			OrderStatus:   OrderStatusFailed,
			PaymentStatus: PaymentStatusFailed,
			Reservations:  EffectRelease,
		}, nil

	case EventPaymentCancelled:
		if orderStatus != OrderStatusPendingPayment || paymentStatus != PaymentStatusPending {
			return Transition{}, guard(event, orderStatus, paymentStatus)
		}
		return Transition{
			OrderStatus:   OrderStatusCancelled,
			PaymentStatus: PaymentStatusCancelled,
			Reservations:  EffectRelease,
		}, nil

	case EventReservationExpired:
		// The sweep may only cancel orders still waiting on payment; a
		// paid order keeps its holds until fulfilment settles them.
		if orderStatus != OrderStatusPendingPayment || paymentStatus == PaymentStatusPaid {
			return Transition{}, guard(event, orderStatus, paymentStatus)
		}
		return Transition{
			OrderStatus:   OrderStatusCancelled,
			PaymentStatus: PaymentStatusCancelled,
			Reservations:  EffectRelease,
		}, nil

	case EventUserCancel, EventAdminCancel:
		if orderStatus != OrderStatusPendingPayment && orderStatus != OrderStatusProcessing {
			return Transition{}, guard(event, orderStatus, paymentStatus)
		}
		t := Transition{
			OrderStatus:  OrderStatusCancelled,
			Reservations: EffectRelease,
		}
		if paymentStatus == PaymentStatusPaid {
			// Money already moved; the cancellation records the owed
			// refund instead of pretending the payment never happened.
			t.PaymentStatus = PaymentStatusRefundedFull
		} else {
			t.PaymentStatus = PaymentStatusCancelled
		}
		return t, nil

	case EventAdminShip:
		if orderStatus != OrderStatusProcessing || paymentStatus != PaymentStatusPaid {
			return Transition{}, guard(event, orderStatus, paymentStatus)
		}
		return Transition{
			OrderStatus:   OrderStatusShipped,
			PaymentStatus: paymentStatus,
			Reservations:  EffectNone,
			MarkShipped:   true,
		}, nil

	case EventAdminDeliver:
		if orderStatus != OrderStatusShipped {
			return Transition{}, guard(event, orderStatus, paymentStatus)
		}
		return Transition{
			OrderStatus:   OrderStatusDelivered,
			PaymentStatus: paymentStatus,
			Reservations:  EffectNone,
			MarkDelivered: true,
		}, nil
	}

	return Transition{}, fmt.Errorf("unknown order event %q", event)
}

func guard(event, orderStatus, paymentStatus string) error {
	return apperrors.New(apperrors.KindStateGuard,
		fmt.Sprintf("event %s is not applicable to order in state %s/%s", event, orderStatus, paymentStatus))
}
