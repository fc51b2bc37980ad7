package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"completed":  AttemptStatusSucceeded,
		"succeeded":  AttemptStatusSucceeded,
		"success":    AttemptStatusSucceeded,
		"successful": AttemptStatusSucceeded,
		"paid":       AttemptStatusSucceeded,

		"failed":   AttemptStatusFailed,
		"declined": AttemptStatusFailed,
		"error":    AttemptStatusFailed,

		"cancelled": AttemptStatusCancelled,
		"canceled":  AttemptStatusCancelled,

		"pending":    AttemptStatusPending,
		"processing": AttemptStatusPending,
		"authorized": AttemptStatusPending,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeStatus(raw), raw)
	}
}

func TestNormalizeStatus_IsCaseAndSpaceInsensitive(t *testing.T) {
	assert.Equal(t, AttemptStatusSucceeded, NormalizeStatus("  Completed "))
	assert.Equal(t, AttemptStatusCancelled, NormalizeStatus("CANCELED"))
}

func TestNormalizeStatus_UnknownStaysPending(t *testing.T) {
	// An unknown vocabulary word must never move an order.
	assert.Equal(t, AttemptStatusPending, NormalizeStatus("chargeback_reversed"))
	assert.Equal(t, AttemptStatusPending, NormalizeStatus(""))
}

func TestWebhookNotification_ExtractsEitherShape(t *testing.T) {
	tx := WebhookNotification{Transaction: &WebhookTransaction{
		Token: "tok-1", Status: "successful", TrackingID: "order-1",
	}}
	assert.Equal(t, "tok-1", tx.GatewayToken())
	assert.Equal(t, "successful", tx.RawStatus())
	assert.Equal(t, "order-1", tx.TrackingID())

	co := WebhookNotification{Checkout: &WebhookCheckout{Token: "tok-2", Status: "expired"}}
	co.Checkout.Order.TrackingID = "order-2"
	assert.Equal(t, "tok-2", co.GatewayToken())
	assert.Equal(t, "expired", co.RawStatus())
	assert.Equal(t, "order-2", co.TrackingID())

	empty := WebhookNotification{}
	assert.Empty(t, empty.GatewayToken())
}
