package model

import "strings"

// Gateway status vocabularies vary by provider version; everything funnels
// through this table before touching an order.
var statusAliases = map[string]string{
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

// NormalizeStatus maps a raw gateway status to the internal vocabulary.
// Unknown statuses normalize to pending: an unrecognized value must never
// move an order, only leave it for reconciliation.
func NormalizeStatus(raw string) string {
	if s, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return AttemptStatusPending
}
