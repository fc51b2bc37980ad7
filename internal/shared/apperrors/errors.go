package apperrors

import (
	"errors"
	"fmt"
)

// =====================================================
// ERROR KINDS
// =====================================================
// Every failure the engine can surface is one of these kinds. Handlers map
// kinds to HTTP statuses, internal callers branch on them with errors.As.

type Kind string

const (
	KindInsufficientStock  Kind = "INSUFFICIENT_STOCK"
	KindLockTimeout        Kind = "LOCK_TIMEOUT"
	KindGatewayUnreachable Kind = "GATEWAY_UNREACHABLE"
	KindGatewayTimeout     Kind = "GATEWAY_TIMEOUT"
	KindGatewayRejection   Kind = "GATEWAY_REJECTION"
	KindStateGuard         Kind = "STATE_GUARD_VIOLATION"
	KindIntegrity          Kind = "INTEGRITY_VIOLATION"
	KindNotFound           Kind = "NOT_FOUND"
	KindValidation         Kind = "VALIDATION_ERROR"
)

// Error is the typed error carried across layers.
type Error struct {
	Kind    Kind
	Message string
	Details interface{} // optional structured payload (e.g. per-line deficits)
	Err     error       // wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a typed error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a typed error around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails attaches a structured payload and returns the same error.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// KindOf extracts the kind from an error chain, or "" if it is untyped.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the caller may retry the operation as-is.
// Lock timeouts and unreachable gateways recover on their own; everything
// else needs a different input or a human.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindLockTimeout, KindGatewayUnreachable, KindGatewayTimeout:
		return true
	}
	return false
}

// =====================================================
// STOCK DEFICIT PAYLOAD
// =====================================================

// StockDeficit describes one order line that could not be reserved.
type StockDeficit struct {
	Line      int    `json:"line"`
	SKU       string `json:"sku,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStock builds the 409 payload returned by reserve_batch.
func InsufficientStock(deficits []StockDeficit) *Error {
	return New(KindInsufficientStock, "insufficient stock for one or more lines").
		WithDetails(deficits)
}

// DeficitsOf extracts the per-line deficits from an insufficient-stock error.
func DeficitsOf(err error) []StockDeficit {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind == KindInsufficientStock {
		if d, ok := ae.Details.([]StockDeficit); ok {
			return d
		}
	}
	return nil
}
