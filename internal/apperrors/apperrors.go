package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the API layer can map it to a status code
// without inspecting message strings.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
	KindInvalidTransition   Kind = "invalid_transition"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindSlotLimitExceeded   Kind = "slot_limit_exceeded"
	KindAlreadyPaid         Kind = "already_paid"
	KindNotApproved         Kind = "not_approved"
	KindNotAccepted         Kind = "not_accepted"
	KindDeparturePassed     Kind = "departure_passed"
	KindVendorSuspended     Kind = "vendor_suspended"
	KindPaymentNotCompleted Kind = "payment_not_completed"
	KindValidation          Kind = "validation_error"
	KindUnauthenticated     Kind = "unauthenticated"
	KindUnavailable         Kind = "unavailable"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap keeps the underlying cause reachable via errors.Is/As while
// attaching a kind for the presentation layer.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or an empty kind for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
