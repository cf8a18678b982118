// Package apperror defines the error taxonomy shared by the booking, spot,
// wallet and payment services. Handlers map a Kind to an HTTP status.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindAvailability       Kind = "availability_error"
	KindInvalidState       Kind = "invalid_state"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindSettlementConflict Kind = "already_settled"
	KindConflict           Kind = "conflict"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
)

// Availability reasons.
const (
	ReasonBlackout        = "blackout"
	ReasonOutsideSchedule = "outside_schedule"
	ReasonAlreadyBooked   = "already_booked"
	ReasonNotAvailable    = "not_available"
)

type Error struct {
	Kind   Kind
	Reason string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinel comparisons work across
// wrapped errors with different messages.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Validation(msg string) *Error { return New(KindValidation, msg) }

func NotFound(resource string) *Error {
	return New(KindNotFound, resource+" not found")
}

func Unavailable(reason string) *Error {
	return &Error{Kind: KindAvailability, Reason: reason, Msg: "spot is not bookable for the requested interval"}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when the
// chain carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the availability reason carried by err, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
