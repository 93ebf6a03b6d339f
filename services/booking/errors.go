package booking

import (
	"errors"
	"fmt"

	bookingRepo "sessionbook/database/repository/booking"
)

// Kind classifies a booking failure. Everything outside the known kinds is Internal.
type Kind string

const (
	KindNotFound          Kind = "resource_not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindPermissionDenied  Kind = "permission_denied"
	KindInvalidTransition Kind = "invalid_transition"
	KindSlotUnavailable   Kind = "slot_unavailable"
	KindPaymentFailed     Kind = "payment_failed"
	KindInternal          Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func internal(err error, msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of err, Internal for foreign errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a booking error of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// IsConditionFailed reports whether a repository update lost its precondition.
func IsConditionFailed(err error) bool {
	return errors.Is(err, bookingRepo.ErrConditionFailed)
}
