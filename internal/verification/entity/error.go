package entity

import (
	"fmt"
)

// ErrorKind classifies verification failures.
type ErrorKind int

const (
	KindCooldownActive ErrorKind = iota + 1
	KindDeliveryFailed
	KindNoPendingRequest
	KindExpired
	KindInvalidCode
	KindAttemptsExhausted
	KindStorageUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindCooldownActive:
		return "COOLDOWN_ACTIVE"
	case KindDeliveryFailed:
		return "DELIVERY_FAILED"
	case KindNoPendingRequest:
		return "NO_PENDING_REQUEST"
	case KindExpired:
		return "EXPIRED"
	case KindInvalidCode:
		return "INVALID_CODE"
	case KindAttemptsExhausted:
		return "ATTEMPTS_EXHAUSTED"
	case KindStorageUnavailable:
		return "STORAGE_UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// Error is a verification failure. SecondsRemaining is set for
// KindCooldownActive and AttemptsRemaining for KindInvalidCode.
type Error struct {
	Kind              ErrorKind
	SecondsRemaining  int
	AttemptsRemaining int
	Err               error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindCooldownActive:
		return fmt.Sprintf("verification: cooldown active, retry in %ds", e.SecondsRemaining)
	case KindInvalidCode:
		return fmt.Sprintf("verification: invalid code, %d attempts remaining", e.AttemptsRemaining)
	}
	if e.Err != nil {
		return "verification: " + e.Kind.String() + ": " + e.Err.Error()
	}
	return "verification: " + e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrExpired) works
// regardless of the attached details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrCooldownActive     = &Error{Kind: KindCooldownActive}
	ErrDeliveryFailed     = &Error{Kind: KindDeliveryFailed}
	ErrNoPendingRequest   = &Error{Kind: KindNoPendingRequest}
	ErrExpired            = &Error{Kind: KindExpired}
	ErrInvalidCode        = &Error{Kind: KindInvalidCode}
	ErrAttemptsExhausted  = &Error{Kind: KindAttemptsExhausted}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable}
)

func NewCooldownActive(secondsRemaining int) *Error {
	return &Error{Kind: KindCooldownActive, SecondsRemaining: secondsRemaining}
}

func NewInvalidCode(attemptsRemaining int) *Error {
	return &Error{Kind: KindInvalidCode, AttemptsRemaining: attemptsRemaining}
}

func NewDeliveryFailed(cause error) *Error {
	return &Error{Kind: KindDeliveryFailed, Err: cause}
}

func NewStorageUnavailable(cause error) *Error {
	return &Error{Kind: KindStorageUnavailable, Err: cause}
}
