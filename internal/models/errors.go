package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the coarse failure category reported to callers
type ErrorKind string

const (
	KindNotFound              ErrorKind = "NotFound"
	KindInsufficientInventory ErrorKind = "InsufficientInventory"
	KindValidation            ErrorKind = "ValidationError"
	KindWindowNotOpen         ErrorKind = "WindowNotOpen"
	KindInvalidTransition     ErrorKind = "InvalidTransition"
	KindPaymentFailed         ErrorKind = "PaymentFailed"
	KindInternal              ErrorKind = "InternalError"
)

// Error is a domain failure with a kind, the operation that failed and a message
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

// NewError creates a domain error
func NewError(kind ErrorKind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// WrapError creates a domain error around a cause
func WrapError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
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

// KindOf returns the kind of the first domain error in the chain, InternalError otherwise
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

// IsKind checks if err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// ErrorMessage returns the domain message of err without wrapping prefixes
func ErrorMessage(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Error()
	}
	return err.Error()
}

// NotFound is a shorthand for a missing flight, booking or passenger
func NotFound(op, what, id string) *Error {
	return NewError(KindNotFound, op, fmt.Sprintf("%s %s not found", what, id))
}
