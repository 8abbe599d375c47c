// Package apperr classifies failures so handlers can pick a status code
// without string matching.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	Configuration
	Authentication
	Forbidden
	Validation
	SignatureVerification
	Upstream
	NotFound
	Conflict
	PaymentRequired
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Authentication:
		return "authentication"
	case Forbidden:
		return "forbidden"
	case Validation:
		return "validation"
	case SignatureVerification:
		return "signature_verification"
	case Upstream:
		return "upstream"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case PaymentRequired:
		return "payment_required"
	default:
		return "internal"
	}
}

// Status is the HTTP status a Kind maps to.
func (k Kind) Status() int {
	switch k {
	case Configuration, Upstream, Internal:
		return http.StatusInternalServerError
	case Authentication:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case Validation, SignatureVerification:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case PaymentRequired:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a client-safe message next to the wrapped cause.
// Code is set for upstream failures that surface a processor error code.
type Error struct {
	Kind    Kind
	Message string
	Code    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func E(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf returns Internal for errors that were never classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-facing text, hiding unclassified causes.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
