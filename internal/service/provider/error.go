package provider

import (
	"context"
	"errors"
	"fmt"
	"net"

	xhttp "FinScout/pkg/http"
	"FinScout/pkg/resilience"
)

// Kind classifies a provider failure.
type Kind int

const (
	KindTransient  Kind = iota // timeouts, connection failures, 5xx, 429
	KindLogical                // API-reported error payload, never retried
	KindProtection             // breaker open / rate-limit fast-fail
	KindParse                  // malformed response body
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindLogical:
		return "logical"
	case KindProtection:
		return "protection"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure.
type Error struct {
	Kind     Kind
	Provider string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Msg)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient builds a retryable provider error.
func Transient(name, msg string, err error) *Error {
	return &Error{Kind: KindTransient, Provider: name, Msg: msg, Err: err}
}

// Logical builds a non-retryable provider error (the API answered with an
// error payload).
func Logical(name, msg string) *Error {
	return &Error{Kind: KindLogical, Provider: name, Msg: msg}
}

// Parse builds an error for an unreadable response body.
func Parse(name, msg string, err error) *Error {
	return &Error{Kind: KindParse, Provider: name, Msg: msg, Err: err}
}

// Protection builds an error for an internally rejected call.
func Protection(name, msg string, err error) *Error {
	return &Error{Kind: KindProtection, Provider: name, Msg: msg, Err: err}
}

// FromTransport classifies a raw HTTP-layer failure. Non-retryable statuses
// become logical errors; everything else is assumed transient.
func FromTransport(name string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		if se.Retryable() {
			return Transient(name, fmt.Sprintf("http %d", se.Status), err)
		}
		return &Error{Kind: KindLogical, Provider: name, Msg: fmt.Sprintf("http %d", se.Status), Err: err}
	}
	if errors.Is(err, resilience.ErrBreakerOpen) {
		return Protection(name, "circuit open", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient(name, "timeout", err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Transient(name, "timeout", err)
	}
	return Transient(name, "request failed", err)
}

// Retryable reports whether err should be retried. Used as the Classify hook
// for both Retry and Breaker.
func Retryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == KindTransient
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	if errors.Is(err, resilience.ErrBreakerOpen) {
		return false
	}
	return true
}
