// Package apperr defines the failure kinds surfaced by the control plane.
//
// Every error leaving the facade resolves to exactly one Kind, so callers can
// tell a missing record from a broken ownership rule without parsing messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable failure category.
type Kind string

const (
	KindUnknown              Kind = "UNKNOWN"
	KindNotFound             Kind = "NOT_FOUND"
	KindInvalidRelationship  Kind = "INVALID_RELATIONSHIP"
	KindInvalidPayload       Kind = "INVALID_PAYLOAD"
	KindUnsupportedOperation Kind = "UNSUPPORTED_OPERATION"
)

// Error is a categorized failure.
type Error struct {
	Kind    Kind
	Entity  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Entity != "" {
		msg = e.Entity + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, apperr.ErrNotFound)
// works regardless of entity or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Entity == "" && t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInvalidRelationship  = &Error{Kind: KindInvalidRelationship}
	ErrInvalidPayload       = &Error{Kind: KindInvalidPayload}
	ErrUnsupportedOperation = &Error{Kind: KindUnsupportedOperation}
)

// kinded is implemented by errors from other packages that carry a Kind
// without depending on *Error (e.g. store.ErrNotFound).
type kinded interface {
	Kind() Kind
}

// KindOf resolves the Kind of err, looking through wrapping.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// NotFound reports a missing record.
func NotFound(entity string, id int64) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, Message: fmt.Sprintf("id %d not found", id)}
}

// InvalidRelationship reports a broken ownership rule.
func InvalidRelationship(entity, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRelationship, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

// InvalidPayload reports a schema violation; cause may be nil.
func InvalidPayload(entity string, cause error, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidPayload, Entity: entity, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Unsupported reports an unknown verb/resource combination.
func Unsupported(verb, resource string) *Error {
	return &Error{Kind: KindUnsupportedOperation, Message: fmt.Sprintf("%s %s is not supported", verb, resource)}
}

// HTTPStatus maps a Kind to its HTTP status code.
func HTTPStatus(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidPayload:
		return http.StatusBadRequest
	case KindInvalidRelationship:
		return http.StatusUnprocessableEntity
	case KindUnsupportedOperation:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}
