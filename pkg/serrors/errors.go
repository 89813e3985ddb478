package serrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation           Kind = "validation"
	KindNotFound             Kind = "not_found"
	KindCycleDetected        Kind = "cycle_detected"
	KindInvalidReparent      Kind = "invalid_reparent"
	KindReferentialIntegrity Kind = "referential_integrity"
	KindConflict             Kind = "conflict"
	KindInternal             Kind = "internal"
)

// Error is the single error type every mutating operation returns. Kind
// drives the caller-facing classification; Fields carries per-field
// validation messages.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func NewValidation(code, message string, fields map[string]string) *Error {
	e := newError(KindValidation, code, message)
	e.Fields = fields
	return e
}

func NewNotFound(code, message string) *Error {
	return newError(KindNotFound, code, message)
}

func NewCycleDetected(code, message string) *Error {
	return newError(KindCycleDetected, code, message)
}

func NewInvalidReparent(code, message string) *Error {
	return newError(KindInvalidReparent, code, message)
}

func NewReferentialIntegrity(code, message string) *Error {
	return newError(KindReferentialIntegrity, code, message)
}

func NewConflict(code, message string) *Error {
	return newError(KindConflict, code, message)
}

func NewInternal(cause error) *Error {
	e := newError(KindInternal, "ORG_INTERNAL", "internal error")
	e.Cause = cause
	return e
}

func Wrap(err error, code, message string) *Error {
	e := newError(KindInternal, code, message)
	e.Cause = err
	return e
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// HTTPStatus maps the taxonomy to transport status codes. Presentation
// collaborators own the user-facing message; the engine owns the kind.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindCycleDetected, KindReferentialIntegrity, KindConflict:
		return http.StatusConflict
	case KindInvalidReparent:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
