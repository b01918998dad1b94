package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so transport layers can map it to a status code
// without inspecting error strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindInvalidTransition
	KindInvariantViolation
	KindConflict
)

// Error is the domain error carried across layer boundaries.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func InvalidTransition(format string, args ...any) error {
	return &Error{Kind: KindInvalidTransition, Msg: fmt.Sprintf(format, args...)}
}

func InvariantViolation(format string, args ...any) error {
	return &Error{Kind: KindInvariantViolation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error while keeping the chain intact.
func Wrap(kind Kind, err error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool           { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool         { return KindOf(err) == KindValidation }
func IsInvalidTransition(err error) bool  { return KindOf(err) == KindInvalidTransition }
func IsInvariantViolation(err error) bool { return KindOf(err) == KindInvariantViolation }
func IsConflict(err error) bool           { return KindOf(err) == KindConflict }

// HTTPStatus maps a failure kind to the HTTP status used by handlers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidTransition, KindInvariantViolation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
