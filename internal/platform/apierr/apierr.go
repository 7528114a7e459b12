package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/tripseal-backend/internal/domain/aggregates"
)

// Codes surfaced to clients. They are stable and machine-checkable.
const (
	CodeUnauthenticated    = "unauthenticated"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodePayloadTooLarge    = "payload_too_large"
	CodeValidation         = "validation"
	CodePreconditionFailed = "precondition_failed"
	CodeRetryable          = "retryable"
	CodeInternal           = "internal"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Unauthenticated(msg string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthenticated, errors.New(msg))
}

func Forbidden(msg string) *Error {
	return New(http.StatusForbidden, CodeForbidden, errors.New(msg))
}

func NotFound(msg string) *Error {
	return New(http.StatusNotFound, CodeNotFound, errors.New(msg))
}

func Conflict(msg string) *Error {
	return New(http.StatusConflict, CodeConflict, errors.New(msg))
}

func PayloadTooLarge(msg string) *Error {
	return New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, errors.New(msg))
}

func Validation(msg string) *Error {
	return New(http.StatusBadRequest, CodeValidation, errors.New(msg))
}

func PreconditionFailed(msg string) *Error {
	return New(http.StatusConflict, CodePreconditionFailed, errors.New(msg))
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// PublicMessage is the text safe to return to clients. Server-side failures
// never leak their cause.
func (e *Error) PublicMessage() string {
	if e == nil {
		return ""
	}
	if e.Status >= http.StatusInternalServerError {
		if e.Status == http.StatusServiceUnavailable {
			return "temporarily unavailable, retry"
		}
		return "internal server error"
	}
	var aggErr *domainagg.Error
	if errors.As(e.Err, &aggErr) && aggErr.Message != "" {
		return aggErr.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

// As extracts an *Error from err, wrapping unknown errors as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// IsCode reports whether err carries the given api error code.
func IsCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// FromAggregate maps aggregate error codes onto api errors. Internal and
// retryable failures keep the cause for logging but surface a generic message.
func FromAggregate(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeValidation:
		return New(http.StatusBadRequest, CodeValidation, err)
	case domainagg.CodeNotFound:
		return New(http.StatusNotFound, CodeNotFound, err)
	case domainagg.CodeConflict, domainagg.CodeInvariantViolation:
		return New(http.StatusConflict, CodeConflict, err)
	case domainagg.CodePreconditionFailed:
		return New(http.StatusConflict, CodePreconditionFailed, err)
	case domainagg.CodeRetryable:
		return New(http.StatusServiceUnavailable, CodeRetryable, err)
	default:
		return Internal(err)
	}
}
