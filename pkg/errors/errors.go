package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code, so clones and wraps of a
// predefined error satisfy errors.Is against it.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// WrapAs wraps err using the code and status of a predefined error.
func WrapAs(base *Error, err error, message string) *Error {
	if message == "" {
		message = base.Message
	}
	return Wrap(err, base.Code, base.Status, message)
}

// Predefined errors for common scenarios.
var (
	ErrNotFound          = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden         = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized      = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict          = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation        = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal          = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrRecordLocked      = New("RECORD_LOCKED", http.StatusConflict, "record is being modified, retry shortly")
	ErrInvalidRecord     = New("INVALID_RECORD", http.StatusUnprocessableEntity, "record cannot be synchronised")
	ErrOAuthExchange     = New("OAUTH_EXCHANGE_FAILED", http.StatusBadGateway, "failed to exchange authorization code")
	ErrUnsupportedFormat = New("UNSUPPORTED_FORMAT", http.StatusBadRequest, "unsupported export format")
	ErrInvalidOAuthState = New("INVALID_OAUTH_STATE", http.StatusBadRequest, "invalid or expired oauth state")
	ErrInvalidTimezone   = New("INVALID_TIMEZONE", http.StatusBadRequest, "unknown IANA timezone")
	ErrCacheMiss         = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Calendar synchronisation errors.
var (
	ErrCalendarNotConnected = New("CALENDAR_NOT_CONNECTED", http.StatusBadRequest, "no Google Calendar access, please sign in with Google")
	ErrRemoteNotFound       = New("CALENDAR_EVENT_NOT_FOUND", http.StatusNotFound, "calendar event not found")
	ErrRemoteCalendar       = New("CALENDAR_REMOTE_ERROR", http.StatusBadGateway, "calendar service request failed")
	ErrLinkConflict         = New("CALENDAR_LINK_CONFLICT", http.StatusConflict, "calendar link changed concurrently")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
