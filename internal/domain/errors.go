package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")
	// ErrVersionConflict indicates a compare-and-swap write lost against a concurrent writer.
	ErrVersionConflict = errors.New("version conflict")
)

// Error codes returned to clients. They are stable and safe for programmatic handling.
const (
	EMETHOD        = "method_not_registered"
	EREQUEST       = "request_error"
	ECONFIGURED    = "bad_configured"
	EPERMISSIONS   = "bad_permissions"
	ENOTFOUND      = "not_found"
	EPRODUCT       = "invalid_product"
	EITEM          = "item_not_found"
	ECOUPON        = "invalid_coupon"
	EEMPTYCART     = "empty_cart"
	EMISSINGADDR   = "missing_address"
	EINCOMPLETE    = "incomplete_address"
	EPAYMENT       = "payment_error"
	ECONFLICT      = "cart_conflict"
	ECREDENTIALS   = "invalid_credentials"
	EINTERNAL      = "internal_error"
	EALREADYEXISTS = "already_exists"
)

var statusByCode = map[string]int{
	EMETHOD:        http.StatusMethodNotAllowed,
	EREQUEST:       http.StatusBadRequest,
	ECONFIGURED:    http.StatusInternalServerError,
	EPERMISSIONS:   http.StatusForbidden,
	ENOTFOUND:      http.StatusNotFound,
	EPRODUCT:       http.StatusBadRequest,
	EITEM:          http.StatusNotFound,
	ECOUPON:        http.StatusBadRequest,
	EEMPTYCART:     http.StatusBadRequest,
	EMISSINGADDR:   http.StatusBadRequest,
	EINCOMPLETE:    http.StatusBadRequest,
	EPAYMENT:       http.StatusInternalServerError,
	ECONFLICT:      http.StatusConflict,
	ECREDENTIALS:   http.StatusUnauthorized,
	EALREADYEXISTS: http.StatusConflict,
	EINTERNAL:      http.StatusInternalServerError,
}

// Error is an application error carrying a stable code and a user-facing message.
type Error struct {
	Code    string
	Message string
	// Op is the operation that failed, e.g. "order.place". Logged, never rendered.
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a domain error with a formatted message.
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps err with a code and message. Returns nil if err is nil.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// Invalid creates a request_error.
func Invalid(op, message string) error {
	return &Error{Code: EREQUEST, Op: op, Message: message}
}

// NotFound creates a not_found error for a resource.
func NotFound(op, resource, identifier string) error {
	return &Error{Code: ENOTFOUND, Op: op, Message: fmt.Sprintf("%s not found: %s", resource, identifier)}
}

// Forbidden creates a bad_permissions error.
func Forbidden(op, message string) error {
	return &Error{Code: EPERMISSIONS, Op: op, Message: message}
}

// Misconfigured creates a bad_configured error.
func Misconfigured(op, message string) error {
	return &Error{Code: ECONFIGURED, Op: op, Message: message}
}

// Internal wraps an unexpected failure. The message shown to clients is generic.
func Internal(err error, op, message string) error {
	return &Error{Code: EINTERNAL, Op: op, Message: message, Err: err}
}

// ErrorCode extracts the code from err. Non-domain errors are internal.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, ErrVersionConflict) {
		return ECONFLICT
	}
	return EINTERNAL
}

// ErrorMessage extracts a client-safe message from err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Message
	}
	if errors.Is(err, ErrVersionConflict) {
		return "The cart was modified by another request. Please retry."
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp extracts the failing operation for logging.
func ErrorOp(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// ErrorStatus maps err to its HTTP status.
func ErrorStatus(err error) int {
	if status, ok := statusByCode[ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err carries code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}
