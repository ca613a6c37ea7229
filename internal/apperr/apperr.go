package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Code is a stable machine-readable error identifier for client branching.
type Code string

// Code constants define the wire-level error taxonomy.
const (
	// CodeAuthRequired indicates a missing or malformed bearer token.
	CodeAuthRequired Code = "auth_required"
	// CodeInvalidToken indicates a token that failed verification.
	CodeInvalidToken Code = "invalid_token"
	// CodePermissionDenied indicates an insufficient role.
	CodePermissionDenied Code = "permission_denied"
	// CodeValidation indicates missing or malformed input.
	CodeValidation Code = "validation"
	// CodeNotFound indicates a missing entity.
	CodeNotFound Code = "not_found"
	// CodeDuplicate indicates a unique-constraint violation.
	CodeDuplicate Code = "duplicate"
	// CodeRateLimited indicates an exhausted request quota.
	CodeRateLimited Code = "rate_limited"
	// CodeInternal indicates an unexpected failure.
	CodeInternal Code = "internal"
)

// Error is a typed API failure carrying an HTTP status and wire code.
type Error struct {
	Status  int    // HTTP status to respond with.
	Code    Code   // Stable machine-readable code.
	Message string // Human-readable message.
	Details any    // Optional structured details (per-field problems etc).
	Err     error  // Wrapped cause, not exposed on the wire.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy carrying structured details.
func (e *Error) WithDetails(details any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// AuthRequired builds a 401 for missing/malformed credentials.
func AuthRequired(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeAuthRequired, Message: message}
}

// InvalidToken builds a 401 for a token that failed verification.
func InvalidToken(cause error) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeInvalidToken, Message: "invalid or expired token", Err: cause}
}

// PermissionDenied builds a 403 for an insufficient role.
func PermissionDenied() *Error {
	return &Error{Status: http.StatusForbidden, Code: CodePermissionDenied, Message: "insufficient permissions"}
}

// Validation builds a 400 for bad input.
func Validation(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: message}
}

// NotFound builds a 404 for a missing entity.
func NotFound(resource string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: resource + " not found"}
}

// Duplicate builds a 409 for a unique-constraint violation.
func Duplicate(message string) *Error {
	return &Error{Status: http.StatusConflict, Code: CodeDuplicate, Message: message}
}

// RateLimited builds a 429 with a retry-after hint in seconds.
func RateLimited(retryAfterSeconds int) *Error {
	return &Error{
		Status:  http.StatusTooManyRequests,
		Code:    CodeRateLimited,
		Message: "rate limit exceeded",
		Details: gin.H{"retry_after_seconds": retryAfterSeconds},
	}
}

// Internal builds a 500 wrapping an unexpected cause.
func Internal(cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error", Err: cause}
}

// envelope is the uniform wire shape for all error responses.
type envelope struct {
	Error body `json:"error"`
}

type body struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Write maps any error to the uniform envelope and writes it. Errors that are
// not *Error default to internal/500 so raw store failures never reach the
// client unmapped.
func Write(c *gin.Context, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = Internal(err)
	}
	if apiErr.Status >= http.StatusInternalServerError && apiErr.Err != nil {
		log.WithError(apiErr.Err).Error("request failed")
	}
	c.JSON(apiErr.Status, envelope{Error: body{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}})
}

// Abort writes the envelope and stops middleware processing.
func Abort(c *gin.Context, err error) {
	Write(c, err)
	c.Abort()
}
