package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound              = errors.New("resource not found")
	ErrBadRequest            = errors.New("bad request")
	ErrConflict              = errors.New("resource conflict")
	ErrInternal              = errors.New("internal server error")
	ErrValidation            = errors.New("validation error")
	ErrAuthentication        = errors.New("authentication failed")
	ErrIdentityNotFound      = errors.New("identity has no profile")
	ErrTenantMismatch        = errors.New("cross-tenant access")
	ErrBranchScope           = errors.New("out-of-branch access")
	ErrRolePolicyDenied      = errors.New("operation not permitted for role")
	ErrOwnershipUnrepairable = errors.New("ownership linkage unrepairable")
	ErrConcurrencyConflict   = errors.New("concurrent modification")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenInvalid          = errors.New("invalid token")

	ErrPasswordChangeRequired = errors.New("password change required")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// Authentication is returned when a credential is bad or expired.
// The caller must re-authenticate.
func Authentication(message string) *AppError {
	return &AppError{
		Err:        ErrAuthentication,
		Code:       "AUTHENTICATION_FAILED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// IdentityNotFound is returned when a credential is valid but no profile row
// exists for it. Surfaced distinctly so callers can route the account to
// provisioning or support instead of a hard denial.
func IdentityNotFound() *AppError {
	return &AppError{
		Err:        ErrIdentityNotFound,
		Code:       "IDENTITY_NOT_FOUND",
		Message:    "no profile exists for this identity",
		StatusCode: http.StatusNotFound,
	}
}

// TenantMismatch is returned on any cross-tenant access attempt.
// Callers should log it as a potential security event.
func TenantMismatch() *AppError {
	return &AppError{
		Err:        ErrTenantMismatch,
		Code:       "TENANT_MISMATCH",
		Message:    "resource belongs to another business",
		StatusCode: http.StatusForbidden,
	}
}

// BranchScope is returned for in-tenant access outside the actor's branch.
func BranchScope(message string) *AppError {
	return &AppError{
		Err:        ErrBranchScope,
		Code:       "BRANCH_SCOPE",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// RolePolicyDenied is returned when the actor's role does not permit the
// operation. requiredRole names the role the user would need.
func RolePolicyDenied(operation, requiredRole string) *AppError {
	return &AppError{
		Err:        ErrRolePolicyDenied,
		Code:       "ROLE_POLICY_DENIED",
		Message:    fmt.Sprintf("%s requires the %s role", operation, requiredRole),
		StatusCode: http.StatusForbidden,
	}
}

// OwnershipUnrepairable is returned when a business's owner linkage cannot be
// restored automatically and needs operator action. Access fails closed; no
// fallback data is fabricated.
func OwnershipUnrepairable(businessID string, candidates int) *AppError {
	return &AppError{
		Err:        ErrOwnershipUnrepairable,
		Code:       "OWNERSHIP_UNREPAIRABLE",
		Message:    fmt.Sprintf("business %s has %d owner candidates, manual intervention required", businessID, candidates),
		StatusCode: http.StatusConflict,
	}
}

// ConcurrencyConflict is returned when an optimistic-lock check fails.
// The caller must retry with fresh data.
func ConcurrencyConflict(resource string) *AppError {
	return &AppError{
		Err:        ErrConcurrencyConflict,
		Code:       "CONCURRENCY_CONFLICT",
		Message:    fmt.Sprintf("%s was modified concurrently, retry with fresh data", resource),
		StatusCode: http.StatusConflict,
	}
}

func InvalidCredentials() *AppError {
	return &AppError{
		Err:        ErrAuthentication,
		Code:       "INVALID_CREDENTIALS",
		Message:    "invalid email or password",
		StatusCode: http.StatusUnauthorized,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Err:        ErrTokenExpired,
		Code:       "TOKEN_EXPIRED",
		Message:    "token has expired",
		StatusCode: http.StatusUnauthorized,
	}
}

// PasswordChangeRequired is returned while an actor still holds a
// provisional password and tries to use anything beyond the auth surface.
func PasswordChangeRequired() *AppError {
	return &AppError{
		Err:        ErrPasswordChangeRequired,
		Code:       "PASSWORD_CHANGE_REQUIRED",
		Message:    "change the provisional password before performing other operations",
		StatusCode: http.StatusForbidden,
	}
}

func TokenInvalid() *AppError {
	return &AppError{
		Err:        ErrTokenInvalid,
		Code:       "TOKEN_INVALID",
		Message:    "invalid token",
		StatusCode: http.StatusUnauthorized,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
