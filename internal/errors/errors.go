// Package errors provides custom error types for the Costwise API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
//
// Tenant isolation note: not-found sentinels are shared between "does not
// exist" and "exists in another organization" so responses never reveal
// whether a foreign ID is real.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, optional structured details,
// and optional internal error.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	StatusCode int            `json:"-"`
	Internal   error          `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// WithDetails creates a new AppError carrying structured details,
// e.g. the locked_until timestamp on an account lockout.
func WithDetails(sentinel *AppError, details map[string]any) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    details,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
	ErrAccountDeactivated = &AppError{Code: "ACCOUNT_DEACTIVATED", Message: "Account has been deactivated", StatusCode: http.StatusForbidden}
)

// Tenancy errors.
var (
	ErrOrganizationRequired = &AppError{Code: "ORGANIZATION_REQUIRED", Message: "Organization context required. Please select an organization", StatusCode: http.StatusForbidden}
	ErrOrgForbidden         = &AppError{Code: "ORG_FORBIDDEN", Message: "Insufficient permissions in this organization", StatusCode: http.StatusForbidden}
	ErrOrganizationNotFound = &AppError{Code: "ORGANIZATION_NOT_FOUND", Message: "Organization not found", StatusCode: http.StatusNotFound}
	ErrMemberNotFound       = &AppError{Code: "MEMBER_NOT_FOUND", Message: "Organization member not found", StatusCode: http.StatusNotFound}
	ErrAlreadyMember        = &AppError{Code: "ALREADY_MEMBER", Message: "User is already a member of this organization", StatusCode: http.StatusConflict}
	ErrLastOwner            = &AppError{Code: "LAST_OWNER", Message: "Cannot remove or demote the last owner of the organization", StatusCode: http.StatusConflict}
)

// General errors.
var (
	ErrInvalidInput     = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrValidationFailed = &AppError{Code: "VALIDATION_FAILED", Message: "Validation failed", StatusCode: http.StatusBadRequest}
	ErrNotFound         = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer   = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
	ErrSelfDelete     = &AppError{Code: "SELF_DELETE", Message: "Cannot delete your own account", StatusCode: http.StatusConflict}
)

// Shop errors.
var (
	ErrShopNotFound = &AppError{Code: "SHOP_NOT_FOUND", Message: "Shop not found or doesn't belong to your organization", StatusCode: http.StatusNotFound}
	ErrShopInUse    = &AppError{Code: "SHOP_IN_USE", Message: "Shop has cost entries or categories and cannot be deleted", StatusCode: http.StatusConflict}
)

// Category & cost item errors.
var (
	ErrCategoryNotFound  = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrDuplicateCategory = &AppError{Code: "DUPLICATE_CATEGORY", Message: "A category with this name already exists in the organization", StatusCode: http.StatusConflict}
	ErrCostItemNotFound  = &AppError{Code: "COST_ITEM_NOT_FOUND", Message: "Cost item not found", StatusCode: http.StatusNotFound}
)
