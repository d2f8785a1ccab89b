package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"

	ErrCodeDuplicateName       ErrorCode = "DUPLICATE_NAME"
	ErrCodeProtectedRoleRename ErrorCode = "PROTECTED_ROLE_RENAME"
	ErrCodeProtectedRoleUpdate ErrorCode = "PROTECTED_ROLE_UPDATE"
	ErrCodeProtectedRoleDelete ErrorCode = "PROTECTED_ROLE_DELETE"
	ErrCodeRoleInUse           ErrorCode = "ROLE_IN_USE"
	ErrCodeUnknownRole         ErrorCode = "UNKNOWN_ROLE"
	ErrCodeUnknownPermission   ErrorCode = "UNKNOWN_PERMISSION"
	ErrCodeAdminRoleExists     ErrorCode = "ADMIN_ROLE_EXISTS"
	ErrCodeAdminRoleMissing    ErrorCode = "ADMIN_ROLE_MISSING"
	ErrCodeProtectedAdminRole  ErrorCode = "PROTECTED_ADMIN_ROLE"

	ErrCodeRoleNotFound       ErrorCode = "ROLE_NOT_FOUND"
	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodePermissionNotFound ErrorCode = "PERMISSION_NOT_FOUND"
	ErrCodeDuplicateEmail     ErrorCode = "DUPLICATE_EMAIL"

	ErrCodeAuthorizationDenied ErrorCode = "AUTHORIZATION_DENIED"
	ErrCodeUnauthenticated     ErrorCode = "UNAUTHENTICATED"
	ErrCodeInvalidCredentials  ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive        ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken        ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired        ErrorCode = "TOKEN_EXPIRED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// GetDetailedMessage joins every field message of a validation error.
func (e *AppError) GetDetailedMessage() string {
	if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
		messages := make([]string, len(validationErrors.Errors))
		for i, err := range validationErrors.Errors {
			messages[i] = err.Message
		}
		return strings.Join(messages, "; ")
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on error code so sentinel values work with errors.Is after
// WithDetails or WithCause produced a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func (e *AppError) WithMessage(message string) *AppError {
	cp := *e
	cp.Message = message
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationFieldErrors(ValidationError{Field: field, Message: message, Code: string(code)})
}

func NewValidationFieldErrors(fieldErrors ...ValidationError) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    ValidationErrors{Errors: fieldErrors},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// Invariant violations are reported as 400 so clients treat them like bad input.
var (
	ErrDuplicateName       = NewValidationError("role name already exists", ErrCodeDuplicateName)
	ErrProtectedRoleRename = NewValidationError("the Admin role cannot be renamed", ErrCodeProtectedRoleRename)
	ErrProtectedRoleUpdate = NewValidationError("the Admin role cannot lose its admin flag", ErrCodeProtectedRoleUpdate)
	ErrProtectedRoleDelete = NewValidationError("admin and default roles cannot be deleted", ErrCodeProtectedRoleDelete)
	ErrRoleInUse           = NewValidationError("role is still assigned to users", ErrCodeRoleInUse)
	ErrUnknownRole         = NewValidationError("one or more roles do not exist", ErrCodeUnknownRole)
	ErrUnknownPermission   = NewValidationError("one or more permission codes are not in the catalog", ErrCodeUnknownPermission)
	ErrAdminRoleExists     = NewValidationError("another role already carries the admin flag", ErrCodeAdminRoleExists)
	ErrProtectedAdminRole  = NewValidationError("the Admin role cannot be removed from the system administrator", ErrCodeProtectedAdminRole)
	ErrDuplicateEmail      = NewValidationError("email already registered", ErrCodeDuplicateEmail)

	ErrRoleNotFound       = NewNotFoundError("role not found", ErrCodeRoleNotFound)
	ErrUserNotFound       = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrPermissionNotFound = NewNotFoundError("permission not found", ErrCodePermissionNotFound)

	ErrAdminRoleMissing = &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeAdminRoleMissing,
		Message:    "Admin role is not configured",
		StatusCode: http.StatusInternalServerError,
	}

	ErrAuthorizationDenied = NewForbiddenError("you do not have permission to perform this action", ErrCodeAuthorizationDenied)
	ErrUnauthenticated     = NewUnauthorizedError("authentication required", ErrCodeUnauthenticated)
	ErrInvalidCredentials  = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive        = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken        = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired        = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// ErrorResponse is the envelope written for every rejected request.
type ErrorResponse struct {
	Msg     string      `json:"msg"`
	Code    ErrorCode   `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func (e *AppError) ToHTTPResponse() (int, ErrorResponse) {
	status := e.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	msg := e.GetDetailedMessage()
	if status >= http.StatusInternalServerError {
		msg = e.Message
	}
	return status, ErrorResponse{Msg: msg, Code: e.Code, Details: e.Details}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
