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
	ErrorTypeValidation       ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND"
	ErrorTypeAuth             ErrorType = "AUTH_ERROR"
	ErrorTypeForbidden        ErrorType = "FORBIDDEN"
	ErrorTypeConflict         ErrorType = "CONFLICT"
	ErrorTypeInvalidOperation ErrorType = "INVALID_OPERATION"
	ErrorTypeInternal         ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal         ErrorType = "EXTERNAL_FAILURE"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidUsername  ErrorCode = "INVALID_USERNAME"
	ErrCodeInvalidPassword  ErrorCode = "INVALID_PASSWORD"
	ErrCodeInvalidURL       ErrorCode = "INVALID_URL"
	ErrCodeUnknownRole      ErrorCode = "UNKNOWN_ROLE"
	ErrCodeUnknownEvent     ErrorCode = "UNKNOWN_EVENT"
	ErrCodeInvalidIdentity  ErrorCode = "INVALID_IDENTITY"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	ErrCodeInvalidTicket      ErrorCode = "INVALID_TICKET"

	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeRoleEscalation   ErrorCode = "ROLE_ESCALATION"
	ErrCodeSelfRoleChange   ErrorCode = "SELF_ROLE_CHANGE"
	ErrCodeUsernameTaken    ErrorCode = "USERNAME_TAKEN"
	ErrCodeIdentityTaken    ErrorCode = "IDENTITY_TAKEN"
	ErrCodeOperatorNotFound ErrorCode = "OPERATOR_NOT_FOUND"
	ErrCodeInviteNotFound   ErrorCode = "INVITE_NOT_FOUND"
	ErrCodeInvalidInvite    ErrorCode = "INVALID_INVITE"
	ErrCodeSelfDelete       ErrorCode = "SELF_DELETE"
	ErrCodeSelfDeactivate   ErrorCode = "SELF_DEACTIVATE"

	ErrCodeAlreadyRunning      ErrorCode = "ALREADY_RUNNING"
	ErrCodeNotRunning          ErrorCode = "NOT_RUNNING"
	ErrCodeOperationInProgress ErrorCode = "OPERATION_IN_PROGRESS"
	ErrCodeLaunchFailed        ErrorCode = "LAUNCH_FAILED"
	ErrCodeTerminationFailed   ErrorCode = "TERMINATION_FAILED"
	ErrCodeRestartTimeout      ErrorCode = "RESTART_TIMEOUT"
	ErrCodeConfigWriteFailed   ErrorCode = "CONFIG_WRITE_FAILED"

	ErrCodeNoSaveData          ErrorCode = "NO_SAVE_DATA"
	ErrCodeArchiveFailed       ErrorCode = "ARCHIVE_FAILED"
	ErrCodeExtractFailed       ErrorCode = "EXTRACT_FAILED"
	ErrCodeServerMustBeStopped ErrorCode = "SERVER_MUST_BE_STOPPED"
	ErrCodeBackupNotFound      ErrorCode = "BACKUP_NOT_FOUND"
	ErrCodeBackupFileMissing   ErrorCode = "BACKUP_FILE_MISSING"

	ErrCodeWebhookNotFound ErrorCode = "WEBHOOK_NOT_FOUND"
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

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so wrapped copies of a
// sentinel still satisfy errors.Is against the sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap returns a copy of e with cause attached. Package level sentinels are
// shared, so they are never mutated in place.
func (e *AppError) Wrap(cause error) *AppError {
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
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
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

func NewAuthError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeAuth,
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

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInvalidOperationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidOperation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewExternalError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrInvalidCredentials = NewAuthError("Invalid username or password", ErrCodeInvalidCredentials)
	ErrUnauthenticated    = NewAuthError("Authentication required", ErrCodeUnauthenticated)
	ErrInvalidTicket      = NewAuthError("Invalid or expired stream ticket", ErrCodeInvalidTicket)

	ErrForbidden        = NewForbiddenError("Insufficient permissions", ErrCodeForbidden)
	ErrRoleEscalation   = NewForbiddenError("Cannot assign or act on a role at or above your own", ErrCodeRoleEscalation)
	ErrSelfRoleChange   = NewForbiddenError("Cannot change your own role", ErrCodeSelfRoleChange)
	ErrUsernameTaken    = NewConflictError("Username already exists", ErrCodeUsernameTaken)
	ErrIdentityTaken    = NewConflictError("This identity is already linked to another operator", ErrCodeIdentityTaken)
	ErrOperatorNotFound = NewNotFoundError("Operator not found", ErrCodeOperatorNotFound)
	ErrInviteNotFound   = NewNotFoundError("Invite not found", ErrCodeInviteNotFound)
	ErrInvalidInvite    = NewInvalidOperationError("Invalid, expired or exhausted invite code", ErrCodeInvalidInvite)
	ErrSelfDelete       = NewInvalidOperationError("Cannot delete your own account", ErrCodeSelfDelete)
	ErrSelfDeactivate   = NewInvalidOperationError("Cannot deactivate your own account", ErrCodeSelfDeactivate)
	ErrUnknownRole      = NewValidationError("Unknown role", ErrCodeUnknownRole)

	ErrAlreadyRunning      = NewInvalidOperationError("Server is already running", ErrCodeAlreadyRunning)
	ErrNotRunning          = NewInvalidOperationError("Server is not running", ErrCodeNotRunning)
	ErrOperationInProgress = &AppError{
		Type:       ErrorTypeInvalidOperation,
		Code:       ErrCodeOperationInProgress,
		Message:    "Another server command is in progress",
		StatusCode: http.StatusConflict,
	}
	ErrLaunchFailed      = NewExternalError("Failed to launch server process", ErrCodeLaunchFailed)
	ErrTerminationFailed = NewExternalError("Failed to stop server process", ErrCodeTerminationFailed)
	ErrRestartTimeout    = NewExternalError("Server did not stop in time", ErrCodeRestartTimeout)
	ErrConfigWriteFailed = NewExternalError("Failed to write server configuration", ErrCodeConfigWriteFailed)

	ErrNoSaveData          = NewInvalidOperationError("No save data found", ErrCodeNoSaveData)
	ErrArchiveFailed       = NewExternalError("Failed to create backup archive", ErrCodeArchiveFailed)
	ErrExtractFailed       = NewExternalError("Failed to extract backup archive", ErrCodeExtractFailed)
	ErrServerMustBeStopped = NewInvalidOperationError("Stop the server before restoring a backup", ErrCodeServerMustBeStopped)
	ErrBackupNotFound      = NewNotFoundError("Backup not found", ErrCodeBackupNotFound)
	ErrBackupFileMissing   = NewNotFoundError("Backup file is missing", ErrCodeBackupFileMissing)

	ErrWebhookNotFound = NewNotFoundError("Webhook not found", ErrCodeWebhookNotFound)
)

// IsAppError unwraps err until it finds an AppError.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
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
