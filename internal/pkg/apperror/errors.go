package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound               ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized           ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden              ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest             ErrorCode = "BAD_REQUEST"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation             ErrorCode = "VALIDATION_ERROR"
	ErrCodeIneligibleRole         ErrorCode = "INELIGIBLE_ROLE"
	ErrCodeQuorumIncomplete       ErrorCode = "QUORUM_INCOMPLETE"
	ErrCodeCaseClosed             ErrorCode = "CASE_CLOSED"
	ErrCodeCaseNotCritical        ErrorCode = "CASE_NOT_CRITICAL"
	ErrCodePersistenceConflict    ErrorCode = "PERSISTENCE_CONFLICT"
	ErrCodePersistenceUnavailable ErrorCode = "PERSISTENCE_UNAVAILABLE"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду, чтобы sentinel-значения работали с errors.Is
// и после Wrap/WithDetails.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// WithDetails возвращает копию ошибки с дополнительными полями для клиента.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeIneligibleRole:
		return http.StatusUnprocessableEntity
	case ErrCodeQuorumIncomplete, ErrCodeCaseClosed, ErrCodeCaseNotCritical, ErrCodePersistenceConflict:
		return http.StatusConflict
	case ErrCodePersistenceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	return CodeOf(err) == ErrCodeForbidden
}

func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodePersistenceConflict
}

func IsQuorumIncomplete(err error) bool {
	return CodeOf(err) == ErrCodeQuorumIncomplete
}

func IsIneligibleRole(err error) bool {
	return CodeOf(err) == ErrCodeIneligibleRole
}

var (
	ErrCaseNotFound       = New(ErrCodeNotFound, "feedback case not found")
	ErrCaseClosed         = New(ErrCodeCaseClosed, "feedback case is already closed")
	ErrCaseNotCritical    = New(ErrCodeCaseNotCritical, "only critical feedback requires approval")
	ErrVersionConflict    = New(ErrCodePersistenceConflict, "feedback case was modified concurrently, reload and retry")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "authorization required")
	ErrForbidden          = New(ErrCodeForbidden, "insufficient permissions")
	ErrStorageUnavailable = New(ErrCodePersistenceUnavailable, "storage is temporarily unavailable")
)
