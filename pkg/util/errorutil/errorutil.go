package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to admin tooling. Each one is rendered verbatim so the
// caller can branch on it.
const (
	CodeInvalidEdge            = "INVALID_EDGE"
	CodeMissingGuardData       = "MISSING_GUARD_DATA"
	CodeActorNotAuthorized     = "ACTOR_NOT_AUTHORIZED"
	CodeInvalidDeadline        = "INVALID_DEADLINE"
	CodeDuplicateActiveBan     = "DUPLICATE_ACTIVE_BAN"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeRollbackFailed         = "ROLLBACK_FAILED"
	CodeNotFound               = "NOT_FOUND"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeConflict               = "CONFLICT"
	CodeInternal               = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInvalidEdge(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidEdge, message, http.StatusConflict, details)
}

func NewMissingGuardData(message string, details map[string]any) error {
	return NewDomainError(CodeMissingGuardData, message, http.StatusUnprocessableEntity, details)
}

func NewActorNotAuthorized(message string, details map[string]any) error {
	return NewDomainError(CodeActorNotAuthorized, message, http.StatusForbidden, details)
}

func NewInvalidDeadline(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidDeadline, message, http.StatusUnprocessableEntity, details)
}

func NewDuplicateActiveBan(details map[string]any) error {
	return NewDomainError(CodeDuplicateActiveBan, "player already has an active ban for this cause", http.StatusConflict, details)
}

func NewConcurrentModification(resource string, err error) error {
	return &DomainError{
		Code:       CodeConcurrentModification,
		Message:    fmt.Sprintf("%s was modified concurrently", resource),
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func NewRollbackFailed(message string, details map[string]any) error {
	return NewDomainError(CodeRollbackFailed, message, http.StatusUnprocessableEntity, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// CodeOf returns the domain code carried by err, or "" when err is not a DomainError.
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// Is reports whether err carries the given domain code.
func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// MapError converts err to a DomainError, keeping nil as nil.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
