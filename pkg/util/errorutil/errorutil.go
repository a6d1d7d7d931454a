package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the core and the HTTP layer.
const (
	CodeValidation          = "VALIDATION_FAILED"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeConflict            = "CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeAlreadyClaimed      = "ALREADY_CLAIMED"
	CodeStaffOffDuty        = "STAFF_OFF_DUTY"
	CodePolicyNotFound      = "POLICY_NOT_FOUND"
	CodeRepositoryTimeout   = "REPOSITORY_TIMEOUT"
	CodeRepositoryDown      = "REPOSITORY_UNAVAILABLE"
	CodeVersionConflict     = "VERSION_CONFLICT"
	CodeReopenWindowExpired = "REOPEN_WINDOW_EXPIRED"
)

// Sentinels for errors.Is; DomainError.Is compares codes.
var (
	ErrNotFound            = &DomainError{Code: CodeNotFound}
	ErrInvalidTransition   = &DomainError{Code: CodeInvalidTransition}
	ErrAlreadyClaimed      = &DomainError{Code: CodeAlreadyClaimed}
	ErrStaffOffDuty        = &DomainError{Code: CodeStaffOffDuty}
	ErrPolicyNotFound      = &DomainError{Code: CodePolicyNotFound}
	ErrRepositoryTimeout   = &DomainError{Code: CodeRepositoryTimeout}
	ErrRepositoryDown      = &DomainError{Code: CodeRepositoryDown}
	ErrVersionConflict     = &DomainError{Code: CodeVersionConflict}
	ErrReopenWindowExpired = &DomainError{Code: CodeReopenWindowExpired}
	ErrValidation          = &DomainError{Code: CodeValidation}
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
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
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

// NewInvalidTransition reports an event that the current state does not accept.
func NewInvalidTransition(current, attempted string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("cannot %s ticket in state %s", attempted, current),
		http.StatusConflict,
		map[string]any{"current_state": current, "attempted": attempted})
}

func NewAlreadyClaimed(ticketID int64, staffID string) error {
	return NewDomainError(CodeAlreadyClaimed, "ticket already claimed", http.StatusConflict,
		map[string]any{"ticket_id": ticketID, "assigned_staff": staffID})
}

func NewStaffOffDuty(staffID string) error {
	return NewDomainError(CodeStaffOffDuty, "staff member is off duty", http.StatusConflict,
		map[string]any{"staff_id": staffID})
}

func NewPolicyNotFound(categoryID string) error {
	return NewDomainError(CodePolicyNotFound, "no SLA policy configured for category", http.StatusNotFound,
		map[string]any{"category_id": categoryID})
}

func NewReopenWindowExpired(ticketID int64) error {
	return NewDomainError(CodeReopenWindowExpired, "reopen window has expired", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

func NewVersionConflict(ticketID int64) error {
	return NewDomainError(CodeVersionConflict, "ticket was modified concurrently", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

func NewRepositoryTimeout(err error) error {
	return &DomainError{
		Code:       CodeRepositoryTimeout,
		Message:    "repository call timed out",
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

func NewRepositoryUnavailable(err error) error {
	return &DomainError{
		Code:       CodeRepositoryDown,
		Message:    "repository unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
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
		if domainErr.HTTPStatus == 0 {
			copied := *domainErr
			copied.HTTPStatus = http.StatusInternalServerError
			return &copied
		}
		return domainErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewRepositoryTimeout(err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}

// Code extracts the DomainError code, or "" for foreign errors.
func Code(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
