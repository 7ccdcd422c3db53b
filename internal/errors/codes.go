package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for service operations.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the room or user does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeForbidden indicates the caller is authenticated but is not a
	// member of the room, or the ownership does not match.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrCodeAlreadyMember indicates the (room, user) participant fact
	// already exists. Join absorbs this into success.
	ErrCodeAlreadyMember ErrorCode = "ALREADY_MEMBER"
	// ErrCodeNotMember indicates a leave or member-only read by a user who
	// is not a participant.
	ErrCodeNotMember ErrorCode = "NOT_MEMBER"
	// ErrCodeConflict indicates a uniqueness violation on creation.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeStoreFailure indicates the store of record failed; fatal for
	// the current operation, propagated verbatim, never retried here.
	ErrCodeStoreFailure ErrorCode = "STORE_FAILURE"
)

// ServiceError represents a structured error for service operations.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// GetCode returns the error code.
func (e *ServiceError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeNotFound, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeForbidden, Message: msg}
}

// AlreadyMember creates an already-member error.
func AlreadyMember(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeAlreadyMember, Message: msg}
}

// NotMember creates a not-member error.
func NotMember(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeNotMember, Message: msg}
}

// Conflict creates a conflict error.
func Conflict(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeConflict, Message: msg}
}

// StoreFailure creates a store failure error wrapping the store's error.
func StoreFailure(msg string, cause error) *ServiceError {
	return &ServiceError{Code: ErrCodeStoreFailure, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if svcErr, ok := err.(*ServiceError); ok {
		return svcErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a ServiceError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if svcErr, ok := err.(*ServiceError); ok {
		return svcErr.Code
	}
	return defaultCode
}
