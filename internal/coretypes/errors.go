package coretypes

import (
	"errors"
	"fmt"
)

// ErrorCode is a namespaced error code for core PromptShield errors.
type ErrorCode string

// Transport error codes.
const (
	TRANSPORT_TIMEOUT        ErrorCode = "TRANSPORT_TIMEOUT"
	TRANSPORT_STATUS         ErrorCode = "TRANSPORT_STATUS"
	TRANSPORT_RENDER_FAILED  ErrorCode = "TRANSPORT_RENDER_FAILED"
	TRANSPORT_EXTRACT_FAILED ErrorCode = "TRANSPORT_EXTRACT_FAILED"
)

// Adapter/probe error codes.
const (
	ADAPTER_NOT_FOUND ErrorCode = "ADAPTER_NOT_FOUND"
	ADAPTER_EXISTS    ErrorCode = "ADAPTER_EXISTS"
	ADAPTER_PANIC     ErrorCode = "ADAPTER_PANIC"
)

// Normalization error codes.
const (
	NORMALIZE_INVALID_SEVERITY ErrorCode = "NORMALIZE_INVALID_SEVERITY"
	NORMALIZE_INVALID_CONF     ErrorCode = "NORMALIZE_INVALID_CONFIDENCE"
)

// Execution error codes.
const (
	EXECUTION_NOT_PENDING  ErrorCode = "EXECUTION_NOT_PENDING"
	EXECUTION_NOT_RUNNING  ErrorCode = "EXECUTION_NOT_RUNNING"
	EXECUTION_TIMEOUT      ErrorCode = "EXECUTION_TIMEOUT"
	EXECUTION_CANCELLED    ErrorCode = "EXECUTION_CANCELLED"
)

// Embedding error codes.
const (
	EMBEDDING_SERVICE_UNAVAILABLE ErrorCode = "EMBEDDING_SERVICE_UNAVAILABLE"
	EMBEDDING_MALFORMED_RESPONSE  ErrorCode = "EMBEDDING_MALFORMED_RESPONSE"
)

// Baseline error codes.
const (
	BASELINE_NOT_FOUND ErrorCode = "BASELINE_NOT_FOUND"
	BASELINE_NOT_USABLE ErrorCode = "BASELINE_NOT_USABLE"
	BASELINE_SELF_REFERENCE ErrorCode = "BASELINE_SELF_REFERENCE"
)

// Drift error codes.
const (
	DRIFT_CHANNEL_FAILED ErrorCode = "DRIFT_CHANNEL_FAILED"
)

// Persistence error codes.
const (
	PERSISTENCE_WRITE_FAILED ErrorCode = "PERSISTENCE_WRITE_FAILED"
	PERSISTENCE_NOT_FOUND    ErrorCode = "PERSISTENCE_NOT_FOUND"
	PERSISTENCE_CAS_CONFLICT ErrorCode = "PERSISTENCE_CAS_CONFLICT"
)

// Configuration error codes.
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// CoreError represents a structured error with an error code, message, and
// optional cause. It supports error wrapping and carries a retryability hint.
type CoreError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning "[CODE] message" or
// "[CODE] message: cause" when a cause is present.
func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is/errors.As chains.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *CoreError with the same Code.
func (e *CoreError) Is(target error) bool {
	var coreErr *CoreError
	if errors.As(target, &coreErr) {
		return e.Code == coreErr.Code
	}
	return false
}

// NewError creates a non-retryable CoreError with the given code and message.
func NewError(code ErrorCode, message string) *CoreError {
	return &CoreError{Code: code, Message: message}
}

// NewRetryableError creates a retryable CoreError for transient failures
// (network timeouts, 5xx responses) that may succeed on retry.
func NewRetryableError(code ErrorCode, message string) *CoreError {
	return &CoreError{Code: code, Message: message, Retryable: true}
}

// WrapError creates a non-retryable CoreError wrapping an existing error.
func WrapError(code ErrorCode, message string, cause error) *CoreError {
	return &CoreError{Code: code, Message: message, Cause: cause}
}

// WrapRetryableError creates a retryable CoreError wrapping an existing error.
func WrapRetryableError(code ErrorCode, message string, cause error) *CoreError {
	return &CoreError{Code: code, Message: message, Retryable: true, Cause: cause}
}

// IsRetryable reports whether err carries a retryable CoreError anywhere in
// its chain.
func IsRetryable(err error) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Retryable
	}
	return false
}
