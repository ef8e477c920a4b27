package operation

import (
	"errors"
	"fmt"

	"stegoctl/internal/stego"
)

// ErrorType classifies operation failures.
type ErrorType string

const (
	// ErrorTypeInvalidRequest marks incomplete or incompatible requests.
	// Resolved locally; never reaches the network.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	// ErrorTypeQuotaExceeded marks anonymous quota denials. Local,
	// zero-side-effect.
	ErrorTypeQuotaExceeded ErrorType = "quota_exceeded"
	// ErrorTypeRead marks unreadable input files.
	ErrorTypeRead ErrorType = "read"
	// ErrorTypeDecode marks malformed binary payload text.
	ErrorTypeDecode ErrorType = "decode"
	// ErrorTypeRemote marks service-reported failures and non-success
	// transport statuses; the service message is carried verbatim.
	ErrorTypeRemote ErrorType = "remote"
	// ErrorTypeCancelled marks user-initiated aborts. Not treated as a
	// failure by quota or stats accounting.
	ErrorTypeCancelled ErrorType = "cancelled"
)

// OperationError is the typed outcome for every non-success terminal
// transition.
type OperationError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewInvalidRequestError creates an invalid-request error.
func NewInvalidRequestError(message string) *OperationError {
	return &OperationError{Type: ErrorTypeInvalidRequest, Message: message}
}

// NewQuotaExceededError creates a quota-exceeded error for the given kind.
func NewQuotaExceededError(kind stego.Kind, limit int) *OperationError {
	return &OperationError{
		Type:    ErrorTypeQuotaExceeded,
		Message: fmt.Sprintf("anonymous %s limit of %d reached, sign in to continue", kind, limit),
	}
}

// NewReadError creates a read error wrapping the underlying cause.
func NewReadError(message string, cause error) *OperationError {
	return &OperationError{Type: ErrorTypeRead, Message: message, Cause: cause}
}

// NewDecodeError creates a decode error wrapping the underlying cause.
func NewDecodeError(cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeDecode,
		Message: "failed to decode service payload",
		Cause:   cause,
	}
}

// NewRemoteError creates a remote error carrying the service-supplied
// message verbatim.
func NewRemoteError(message string, cause error) *OperationError {
	return &OperationError{Type: ErrorTypeRemote, Message: message, Cause: cause}
}

// NewCancellationError creates a cancellation outcome.
func NewCancellationError() *OperationError {
	return &OperationError{Type: ErrorTypeCancelled, Message: "operation was cancelled"}
}

// GetErrorType returns the classification of err, or the zero value when
// err is not an OperationError.
func GetErrorType(err error) ErrorType {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	return ""
}

// IsCancelled reports whether err represents a user-initiated abort.
func IsCancelled(err error) bool {
	return GetErrorType(err) == ErrorTypeCancelled
}

// IsQuotaExceeded reports whether err is an anonymous quota denial.
func IsQuotaExceeded(err error) bool {
	return GetErrorType(err) == ErrorTypeQuotaExceeded
}

// IsInvalidRequest reports whether err is a local validation failure.
func IsInvalidRequest(err error) bool {
	return GetErrorType(err) == ErrorTypeInvalidRequest
}
