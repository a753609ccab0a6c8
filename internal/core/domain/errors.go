// Package domain defines the core domain models for RegMesh.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Error codes follow the format RM-{AREA}-{STATUS}{SEQ}.
type DomainError struct {
	Code    string // Error code (e.g., "RM-CONN-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true // Only check if it's a DomainError
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Load Balancing Errors (LOAD)
// ============================================================================

var (
	// ErrInvalidCount indicates a negative or otherwise unusable connection count.
	ErrInvalidCount = NewDomainError("RM-LOAD-4001", "invalid connection count")

	// ErrReloadCountTooLow indicates a cluster reload count below the cluster threshold.
	ErrReloadCountTooLow = NewDomainError("RM-LOAD-4002", "reload count below cluster threshold")

	// ErrInvalidFactor indicates a tolerance factor outside [0, 1).
	ErrInvalidFactor = NewDomainError("RM-LOAD-4003", "invalid tolerance factor")

	// ErrSelfMeasurement indicates the local node could not report its own load.
	ErrSelfMeasurement = NewDomainError("RM-LOAD-5001", "self load measurement failed")

	// ErrInsufficientData indicates no load samples were available.
	ErrInsufficientData = NewDomainError("RM-LOAD-5031", "insufficient load data")
)

// ============================================================================
// Connection Errors (CONN)
// ============================================================================

var (
	// ErrConnectionNotFound indicates the connection id is not registered locally.
	ErrConnectionNotFound = NewDomainError("RM-CONN-4040", "connection not found")

	// ErrConnectionConflict indicates the connection id is already registered.
	ErrConnectionConflict = NewDomainError("RM-CONN-4090", "connection id conflict")

	// ErrConnectionLimit indicates the node reached its max client count.
	ErrConnectionLimit = NewDomainError("RM-CONN-4290", "connection limit reached")
)

// ============================================================================
// Naming Errors (NAME)
// ============================================================================

var (
	// ErrMalformedStatuses indicates a checksum report could not be parsed at all.
	ErrMalformedStatuses = NewDomainError("RM-NAME-4001", "malformed checksum statuses")

	// ErrUnknownMember indicates a checksum report from an address outside the cluster.
	ErrUnknownMember = NewDomainError("RM-NAME-4030", "reporter is not a cluster member")

	// ErrServiceNotFound indicates the service is not known locally.
	ErrServiceNotFound = NewDomainError("RM-NAME-4040", "service not found")

	// ErrRepairQueueFull indicates the repair queue reached its capacity.
	ErrRepairQueueFull = NewDomainError("RM-NAME-4290", "repair queue full")
)

// ============================================================================
// Cluster Errors (CLUS)
// ============================================================================

var (
	// ErrMemberNotFound indicates the address is not in the member directory.
	ErrMemberNotFound = NewDomainError("RM-CLUS-4040", "member not found")

	// ErrPeerUnreachable indicates a peer RPC failed at the transport level.
	ErrPeerUnreachable = NewDomainError("RM-CLUS-5030", "peer unreachable")

	// ErrPeerTimeout indicates a peer RPC exceeded its deadline.
	ErrPeerTimeout = NewDomainError("RM-CLUS-5040", "peer timeout")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("RM-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("RM-SYS-5001", "storage error")

	// ErrServiceUnavailable indicates the service is temporarily unavailable.
	ErrServiceUnavailable = NewDomainError("RM-SYS-5030", "service unavailable")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("RM-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("RM-SYS-4290", "too many requests")

	// ErrAccessDenied indicates the caller address is not allowed.
	ErrAccessDenied = NewDomainError("RM-SYS-4030", "access denied")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("RM-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("RM-ARG-1002", "missing required argument")
)
