// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/autoflow/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidStatus   = errors.New("invalid workflow status")
	ErrInvalidWorkflow = errors.New("invalid workflow")
	ErrWorkflowNil     = errors.New("workflow cannot be nil")
	ErrEmptyUserID     = errors.New("user ID cannot be empty")

	// Business Logic Conflicts (409 Conflict).
	ErrAlreadyActive   = errors.New("workflow is already active")
	ErrAlreadyInactive = errors.New("workflow is already inactive")

	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// ValidationError lists every problem found in a workflow definition.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d problem(s): %v", ErrInvalidWorkflow, len(e.Problems), e.Problems)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidWorkflow
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidWorkflow) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrEmptyUserID)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadyActive) ||
		errors.Is(err, ErrAlreadyInactive)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
