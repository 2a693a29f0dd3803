package shared

import (
	"errors"
	"fmt"
)

// DomainError is the base error type for all domain errors
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// ValidationError reports an invalid field on a request or config entry
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// OperationConflictError is returned when a lifecycle operation (start, stop,
// reload, restart) is requested while another one is still in flight.
// The HTTP surface maps it to 409 with code "operation_conflict".
type OperationConflictError struct {
	Requested string
	Running   string
}

func (e *OperationConflictError) Error() string {
	return fmt.Sprintf("operation %s rejected: %s is already running", e.Requested, e.Running)
}

func NewOperationConflictError(requested, running string) *OperationConflictError {
	return &OperationConflictError{Requested: requested, Running: running}
}

// IsOperationConflict reports whether err wraps an OperationConflictError
func IsOperationConflict(err error) bool {
	var conflict *OperationConflictError
	return errors.As(err, &conflict)
}

// NotInitializedError is returned by stateful services used before Initialize
type NotInitializedError struct {
	Service string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("%s is not initialized", e.Service)
}

func NewNotInitializedError(service string) *NotInitializedError {
	return &NotInitializedError{Service: service}
}
