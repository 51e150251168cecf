package api

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies failures crossing the client and registry boundary.
type ErrorKind string

const (
	KindNone                  ErrorKind = ""
	KindNotFound              ErrorKind = "not_found"
	KindValidation            ErrorKind = "validation"
	KindExecution             ErrorKind = "execution"
	KindConnection            ErrorKind = "connection"
	KindDependencyMissing     ErrorKind = "dependency_missing"
	KindDependencyUnavailable ErrorKind = "dependency_unavailable"
)

// NotFoundError represents a resource not found error with contextual information.
//
// The error includes resource type and name for precise error reporting and
// supports custom error messages for specific use cases.
type NotFoundError struct {
	// ResourceType categorizes the type of resource that was not found
	// (e.g., "tool", "dependency", "context")
	ResourceType string

	// ResourceName is the specific identifier of the resource that was not found
	ResourceName string

	// Message provides a custom error message if the default format is insufficient
	Message string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
//
// Example:
//
//	resp := client.CallTool(ctx, "missing", nil, callCtx)
//	if api.IsNotFound(resp.Err) {
//	    // offer a search instead
//	}
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a new NotFoundError with the specified resource type and name.
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

// NewToolNotFoundError creates a tool not found error.
func NewToolNotFoundError(name string) *NotFoundError {
	return NewNotFoundError("tool", name)
}

// NewDependencyNotFoundError creates an error for an undeclared dependency.
func NewDependencyNotFoundError(name string) *NotFoundError {
	return NewNotFoundError("dependency", name)
}

// IsValidation reports whether err is or wraps a ValidationError or
// ValidationErrors.
func IsValidation(err error) bool {
	var single ValidationError
	if errors.As(err, &single) {
		return true
	}
	var many ValidationErrors
	return errors.As(err, &many)
}

// ErrNotImplemented is returned by default category handlers that have no
// real integration behind them.
var ErrNotImplemented = errors.New("not implemented")

// ExecutionError wraps a failure raised while a handler ran.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsExecution reports whether err is or wraps an ExecutionError.
func IsExecution(err error) bool {
	var execErr *ExecutionError
	return errors.As(err, &execErr)
}

// ConnectionError is returned when an operation needs a connected client.
type ConnectionError struct {
	Operation string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("client not connected: cannot %s", e.Operation)
}

// IsConnection reports whether err is or wraps a ConnectionError.
func IsConnection(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// RequiredDependencyMissingError is fatal: it is returned when a required
// dependency cannot be resolved while the dependency manager is built.
type RequiredDependencyMissingError struct {
	// Failures maps dependency name to the reason it could not be resolved.
	Failures map[string]string
}

func (e *RequiredDependencyMissingError) Error() string {
	names := e.Names()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%s)", name, e.Failures[name]))
	}
	return fmt.Sprintf("required dependencies missing: %s", strings.Join(parts, ", "))
}

// Names returns the missing dependency names in sorted order.
func (e *RequiredDependencyMissingError) Names() []string {
	names := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRequiredDependencyMissing reports whether err is or wraps a
// RequiredDependencyMissingError.
func IsRequiredDependencyMissing(err error) bool {
	var depErr *RequiredDependencyMissingError
	return errors.As(err, &depErr)
}

// DependencyUnavailableError is the non-fatal outcome of probing an optional
// dependency.
type DependencyUnavailableError struct {
	Name   string
	Reason string
}

func (e *DependencyUnavailableError) Error() string {
	return fmt.Sprintf("dependency %s unavailable: %s", e.Name, e.Reason)
}

// IsDependencyUnavailable reports whether err is or wraps a
// DependencyUnavailableError.
func IsDependencyUnavailable(err error) bool {
	var depErr *DependencyUnavailableError
	return errors.As(err, &depErr)
}

// Kind classifies err. Unknown errors are reported as execution failures.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case IsNotFound(err):
		return KindNotFound
	case IsValidation(err):
		return KindValidation
	case IsConnection(err):
		return KindConnection
	case IsRequiredDependencyMissing(err):
		return KindDependencyMissing
	case IsDependencyUnavailable(err):
		return KindDependencyUnavailable
	default:
		return KindExecution
	}
}
