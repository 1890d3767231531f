// Package tools provides the tool registry and execution framework.
//
// This file defines sentinel error types for tool execution.
package tools

import (
	"fmt"
	"time"
)

// UnknownToolError is returned when a tool call targets a tool that is
// not present in the registry. This indicates a capability mismatch,
// not a transient execution failure. Callers should report it to the
// model rather than retrying.
type UnknownToolError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %q", e.Name)
}

// DuplicateToolError is returned when registering a tool whose name is
// already taken.
type DuplicateToolError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// InvalidInputError is returned when tool arguments fail schema
// validation. Retrying with the same arguments cannot succeed.
type InvalidInputError struct {
	Tool   string
	Reason string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input for tool %q: %s", e.Tool, e.Reason)
}

// TimeoutError is returned when a tool handler does not complete
// within the configured deadline.
type TimeoutError struct {
	Tool    string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tool %q timed out after %s", e.Tool, e.Timeout)
}
