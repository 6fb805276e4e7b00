package agentkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for agentkit. Use errors.Is to check.
var (
	ErrNoEntry         = errors.New("no entry operation")
	ErrAmbiguousEntry  = errors.New("ambiguous entry operation")
	ErrUnsupportedType = errors.New("unsupported parameter type")
	ErrRecursiveType   = errors.New("recursive parameter type")
	ErrMaxDepth        = errors.New("parameter type exceeds maximum depth")
	ErrInvalidDefault  = errors.New("invalid default value")
	ErrValidation      = errors.New("validation failed")
	ErrTimeout         = errors.New("tool execution timeout")
)

// ToolCompileError reports a tool that cannot be compiled into a CompiledTool.
// It aborts only that tool; other tools in the same set compile independently.
type ToolCompileError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *ToolCompileError) Error() string {
	if e.Reason == "" && e.Err != nil {
		return fmt.Sprintf("compile tool %s: %v", e.Tool, e.Err)
	}
	if e.Err != nil && e.Reason != e.Err.Error() {
		return fmt.Sprintf("compile tool %s: %s: %v", e.Tool, e.Reason, e.Err)
	}
	return fmt.Sprintf("compile tool %s: %s", e.Tool, e.Reason)
}

func (e *ToolCompileError) Unwrap() error { return e.Err }

// MissingRequiredParameterError is returned when a required parameter is absent (or null)
// and has no declared default.
type MissingRequiredParameterError struct {
	Name string
}

func (e *MissingRequiredParameterError) Error() string {
	return fmt.Sprintf("required parameter %q was not provided", e.Name)
}

// ConversionError reports a JSON value that cannot be converted into the
// declared Go type.
type ConversionError struct {
	Type string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert parameter to type %s: %v", e.Type, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ClientError is an error that should be sent back to the LLM for self-correction
// (missing parameter, bad enum value, schema validation failure).
// Do not expose stack traces or internal details to the LLM.
// Err optionally wraps a more specific error for errors.Is/errors.As.
type ClientError struct {
	Reason string
	Err    error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("invalid tool input: %s", e.Reason)
}

// Unwrap supports errors.Is/errors.As on wrapped chains (e.g. errors.As(err, &missing)).
func (e *ClientError) Unwrap() error { return e.Err }

// SystemError represents an internal failure inside a tool (handler error, panic).
// The LLM should not see the underlying error message or stack.
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string {
	return "internal system error during tool execution"
}

func (e *SystemError) Unwrap() error { return e.Err }

// IsClientError returns true if err is or wraps a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// IsSystemError returns true if err is or wraps a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// wrapHandlerError passes through ClientError; wraps other errors as SystemError.
func wrapHandlerError(err error) error {
	if err == nil {
		return nil
	}
	if IsClientError(err) || IsSystemError(err) {
		return err
	}
	return &SystemError{Err: err}
}

// panicError wraps a recovered panic value for SystemError.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
