package errors

import "fmt"

// Code classifies an offcut error.
type Code string

const (
	CodeNotFound       Code = "NOT_FOUND"       // selector resolved to nothing, or content evicted
	CodeInvalidRequest Code = "INVALID_REQUEST" // malformed selector, tag, note, pattern
	CodeStorageFault   Code = "STORAGE_FAULT"   // manifest append / file move / delete failed
	CodePathViolation  Code = "PATH_VIOLATION"  // manifest path escapes the working root
	CodeInternal       Code = "INTERNAL"        // unexpected
)

// CLI process exit codes. Resolution and validation failures are the caller's
// problem; storage faults are infrastructure trouble and get a distinct code.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitStorage = 2
)

// Error is a structured error with a code and optional details.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ExitCode maps the error to a CLI process exit code.
func (e *Error) ExitCode() int {
	switch e.Code {
	case CodeStorageFault, CodeInternal:
		return ExitStorage
	default:
		return ExitUsage
	}
}

// NewNotFound creates a NOT_FOUND error for a selector that resolved to
// nothing. The message should tell the user how to recover.
func NewNotFound(selector, hint string) *Error {
	msg := fmt.Sprintf("no artifact matches %q", selector)
	if hint != "" {
		msg += "; " + hint
	}
	return &Error{
		Code:    CodeNotFound,
		Message: msg,
		Details: map[string]any{"selector": selector},
	}
}

// NewEvicted creates a NOT_FOUND error for an artifact whose content has been
// cleaned up by retention.
func NewEvicted(id string) *Error {
	return &Error{
		Code: CodeNotFound,
		Message: fmt.Sprintf(
			"content for [%s] was cleaned up after its retention period; pin outputs you want to keep (offcut pin <id> right after capture)", id),
		Details: map[string]any{"id": id, "evicted": true},
	}
}

// NewInvalidRequest creates an INVALID_REQUEST error.
func NewInvalidRequest(msg string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: msg}
}

// NewInvalidRequestf creates an INVALID_REQUEST error with formatting.
func NewInvalidRequestf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// NewStorageFault wraps an I/O failure. The operation that hit it must report
// failure without pretending already-durable steps did not happen.
func NewStorageFault(action string, err error) *Error {
	return &Error{
		Code:    CodeStorageFault,
		Message: fmt.Sprintf("%s: %v", action, err),
		Details: map[string]any{"action": action},
	}
}

// NewPathViolation creates a PATH_VIOLATION error. Always a hard refusal.
func NewPathViolation(path string) *Error {
	return &Error{
		Code:    CodePathViolation,
		Message: fmt.Sprintf("refusing to touch %q: path resolves outside the offcut root", path),
		Details: map[string]any{"path": path},
	}
}

// NewInternal creates an INTERNAL error.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Code: CodeInternal, Message: msg}
}

// Is checks whether err is an offcut Error with the given code.
func Is(err error, code Code) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}

// ExitCodeFor returns the CLI exit code for any error.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	if e, ok := err.(*Error); ok {
		return e.ExitCode()
	}
	return ExitStorage
}
