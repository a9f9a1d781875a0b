package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// HintInvalid indicates a value that is neither a known hint nor a class
	HintInvalid ErrorCode = "HINT_INVALID"
	// HintUnsupported indicates a well-formed hint the generator cannot check
	HintUnsupported ErrorCode = "HINT_UNSUPPORTED"
	// ArityWrong indicates a hint subscripted with the wrong number of arguments
	ArityWrong ErrorCode = "ARITY_WRONG"
	// RefUnresolvable indicates a relative forward reference outside a durable scope
	RefUnresolvable ErrorCode = "REF_UNRESOLVABLE"
	// PithViolation indicates a checked value that failed its hint
	PithViolation ErrorCode = "PITH_VIOLATION"
	// RegistryConflict indicates a name registered twice with different meanings
	RegistryConflict ErrorCode = "REGISTRY_CONFLICT"
	// ParseFailed indicates an unparseable textual hint expression
	ParseFailed ErrorCode = "PARSE_FAILED"
	// ReductionCapExceeded indicates the sanitizer failed to reach a fixed point
	ReductionCapExceeded ErrorCode = "REDUCTION_CAP_EXCEEDED"
	// CodegenEmpty indicates the generator drained its queue without emitting code
	CodegenEmpty ErrorCode = "CODEGEN_EMPTY"
	// InternalError indicates an unexpected invariant violation
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// PrefixPlaceholder is substituted into user-facing messages by callers that
// know what is being checked (a parameter, a return, a CLI argument). Error
// construction inside the pipeline always embeds the placeholder rather than
// the final prefix so that error-raising paths stay memoizable.
const PrefixPlaceholder = "@prefix@"

// IsInternal reports whether a code denotes a bug in hintcheck itself rather
// than a problem with the caller's hint. Internal codes imply a bug report.
func IsInternal(code ErrorCode) bool {
	switch code {
	case ReductionCapExceeded, CodegenEmpty, InternalError:
		return true
	}
	return false
}

// HintError represents a hintcheck error with code, message, and cause
type HintError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new HintError
func New(code ErrorCode, format string, args ...interface{}) *HintError {
	return &HintError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new HintError with an underlying cause
func Wrap(code ErrorCode, cause error, format string, args ...interface{}) *HintError {
	return &HintError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}

// Error implements the error interface
func (e *HintError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *HintError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *HintError) WithDetails(details interface{}) *HintError {
	e.Details = details
	return e
}

// CodeOf extracts the ErrorCode from an error, or InternalError if the error
// is not a HintError.
func CodeOf(err error) ErrorCode {
	if he, ok := err.(*HintError); ok {
		return he.Code
	}
	return InternalError
}
