package apperr

import (
	"fmt"
	"strings"
)

// Code classifies a failure so callers can branch on the cause instead of
// matching message strings.
type Code string

const (
	// Configuration errors
	CodeConfigLoad    Code = "CONFIG_LOAD"
	CodeConfigInvalid Code = "CONFIG_INVALID"

	// Remote engine errors
	CodeTransport Code = "ENGINE_TRANSPORT"
	CodeRemote    Code = "ENGINE_REMOTE"
	CodeDecode    Code = "ENGINE_DECODE"

	// Local validation errors
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeFileTooLarge Code = "FILE_TOO_LARGE"
	CodeFileMissing  Code = "FILE_MISSING"

	// Export errors
	CodeExportDecode Code = "EXPORT_DECODE"
	CodeExportWrite  Code = "EXPORT_WRITE"

	// Storage errors
	CodeStorageRead  Code = "STORAGE_READ"
	CodeStorageWrite Code = "STORAGE_WRITE"

	// Generic errors
	CodeInternal Code = "INTERNAL"
)

// Error is a coded error with optional context values.
type Error struct {
	Code       Code
	Message    string
	Underlying error
	Context    map[string]any
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap attaches a code and message to an existing error. Returns nil when
// err is nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
		Context:    make(map[string]any),
	}
}

// WithContext adds a context key-value pair to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))
	if len(e.Context) > 0 {
		sb.WriteString(" {")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s: %v", k, v))
			first = false
		}
		sb.WriteString("}")
	}
	if e.Underlying != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Underlying))
	}
	return sb.String()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	appErr, ok := err.(*Error)
	if !ok {
		return false
	}
	return appErr.Code == code
}

// GetCode extracts the code from an error, defaulting to CodeInternal for
// foreign error types.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}
	appErr, ok := err.(*Error)
	if !ok {
		return CodeInternal
	}
	return appErr.Code
}
