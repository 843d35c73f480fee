package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "GSE1001"
	ErrCodeConnectionTimeout    ErrorCode = "GSE1002"
	ErrCodeAuthenticationFailed ErrorCode = "GSE1003"
	ErrCodeNetworkUnavailable   ErrorCode = "GSE1004"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "GSE2001"
	ErrCodeConfigInvalid  ErrorCode = "GSE2002"
	ErrCodeConfigMissing  ErrorCode = "GSE2003"

	// Repository errors (3xxx)
	ErrCodeRepoNotFound    ErrorCode = "GSE3001"
	ErrCodeRepoAccess      ErrorCode = "GSE3002"
	ErrCodeBranchNotFound  ErrorCode = "GSE3003"
	ErrCodeCommitNotFound  ErrorCode = "GSE3004"
	ErrCodeHistoryDiverged ErrorCode = "GSE3005"

	// Warehouse errors (4xxx)
	ErrCodeWarehouseWrite ErrorCode = "GSE4001"
	ErrCodeWarehouseRead  ErrorCode = "GSE4002"
	ErrCodeSchemaCreate   ErrorCode = "GSE4003"
	ErrCodeReconcile      ErrorCode = "GSE4004"

	// Validation / contract errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "GSE6001"
	ErrCodeContractViolated ErrorCode = "GSE6002"

	// System errors (9xxx)
	ErrCodeInternal           ErrorCode = "GSE9001"
	ErrCodeTimeout            ErrorCode = "GSE9002"
	ErrCodeServiceUnavailable ErrorCode = "GSE9003"
	ErrCodeMaxRetriesExceeded ErrorCode = "GSE9004"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // bug or unrecoverable state, abort the invocation
	SeverityError    ErrorSeverity = "ERROR"    // operation failed, other branches may continue
	SeverityWarning  ErrorSeverity = "WARNING"  // operation succeeded with issues
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit its context
	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// RepositoryAccessError indicates the working directory is not a usable
// repository checkout. Fatal for the whole invocation.
func RepositoryAccessError(path string, cause error) *AppError {
	return Wrap(cause, ErrCodeRepoNotFound, "Not a valid git repository").
		WithSeverity(SeverityCritical).
		WithContext("path", path).
		WithSuggestions(
			"Run gitsink from inside a git checkout",
			"Check that the .git directory exists and is readable",
		)
}

// HistoryDivergedError indicates the recorded last-ingested revision is no
// longer an ancestor of the branch tip (force-push or rebase). Surfaced to
// the caller, never auto-resolved.
func HistoryDivergedError(branch, lastIngested string) *AppError {
	return New(ErrCodeHistoryDiverged,
		fmt.Sprintf("Branch %s history no longer contains the last ingested revision", branch)).
		WithContext("branch", branch).
		WithContext("last_ingested", lastIngested).
		WithSuggestions(
			"The branch was likely force-pushed or rebased",
			"Delete the branch's warehouse rows and re-sync to re-import from scratch",
		)
}

// ConnectionError creates a warehouse connection error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityError).
		WithSuggestions(
			"Check your network connection",
			"Verify the Snowflake account endpoint is reachable",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'gitsink setup' to reconfigure",
		)
}

// WarehouseWriteError creates an insert/merge failure. Transient causes
// (network, throttling) are marked recoverable so the sink retry loop
// picks them up.
func WarehouseWriteError(message string, cause error) *AppError {
	err := Wrap(cause, ErrCodeWarehouseWrite, message)
	if cause != nil && isTransient(cause.Error()) {
		err.Recoverable = true
	}
	return err
}

// ContractViolation flags a programming error in the reader/normalizer
// pipeline. Never retried.
func ContractViolation(message string) *AppError {
	return New(ErrCodeContractViolated, message).
		WithSeverity(SeverityCritical)
}

func isTransient(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range []string{"connection", "timeout", "unreachable", "temporarily", "throttl", "quota"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// IsFatal reports whether the error should abort the whole invocation
// rather than just the current branch.
func IsFatal(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityCritical
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}
