// Package xerrors defines the typed error taxonomy surfaced across the book,
// ipc, fanin and stream packages.
package xerrors

import (
	"fmt"
	"runtime"
	"time"
)

// ErrorCode identifies a specific failure kind surfaced over the API.
type ErrorCode string

const (
	OrderIdExist          ErrorCode = "ORDER_ID_EXIST"
	OrderNotFound         ErrorCode = "ORDER_NOT_FOUND"
	AssetNotFound         ErrorCode = "ASSET_NOT_FOUND"
	Timeout               ErrorCode = "TIMEOUT"
	Interrupted           ErrorCode = "INTERRUPTED"
	Custom                ErrorCode = "CUSTOM"
	ConnectionAbort       ErrorCode = "CONNECTION_ABORT"
	ConnectionInterrupted ErrorCode = "CONNECTION_INTERRUPTED"

	// IPC build/encode/decode/receive/send failure modes, §4.B/§6.
	IpcLoanFailed    ErrorCode = "IPC_LOAN_FAILED"
	IpcSendFailed    ErrorCode = "IPC_SEND_FAILED"
	IpcEncodeFailed  ErrorCode = "IPC_ENCODE_FAILED"
	IpcReceiveFailed ErrorCode = "IPC_RECEIVE_FAILED"
	IpcDecodeFailed  ErrorCode = "IPC_DECODE_FAILED"
	IpcBuildFailed   ErrorCode = "IPC_BUILD_FAILED"
)

// ErrorSeverity mirrors the teacher's severity tiers, trimmed to what this
// module's invariant violations and transport failures actually need.
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "low"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityHigh     ErrorSeverity = "high"
	SeverityCritical ErrorSeverity = "critical"
)

// MDError is a structured error carrying a code, severity and caller frame,
// the same shape the rest of the teacher's codebase uses for invariant
// violations and transport failures.
type MDError struct {
	Code      ErrorCode
	Message   string
	Severity  ErrorSeverity
	Timestamp time.Time
	File      string
	Line      int
	Function  string
	Cause     error
}

func (e *MDError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (caused by: %v)", e.Code, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message)
}

func (e *MDError) Unwrap() error {
	return e.Cause
}

func (e *MDError) WithCause(cause error) *MDError {
	e.Cause = cause
	return e
}

// New creates a new MDError, capturing the caller's frame.
func New(code ErrorCode, message string) *MDError {
	pc, file, line, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	var funcName string
	if fn != nil {
		funcName = fn.Name()
	}
	return &MDError{
		Code:      code,
		Message:   message,
		Severity:  severityForCode(code),
		Timestamp: time.Now(),
		File:      file,
		Line:      line,
		Function:  funcName,
	}
}

// Newf creates a new MDError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *MDError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code/message context to an existing error.
func Wrap(err error, code ErrorCode, message string) *MDError {
	if err == nil {
		return nil
	}
	pc, file, line, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	var funcName string
	if fn != nil {
		funcName = fn.Name()
	}
	return &MDError{
		Code:      code,
		Message:   message,
		Severity:  severityForCode(code),
		Timestamp: time.Now(),
		File:      file,
		Line:      line,
		Function:  funcName,
		Cause:     err,
	}
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var mdErr *MDError
	if As(err, &mdErr) {
		return mdErr.Code == code
	}
	return false
}

// As finds the first MDError in err's chain.
func As(err error, target **MDError) bool {
	if err == nil {
		return false
	}
	if mdErr, ok := err.(*MDError); ok {
		*target = mdErr
		return true
	}
	if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
		return As(unwrapper.Unwrap(), target)
	}
	return false
}

// Code extracts the error code from err, or "" if it is not an MDError.
func Code(err error) ErrorCode {
	var mdErr *MDError
	if As(err, &mdErr) {
		return mdErr.Code
	}
	return ""
}

func severityForCode(code ErrorCode) ErrorSeverity {
	switch code {
	case ConnectionAbort, ConnectionInterrupted, IpcBuildFailed:
		return SeverityCritical
	case OrderIdExist, OrderNotFound, AssetNotFound, IpcSendFailed, IpcReceiveFailed:
		return SeverityHigh
	case Timeout, Interrupted, IpcLoanFailed, IpcEncodeFailed, IpcDecodeFailed:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
