package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode typed error code
type ErrorCode int

// Error codes, grouped by module
const (
	// common (1000-1999)
	ErrUnknown          ErrorCode = 1000
	ErrInvalidParam     ErrorCode = 1001
	ErrNotFound         ErrorCode = 1002
	ErrAlreadyExists    ErrorCode = 1003
	ErrPermissionDenied ErrorCode = 1004

	// series (2000-2999)
	ErrMissingFields      ErrorCode = 2000
	ErrMissingPlayers     ErrorCode = 2001
	ErrSeriesNotFound     ErrorCode = 2002
	ErrInvalidCredentials ErrorCode = 2003
	ErrMissingDeviceID    ErrorCode = 2004

	// session (3000-3999)
	ErrSessionNotFound     ErrorCode = 3000
	ErrActiveSessionExists ErrorCode = 3001
	ErrSessionAlreadyEnded ErrorCode = 3002
	ErrSessionNotActive    ErrorCode = 3003
	ErrNotSeriesCreator    ErrorCode = 3004
	ErrNotSessionCreator   ErrorCode = 3005
	ErrInvalidStatus       ErrorCode = 3006

	// score ledger (4000-4999)
	ErrMissingScores ErrorCode = 4000
	ErrEmptyLedger   ErrorCode = 4001

	// database (5000-5999)
	ErrDatabaseConnect ErrorCode = 5000
	ErrDatabaseQuery   ErrorCode = 5001
	ErrDatabaseInsert  ErrorCode = 5002
	ErrDatabaseUpdate  ErrorCode = 5003
	ErrDatabaseDelete  ErrorCode = 5004
	ErrTransaction     ErrorCode = 5005

	// config (6000-6999)
	ErrConfigLoad     ErrorCode = 6000
	ErrConfigParse    ErrorCode = 6001
	ErrConfigValidate ErrorCode = 6002
)

// Default messages per code
var errorMessages = map[ErrorCode]string{
	ErrUnknown:          "unknown error",
	ErrInvalidParam:     "invalid parameter",
	ErrNotFound:         "resource not found",
	ErrAlreadyExists:    "resource already exists",
	ErrPermissionDenied: "permission denied",

	ErrMissingFields:      "missing required fields",
	ErrMissingPlayers:     "one or more players are missing",
	ErrSeriesNotFound:     "series not found",
	ErrInvalidCredentials: "series id or password incorrect",
	ErrMissingDeviceID:    "device id is required",

	ErrSessionNotFound:     "session not found",
	ErrActiveSessionExists: "an active session already exists in this series",
	ErrSessionAlreadyEnded: "session is already ended",
	ErrSessionNotActive:    "session is ended, scores can no longer change",
	ErrNotSeriesCreator:    "only the series creator may do this",
	ErrNotSessionCreator:   "only the session creator may do this",
	ErrInvalidStatus:       "invalid session status",

	ErrMissingScores: "missing scores",
	ErrEmptyLedger:   "no scores to edit",

	ErrDatabaseConnect: "database connection failed",
	ErrDatabaseQuery:   "database query failed",
	ErrDatabaseInsert:  "database insert failed",
	ErrDatabaseUpdate:  "database update failed",
	ErrDatabaseDelete:  "database delete failed",
	ErrTransaction:     "transaction failed",

	ErrConfigLoad:     "failed to load configuration",
	ErrConfigParse:    "failed to parse configuration",
	ErrConfigValidate: "configuration validation failed",
}

// AppError application error carrying a code and optional cause
type AppError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Cause   error        `json:"-"`
	Stack   []StackFrame `json:"stack,omitempty"`
}

// StackFrame one captured call frame
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails attaches detail text
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause attaches the originating error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	if cause != nil && e.Details == "" {
		e.Details = cause.Error()
	}
	return e
}

// New creates an AppError for the given code
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}

	err := &AppError{
		Code:    code,
		Message: message,
	}

	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}

	err.captureStack(2)

	return err
}

// Newf creates an AppError with formatted details
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error under the given code. An existing AppError
// keeps its original code.
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		if len(details) > 0 {
			appErr.Details = strings.Join(details, "; ") + "; " + appErr.Details
		}
		return appErr
	}

	appErr := New(code, details...)
	appErr.Cause = err
	if appErr.Details == "" {
		appErr.Details = err.Error()
	}

	return appErr
}

// Wrapf wraps an error with formatted details
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Is reports whether err carries the given code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// GetCode extracts the error code, ErrUnknown for foreign errors
func GetCode(err error) ErrorCode {
	if err == nil {
		return 0
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}

	return ErrUnknown
}

// captureStack records up to ten caller frames
func (e *AppError) captureStack(skip int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()

		if strings.Contains(frame.Function, "runtime.") ||
			strings.Contains(frame.Function, "github.com/wfunc/remi-scorer/internal/errors") {
			if !more {
				break
			}
			continue
		}

		e.Stack = append(e.Stack, StackFrame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})

		if !more || len(e.Stack) >= 10 {
			break
		}
	}
}

// HTTPStatus maps the code to an HTTP response status
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrInvalidParam, ErrMissingFields, ErrMissingPlayers, ErrMissingDeviceID,
		ErrMissingScores, ErrEmptyLedger, ErrSessionNotActive, ErrInvalidStatus:
		return 400
	case ErrInvalidCredentials:
		return 401
	case ErrPermissionDenied, ErrNotSeriesCreator, ErrNotSessionCreator:
		return 403
	case ErrNotFound, ErrSeriesNotFound, ErrSessionNotFound:
		return 404
	case ErrAlreadyExists, ErrActiveSessionExists, ErrSessionAlreadyEnded:
		return 409
	}
	if e.Code >= 5000 && e.Code <= 5999 {
		return 503
	}
	return 500
}

// ErrorResponse API error envelope
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     *AppError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NewErrorResponse builds an error envelope
func NewErrorResponse(err *AppError, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     err,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}
