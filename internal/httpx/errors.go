package httpx

import (
	"errors"
	"fmt"
)

// Code classifies a failure of an outbound call or a downstream
// domain check built on top of one.
type Code string

const (
	CodeNetwork    Code = "network"
	CodeHTTPStatus Code = "http-status"
	CodeDecode     Code = "decode"
	CodeValidation Code = "validation"
	CodeConfig     Code = "provider-config"
	CodeTaskFailed Code = "task-failed"
	CodeNoteAPI    Code = "note-api-error"
)

// Error is the structured error shared by every provider-facing
// component. Details carries provider diagnostics such as the HTTP
// status and a response body snippet.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if status, ok := e.Details["status"]; ok {
		return fmt.Sprintf("%s (%v): %s", e.Code, status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code Code, message string, details map[string]any) *Error {
	if details == nil {
		details = map[string]any{}
	}
	return &Error{Code: code, Message: message, Details: details}
}

// ErrorCode returns the classification of err, or "" when err is not
// a structured error.
func ErrorCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
