package session

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies stream lifecycle failures for the API layer.
type ErrorCode string

const (
	// CodeInvalidParams marks a rejected intent; nothing was touched.
	CodeInvalidParams ErrorCode = "INVALID_PARAMS"
	// CodeConfigWrite marks a media server config write failure.
	CodeConfigWrite ErrorCode = "CONFIG_WRITE_ERROR"
	// CodeMediaMTXRestart marks a service restart failure or readiness
	// timeout; no transcoder was spawned.
	CodeMediaMTXRestart ErrorCode = "MEDIAMTX_RESTART_ERROR"
	// CodeTranscoderSpawn marks a transcoder start failure.
	CodeTranscoderSpawn ErrorCode = "TRANSCODER_SPAWN_ERROR"
	// CodeProbe marks a capability probe failure; always advisory.
	CodeProbe ErrorCode = "PROBE_ERROR"
)

// Error is the failure type returned by the stream session. Detail carries
// captured diagnostics like a journal tail.
type Error struct {
	Code    ErrorCode
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error code to the response status: validation failures
// are the caller's fault, everything else is a runtime failure.
func (e *Error) HTTPStatus() int {
	if e.Code == CodeInvalidParams {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func newError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// AsSessionError extracts an *Error from an error chain.
func AsSessionError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
