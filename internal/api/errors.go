package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed operation for the caller.
type Kind int

const (
	KindUnknown Kind = iota
	// KindAuth is a login or logout failure; no session is established.
	KindAuth
	// KindNetwork is a transport failure: the backend was never reached or
	// the connection broke.
	KindNetwork
	// KindServer is a non-2xx response from the backend.
	KindServer
	// KindValidation is a local check that blocked the call.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindValidation:
		return "validation"
	}
	return "unknown"
}

// Error is returned by every Client method on failure.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	// Detail is the backend's structured "detail" message, if it sent one.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("%s: %s error (HTTP %d): %s", e.Op, e.Kind, e.StatusCode, e.Detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s error (HTTP %d)", e.Op, e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// ValidationError builds a local validation failure.
func ValidationError(op, msg string) *Error {
	return &Error{Op: op, Kind: KindValidation, Err: errors.New(msg)}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// UserMessage returns a short operator-facing message for err. The backend's
// detail is shown verbatim when present; raw payloads never are.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return "Something went wrong. Please try again."
	}
	if apiErr.Detail != "" {
		return apiErr.Detail
	}
	switch apiErr.Kind {
	case KindAuth:
		return "Login failed. Please check your email and try again."
	case KindNetwork:
		return "Could not reach the server. Please check your connection."
	case KindServer:
		return "The server could not complete the request. Please try again."
	case KindValidation:
		if apiErr.Err != nil {
			return apiErr.Err.Error()
		}
		return "Invalid input."
	}
	return "Something went wrong. Please try again."
}
