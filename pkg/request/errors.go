package request

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidRequest is wrapped by all request definition errors, such requests are never sent.
var ErrInvalidRequest = errors.New("invalid request")

// StatusError is the Failure reason for any status code other than 200.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(`request %s "%s" failed: %d %s`, e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// TransportError is the Failure reason if no HTTP response has been received, for example a network error.
// It corresponds to the status code 0.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf(`request %s "%s" failed: %s`, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is the Failure reason if a structured result was requested but the body is not valid JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode JSON result: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
