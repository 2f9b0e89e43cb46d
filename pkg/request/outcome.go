package request

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// State of one request.
// The transition from StateSent to a terminal state happens exactly once.
type State int

const (
	StateIdle State = iota
	StateSent
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSent:
		return "sent"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is the terminal result of one request, either a Success or a Failure.
//
// Body always contains the raw response text, it is empty if the transport supplied none.
// Value contains the decoded structured result, if it was requested.
// StatusCode is 0 if no HTTP response has been received.
type Outcome struct {
	Request    Request
	StatusCode int
	Header     http.Header
	Body       string
	Value      any
	Err        error
}

// IsSuccess returns true if the request completed with the status code 200 and the body was decoded, if requested.
func (o Outcome) IsSuccess() bool {
	return o.Err == nil
}

// IsFailure is the opposite of IsSuccess.
func (o Outcome) IsFailure() bool {
	return o.Err != nil
}

// State returns StateSucceeded or StateFailed.
func (o Outcome) State() State {
	if o.IsSuccess() {
		return StateSucceeded
	}
	return StateFailed
}

// FailureKind returns a short name of the failure reason, or an empty string for a Success.
func (o Outcome) FailureKind() string {
	var statusErr *StatusError
	var transportErr *TransportError
	var decodeErr *DecodeError
	switch {
	case o.Err == nil:
		return ""
	case errors.As(o.Err, &statusErr):
		return "status"
	case errors.As(o.Err, &decodeErr):
		return "decode"
	case errors.Is(o.Err, ErrInvalidRequest):
		return "invalid"
	case errors.As(o.Err, &transportErr):
		return "transport"
	default:
		return "unknown"
	}
}

// Resolve builds the Outcome of a received HTTP response.
// Only the status code 200 is a Success, if a structured result is requested, the body must be valid JSON.
func Resolve(r Request, statusCode int, header http.Header, body string) Outcome {
	out := Outcome{Request: r, StatusCode: statusCode, Header: header, Body: body}

	if statusCode != http.StatusOK {
		out.Err = &StatusError{Method: r.Method(), URL: r.Target(), StatusCode: statusCode, Body: body}
		return out
	}

	if r.structured {
		value, err := decode(body, r.resultDef)
		if err != nil {
			out.Err = &DecodeError{Err: err}
			return out
		}
		out.Value = value
	} else {
		out.Value = body
	}

	return out
}

// TransportFailure builds the Outcome of a request without an HTTP response, it corresponds to the status code 0.
func TransportFailure(r Request, err error) Outcome {
	var transportErr *TransportError
	if !errors.As(err, &transportErr) && !errors.Is(err, ErrInvalidRequest) {
		err = &TransportError{Method: r.Method(), URL: r.Target(), Err: err}
	}
	return Outcome{Request: r, Err: err}
}

func decode(body string, resultDef any) (any, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("response body is empty")
	}
	if resultDef != nil {
		// Each call decodes into its own value, the definition is only a type template
		value := reflect.New(reflect.TypeOf(resultDef).Elem()).Interface()
		if err := json.UnmarshalFromString(body, value); err != nil {
			return nil, err
		}
		return value, nil
	}
	var value any
	if err := json.UnmarshalFromString(body, &value); err != nil {
		return nil, err
	}
	return value, nil
}
