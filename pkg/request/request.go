// Package request provides an immutable definition of a single HTTP request, see New function,
// and the one-shot Outcome contract of sending it.
//
// Requests are sent using the Sender interface.
// The client.Client is a default implementation of the request.Sender
// interface based on the standard net/http package.
//
// A sent request completes exactly once: Request.Go returns a channel
// that receives one Outcome and is then closed, Request.Send blocks until the Outcome is ready.
// Success means the HTTP status code was 200, everything else is a Failure.
package request

import (
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
)

// Request is an immutable HTTP request definition.
// All With* and And* methods return a modified copy.
type Request struct {
	target     string
	method     string
	header     http.Header
	body       string
	structured bool
	resultDef  any
}

// New creates an immutable GET request to the target address.
func New(target string) Request {
	return Request{target: target, method: http.MethodGet, header: make(http.Header)}
}

// Target returns the target address as it was defined.
func (r Request) Target() string {
	return r.target
}

// Method returns the HTTP method, GET if none has been set.
func (r Request) Method() string {
	if r.method == "" {
		return http.MethodGet
	}
	return r.method
}

// Header returns a copy of the request headers.
func (r Request) Header() http.Header {
	return r.header.Clone()
}

// Body returns the raw request body, it may be empty.
func (r Request) Body() string {
	return r.body
}

// Structured returns true if a successful response body should be decoded as JSON.
func (r Request) Structured() bool {
	return r.structured
}

// ResultDef returns the pointer defining the type of the structured result, if any.
func (r Request) ResultDef() any {
	return r.resultDef
}

// WithGet is shortcut for WithMethod(http.MethodGet).WithTarget(url).
func (r Request) WithGet(url string) Request {
	return r.WithMethod(http.MethodGet).WithTarget(url)
}

// WithPost is shortcut for WithMethod(http.MethodPost).WithTarget(url).
func (r Request) WithPost(url string) Request {
	return r.WithMethod(http.MethodPost).WithTarget(url)
}

// WithPut is shortcut for WithMethod(http.MethodPut).WithTarget(url).
func (r Request) WithPut(url string) Request {
	return r.WithMethod(http.MethodPut).WithTarget(url)
}

// WithPatch is shortcut for WithMethod(http.MethodPatch).WithTarget(url).
func (r Request) WithPatch(url string) Request {
	return r.WithMethod(http.MethodPatch).WithTarget(url)
}

// WithDelete is shortcut for WithMethod(http.MethodDelete).WithTarget(url).
func (r Request) WithDelete(url string) Request {
	return r.WithMethod(http.MethodDelete).WithTarget(url)
}

// WithTarget sets the target address.
func (r Request) WithTarget(target string) Request {
	r.target = target
	return r
}

// WithMethod sets the HTTP method. An empty method means GET.
func (r Request) WithMethod(method string) Request {
	r.method = strings.ToUpper(strings.TrimSpace(method))
	return r
}

// WithHeaders replaces all request headers.
// Each entry is applied as one header set, a nil or empty map means no custom headers.
func (r Request) WithHeaders(headers map[string]string) Request {
	r.header = make(http.Header, len(headers))
	for k, v := range headers {
		r.header.Set(k, v)
	}
	return r
}

// AndHeader sets a single header field and its value.
func (r Request) AndHeader(header, value string) Request {
	r.header = r.header.Clone()
	if r.header == nil {
		r.header = make(http.Header)
	}
	r.header.Set(header, value)
	return r
}

// WithContentType sets the Content-Type header.
func (r Request) WithContentType(contentType string) Request {
	return r.AndHeader("Content-Type", contentType)
}

// WithBody sets the raw request body.
func (r Request) WithBody(body string) Request {
	r.body = body
	return r
}

// WithStructured enables or disables decoding of a successful response body as JSON.
func (r Request) WithStructured(structured bool) Request {
	r.structured = structured
	return r
}

// WithResult enables structured decoding into a new value of the type the result pointer points to.
// The Outcome.Value of each call is a fresh pointer, the result itself is never written.
func (r Request) WithResult(result any) Request {
	if reflect.ValueOf(result).Kind() != reflect.Ptr {
		panic(fmt.Errorf(`result must be defined by a pointer`))
	}
	r.resultDef = result
	r.structured = true
	return r
}

// Validate checks the definition before it is sent.
func (r Request) Validate() error {
	if strings.TrimSpace(r.target) == "" {
		return fmt.Errorf(`%w: target address is empty`, ErrInvalidRequest)
	}
	if _, ok := allowedMethods[r.Method()]; !ok {
		return fmt.Errorf(`%w: method "%s" is not supported`, ErrInvalidRequest, r.Method())
	}
	return nil
}

// BodyReader returns the request body as a reader, nil if the body is empty.
func (r Request) BodyReader() io.Reader {
	if r.body == "" {
		return nil
	}
	return strings.NewReader(r.body)
}

func (r Request) String() string {
	return fmt.Sprintf(`%s "%s"`, r.Method(), r.target)
}

var allowedMethods = map[string]struct{}{ //nolint:gochecknoglobals
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}
