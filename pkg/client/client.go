// Package client provides the default request.Sender based on the standard net/http package.
//
// Client is immutable, all With* methods return a modified clone.
// It performs exactly one round trip per request: no retries, redirects are not followed,
// the timeout and abort behavior of the underlying transport is inherited.
// Response bodies encoded by gzip, br or deflate are decoded transparently.
//
// Tracing hooks can be registered by the AndTrace method, see the trace package.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"github.com/keboola/go-ajax/pkg/client/counter"
	"github.com/keboola/go-ajax/pkg/client/decode"
	"github.com/keboola/go-ajax/pkg/client/trace"
	"github.com/keboola/go-ajax/pkg/request"
)

// DefaultUserAgent is sent if no other User-Agent is configured.
const DefaultUserAgent = "go-ajax"

// Client is a default and configurable implementation of the request.Sender interface by Go native http.Client.
type Client struct {
	transport    http.RoundTripper
	baseURL      *url.URL
	header       http.Header
	traceFactory trace.Factory
}

// New creates new HTTP Client.
func New() Client {
	c := Client{transport: DefaultTransport(), header: make(http.Header)}
	c.header.Set("User-Agent", DefaultUserAgent)
	c.header.Set("Accept-Encoding", "gzip, br")
	return c
}

// WithBaseURL returns a clone of the Client with base url set.
// Relative request targets are resolved against the base url.
func (c Client) WithBaseURL(baseURLStr string) Client {
	baseURL, err := url.Parse(baseURLStr)
	if err != nil {
		panic(fmt.Errorf(`base url "%s" is not valid: %w`, baseURLStr, err))
	}
	// Normalize base URL, so baseURL.ResolveReference(...) keeps the last path segment
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/"
	c.baseURL = baseURL
	return c
}

// WithUserAgent returns a clone of the Client with user agent set.
func (c Client) WithUserAgent(v string) Client {
	return c.WithHeader("User-Agent", v)
}

// WithHeader returns a clone of the Client with common header set.
func (c Client) WithHeader(key, value string) Client {
	c.header = c.header.Clone()
	c.header.Set(key, value)
	return c
}

// WithHeaders returns a clone of the Client with common headers set.
func (c Client) WithHeaders(headers map[string]string) Client {
	c.header = c.header.Clone()
	for k, v := range headers {
		c.header.Set(k, v)
	}
	return c
}

// WithTransport returns a clone of the Client with a HTTP transport set.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// AndTrace returns a clone of the Client with the trace hooks added.
// Hooks registered earlier are called first.
func (c Client) AndTrace(fn trace.Factory) Client {
	if c.traceFactory == nil {
		c.traceFactory = fn
	} else {
		c.traceFactory = trace.ComposeFactories(c.traceFactory, fn)
	}
	return c
}

// Send performs one round trip and resolves its Outcome, it implements the request.Sender interface.
func (c Client) Send(ctx context.Context, reqDef request.Request) (out request.Outcome) {
	// Method cannot be called on an empty value
	if c.transport == nil {
		panic(fmt.Errorf("client value is not initialized"))
	}

	// Init trace
	var tc *trace.ClientTrace
	if c.traceFactory != nil {
		ctx, tc = c.traceFactory(ctx, reqDef)
		if tc != nil {
			ctx = httptrace.WithClientTrace(ctx, &tc.ClientTrace)
		}
	}
	if tc != nil && tc.RequestProcessed != nil {
		defer func() {
			tc.RequestProcessed(out)
		}()
	}

	// Create request
	req, err := c.newHTTPRequest(ctx, reqDef)
	if err != nil {
		return request.TransportFailure(reqDef, fmt.Errorf("%w: %w", request.ErrInvalidRequest, err))
	}

	// Setup native client, redirects are not followed, 3xx is a Failure
	nativeClient := http.Client{
		Transport: roundTripper{trace: tc, wrapped: c.transport},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	// Send request
	startedAt := time.Now()
	res, err := nativeClient.Do(req)
	if err != nil {
		return request.TransportFailure(reqDef, handleSendError(startedAt, req, err))
	}

	// Read body
	body, err := readBody(res)
	if err != nil {
		out = request.TransportFailure(reqDef, err)
		out.StatusCode = res.StatusCode
		out.Header = res.Header
		return out
	}

	// Resolve outcome
	if tc != nil && tc.BodyParseStart != nil {
		tc.BodyParseStart(res)
	}
	out = request.Resolve(reqDef, res.StatusCode, res.Header, body)
	if tc != nil && tc.BodyParseDone != nil {
		tc.BodyParseDone(res, out)
	}

	return out
}

func (c Client) newHTTPRequest(ctx context.Context, reqDef request.Request) (*http.Request, error) {
	// Convert to absolute url
	var reqURL *url.URL
	var err error
	if c.baseURL == nil {
		reqURL, err = url.Parse(reqDef.Target())
	} else {
		reqURL, err = url.Parse(strings.TrimLeft(reqDef.Target(), "/"))
		if err == nil {
			reqURL = c.baseURL.ResolveReference(reqURL)
		}
	}
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, reqDef.Method(), reqURL.String(), reqDef.BodyReader())
	if err != nil {
		return nil, err
	}

	// Global headers
	for k, values := range c.header {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}

	// Request headers
	for k, values := range reqDef.Header() {
		req.Header.Del(k) // clear global values
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	return req, nil
}

func readBody(res *http.Response) (string, error) {
	body, err := decode.Decode(res.Body, res.Header.Get("Content-Encoding"))
	if err != nil {
		_ = res.Body.Close()
		return "", fmt.Errorf("cannot read response body: %w", err)
	}
	defer body.Close()

	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("cannot read response body: %w", err)
	}
	return string(bodyBytes), nil
}

func handleSendError(startedAt time.Time, req *http.Request, err error) error {
	var netErr net.Error
	if deadline, ok := req.Context().Deadline(); ok && errors.Is(err, context.DeadlineExceeded) {
		err = urlError(req, fmt.Errorf("timeout after %s: %w", deadline.Sub(startedAt), context.DeadlineExceeded))
	} else if errors.Is(err, context.Canceled) {
		err = urlError(req, fmt.Errorf("canceled after %s: %w", time.Since(startedAt), context.Canceled))
	} else if errors.As(err, &netErr) && netErr.Timeout() {
		err = urlError(req, fmt.Errorf("timeout after %s: %w", time.Since(startedAt), err))
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = &request.TransportError{Method: strings.ToUpper(urlErr.Op), URL: urlErr.URL, Err: urlErr.Err}
	}

	return err
}

func urlError(req *http.Request, err error) *url.Error {
	return &url.Error{Op: req.Method, URL: req.URL.String(), Err: err}
}

// roundTripper wraps a http.RoundTripper and adds trace functionality.
type roundTripper struct {
	trace   *trace.ClientTrace
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.trace != nil && rt.trace.HTTPRequestStart != nil {
		rt.trace.HTTPRequestStart(req)
	}

	res, err := rt.wrapped.RoundTrip(req)

	if rt.trace != nil && rt.trace.HTTPRequestDone != nil {
		rt.trace.HTTPRequestDone(res, err)
	}

	// Count body bytes
	if err == nil && res != nil && res.Body != nil && rt.trace != nil && rt.trace.BodyReadDone != nil {
		onClose := rt.trace.BodyReadDone
		res.Body = counter.NewReadCloser(res.Body, func(bytes int64, err error) {
			onClose(res, bytes, err)
		})
	}

	return res, err
}
