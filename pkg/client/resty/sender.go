// Package resty provides a request.Sender backed by the go-resty HTTP client.
//
// It resolves the same Outcome contract as the client.Client,
// so both senders can be used interchangeably.
package resty

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/keboola/go-ajax/pkg/request"
)

// Sender adapts resty.Client to the request.Sender interface.
type Sender struct {
	client *resty.Client
}

// New creates a Sender, zero timeout means no client timeout.
func New(timeout time.Duration) *Sender {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	c.SetHeader("User-Agent", "go-ajax")
	return &Sender{client: c}
}

// NewFromClient wraps an already configured resty.Client.
func NewFromClient(c *resty.Client) *Sender {
	return &Sender{client: c}
}

// WithTransport sets the underlying HTTP transport.
func (s *Sender) WithTransport(transport http.RoundTripper) *Sender {
	s.client.SetTransport(transport)
	return s
}

// Send performs one round trip, it implements the request.Sender interface.
func (s *Sender) Send(ctx context.Context, reqDef request.Request) request.Outcome {
	req := s.client.R().SetContext(ctx)
	for k, values := range reqDef.Header() {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}
	if reqDef.Body() != "" {
		req.SetBody(reqDef.Body())
	}

	res, err := req.Execute(reqDef.Method(), reqDef.Target())

	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return request.TransportFailure(reqDef, &request.TransportError{Method: reqDef.Method(), URL: reqDef.Target(), Err: err})
	}

	return request.Resolve(reqDef, res.StatusCode(), res.Header(), string(res.Body()))
}
