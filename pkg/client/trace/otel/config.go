package otel

import (
	"strings"

	"go.opentelemetry.io/otel/propagation"
)

// defaultRedactedHeaders carry credentials, their values are never recorded.
var defaultRedactedHeaders = []string{ //nolint:gochecknoglobals
	"Authorization",
	"Cookie",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Set-Cookie",
	"WWW-Authenticate",
}

type config struct {
	propagators     propagation.TextMapPropagator
	headers         bool
	redactedHeaders map[string]bool
}

type Option func(*config)

// WithPropagators injects trace context headers into outgoing requests.
func WithPropagators(v propagation.TextMapPropagator) Option {
	return func(c *config) {
		c.propagators = v
	}
}

// WithRedactedHeaders masks values of the headers in span attributes, in addition to the default ones.
func WithRedactedHeaders(headers ...string) Option {
	return func(c *config) {
		c.redact(headers...)
	}
}

// WithoutHeaders disables header span attributes.
func WithoutHeaders() Option {
	return func(c *config) {
		c.headers = false
	}
}

func (c *config) redact(headers ...string) {
	for _, h := range headers {
		c.redactedHeaders[strings.ToLower(h)] = true
	}
}

func newConfig(opts []Option) config {
	cfg := config{headers: true, redactedHeaders: make(map[string]bool)}
	cfg.redact(defaultRedactedHeaders...)
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}
