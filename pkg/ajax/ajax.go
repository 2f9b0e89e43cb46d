// Package ajax wires the configuration, logging, the HTTP client and the cookie jar together.
package ajax

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/keboola/go-ajax/pkg/client"
	"github.com/keboola/go-ajax/pkg/client/trace"
	"github.com/keboola/go-ajax/pkg/config"
	"github.com/keboola/go-ajax/pkg/cookie"
	"github.com/keboola/go-ajax/pkg/log"
	"github.com/keboola/go-ajax/pkg/request"
)

type Service struct {
	logger *zap.Logger
	client client.Client
	jar    *cookie.Jar
}

type options struct {
	logger    *zap.Logger
	transport http.RoundTripper
	traces    []trace.Factory
}

type Option func(o *options)

// WithLogger replaces the logger created from the configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTransport replaces the HTTP transport, for example by a mocked one.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithTrace registers additional trace hooks, for example the OpenTelemetry ones.
func WithTrace(fn trace.Factory) Option {
	return func(o *options) {
		o.traces = append(o.traces, fn)
	}
}

// New creates the Service, the configuration is validated first.
func New(cfg config.Config, opts ...Option) (*Service, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = log.New(cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	c := client.New().AndTrace(trace.LogTracer(logger))
	switch {
	case o.transport != nil:
		c = c.WithTransport(o.transport)
	case cfg.HTTP2:
		c = c.WithTransport(client.HTTP2Transport())
	}
	if cfg.UserAgent != "" {
		c = c.WithUserAgent(cfg.UserAgent)
	}
	if cfg.BaseURL != "" {
		c = c.WithBaseURL(cfg.BaseURL)
	}
	for _, fn := range o.traces {
		c = c.AndTrace(fn)
	}

	store, err := cookie.OpenStore(cfg.CookieStore, cfg.CookiePath)
	if err != nil {
		return nil, fmt.Errorf("cannot open cookie store: %w", err)
	}
	jar := cookie.NewJar(
		store,
		cookie.WithMaxLength(cfg.CookieMaxLength),
		cookie.WithExpires(cfg.CookieExpires),
		cookie.WithPath(cfg.CookieURLPath),
	)

	logger.Debug("ajax service created",
		zap.String("cookie.store", cfg.CookieStore),
		zap.Bool("http2", cfg.HTTP2),
		zap.String("base_url", cfg.BaseURL),
	)
	return &Service{logger: logger, client: c, jar: jar}, nil
}

// Request sends one request in the background, see request.Ajax.
func (s *Service) Request(ctx context.Context, target string, headers map[string]string, method, body string, structured bool) <-chan request.Outcome {
	return request.Ajax(ctx, s.client, target, headers, method, body, structured)
}

// Go sends a request built by the request package builders.
func (s *Service) Go(ctx context.Context, r request.Request) <-chan request.Outcome {
	return r.Go(ctx, s.client)
}

// Sender returns the configured HTTP client.
func (s *Service) Sender() request.Sender {
	return s.client
}

func (s *Service) Cookies() *cookie.Jar {
	return s.jar
}

func (s *Service) Logger() *zap.Logger {
	return s.logger
}

// Close releases the cookie store.
func (s *Service) Close() error {
	_ = s.logger.Sync()
	if err := s.jar.Close(); err != nil {
		return fmt.Errorf("cannot close cookie store: %w", err)
	}
	return nil
}
