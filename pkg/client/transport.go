package client

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// DialTimeout specifies default maximum connection initialization time.
const DialTimeout = 3 * time.Second

// KeepAlive specifies default interval between keep-alive probes.
const KeepAlive = 10 * time.Second

// TLSHandshakeTimeout specifies default timeout of TLS handshake.
const TLSHandshakeTimeout = 5 * time.Second

// ResponseHeaderTimeout specifies default amount of time to wait for a server's response headers.
const ResponseHeaderTimeout = 20 * time.Second

// MaxConnectionsPerHost specifies default maximum number of open connections to a host.
const MaxConnectionsPerHost = 32

// TransportConfig contains limits of the default transports.
// Zero values are replaced by defaults.
type TransportConfig struct {
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	MaxConnectionsPerHost int
	TLSConfig             *tls.Config
}

// TransportOption modifies TransportConfig.
type TransportOption func(c *TransportConfig)

// WithDialTimeout sets maximum connection initialization time.
func WithDialTimeout(v time.Duration) TransportOption {
	return func(c *TransportConfig) {
		c.DialTimeout = v
	}
}

// WithResponseHeaderTimeout sets maximum time to wait for response headers.
func WithResponseHeaderTimeout(v time.Duration) TransportOption {
	return func(c *TransportConfig) {
		c.ResponseHeaderTimeout = v
	}
}

// WithMaxConnectionsPerHost sets maximum number of open connections to a host.
func WithMaxConnectionsPerHost(v int) TransportOption {
	return func(c *TransportConfig) {
		c.MaxConnectionsPerHost = v
	}
}

// WithTLSConfig sets the TLS configuration, for example trusted certificates.
func WithTLSConfig(v *tls.Config) TransportOption {
	return func(c *TransportConfig) {
		c.TLSConfig = v
	}
}

func newTransportConfig(opts []TransportOption) TransportConfig {
	cfg := TransportConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DialTimeout
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = KeepAlive
	}
	if cfg.TLSHandshakeTimeout <= 0 {
		cfg.TLSHandshakeTimeout = TLSHandshakeTimeout
	}
	if cfg.ResponseHeaderTimeout <= 0 {
		cfg.ResponseHeaderTimeout = ResponseHeaderTimeout
	}
	if cfg.MaxConnectionsPerHost <= 0 {
		cfg.MaxConnectionsPerHost = MaxConnectionsPerHost
	}
	return cfg
}

// DefaultTransport default transport with reasonable limits.
func DefaultTransport(opts ...TransportOption) http.RoundTripper {
	cfg := newTransportConfig(opts)
	dialer := cfg.dialer()
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       cfg.TLSConfig,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		MaxConnsPerHost:       cfg.MaxConnectionsPerHost,
		MaxIdleConnsPerHost:   cfg.MaxConnectionsPerHost,
	}
}

// HTTP2Transport forces HTTP2 protocol.
func HTTP2Transport(opts ...TransportOption) http.RoundTripper {
	cfg := newTransportConfig(opts)
	dialer := cfg.dialer()
	return &http2.Transport{
		DialTLS: func(network, addr string, tlsCfg *tls.Config) (net.Conn, error) {
			return tls.DialWithDialer(dialer, network, addr, tlsCfg)
		},
		TLSClientConfig:  cfg.TLSConfig,
		ReadIdleTimeout:  3 * time.Second,
		PingTimeout:      3 * time.Second,
		WriteByteTimeout: 3 * time.Second,
	}
}

func (c TransportConfig) dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   c.DialTimeout,
		KeepAlive: c.KeepAlive,
	}
}
