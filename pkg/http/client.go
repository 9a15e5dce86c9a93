package http

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"
)

// ErrRedirect is returned when a gateway answers with a redirect
var ErrRedirect = errors.New("gateway redirect refused")

// HTTPClientConfig holds outbound pool and TLS settings for one gateway
type HTTPClientConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration

	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	DisableCompression bool
	InsecureSkipVerify bool
	MinTLSVersion      uint16
}

// GatewayClientConfig returns the pool used for EV or IRIS. Each gateway is
// a single host, so the whole pool goes to it. Some operator test
// environments present self-signed certificates; insecureSkipVerify must stay
// false in production.
func GatewayClientConfig(insecureSkipVerify bool) *HTTPClientConfig {
	return &HTTPClientConfig{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 50,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,

		DialTimeout:           10 * time.Second,
		KeepAlive:             60 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,

		// EV answers XML, IRIS small JSON documents
		DisableCompression: true,
		InsecureSkipVerify: insecureSkipVerify,
		MinTLSVersion:      tls.VersionTLS12,
	}
}

// NewHTTPClient builds a pooled client. Redirects are not followed: a
// recharge POST replayed against another location could settle twice.
func NewHTTPClient(cfg *HTTPClientConfig, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,

		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		DisableCompression:    cfg.DisableCompression,
		ForceAttemptHTTP2:     true,

		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // operator test environments only
			MinVersion:         cfg.MinTLSVersion,
		},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return ErrRedirect
		},
	}
}
