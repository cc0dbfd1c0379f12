// Package networking builds the HTTP clients and transports used for
// outbound backend requests.
package networking

import (
	"net/http"
	"time"
)

// HttpTimeout is the total timeout for outgoing non-streaming HTTP requests
const HttpTimeout = 30 * time.Second

// HttpClientBuilder provides a fluent interface for building HTTP clients
type HttpClientBuilder struct {
	clientTimeout         time.Duration
	tlsHandshakeTimeout   time.Duration
	responseHeaderTimeout time.Duration
	streaming             bool
}

// NewHttpClientBuilder returns a new HttpClientBuilder
func NewHttpClientBuilder() *HttpClientBuilder {
	return &HttpClientBuilder{
		clientTimeout:         HttpTimeout,
		tlsHandshakeTimeout:   10 * time.Second,
		responseHeaderTimeout: 10 * time.Second,
	}
}

// WithTimeout overrides the total client timeout
func (b *HttpClientBuilder) WithTimeout(d time.Duration) *HttpClientBuilder {
	b.clientTimeout = d
	return b
}

// WithStreaming disables the total client timeout so that streaming
// responses can outlive it. The handshake and response-header timeouts
// still apply.
func (b *HttpClientBuilder) WithStreaming(streaming bool) *HttpClientBuilder {
	b.streaming = streaming
	return b
}

// BuildTransport creates the configured transport
func (b *HttpClientBuilder) BuildTransport() *http.Transport {
	return &http.Transport{
		TLSHandshakeTimeout:   b.tlsHandshakeTimeout,
		ResponseHeaderTimeout: b.responseHeaderTimeout,
	}
}

// Build creates the configured HTTP client
func (b *HttpClientBuilder) Build() *http.Client {
	client := &http.Client{
		Transport: b.BuildTransport(),
		Timeout:   b.clientTimeout,
	}
	if b.streaming {
		client.Timeout = 0
	}
	return client
}
