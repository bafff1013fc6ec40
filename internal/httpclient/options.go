// Package httpclient provides an instrumented HTTP client with OTEL
// tracing and metrics, used by REST venue gateways.
package httpclient

import (
	"net/http"
	"time"
)

// ClientOptions holds configuration for the instrumented HTTP client.
type ClientOptions struct {
	client         *http.Client
	providerName   string
	requestTimeout *time.Duration
	headers        map[string]string
	baseURL        string
	errorHandler   ResponseErrorHandler
}

// ClientOption is a function that configures ClientOptions.
type ClientOption func(*ClientOptions)

// NewClientOptions creates ClientOptions from variadic options.
func NewClientOptions(opts ...ClientOption) *ClientOptions {
	options := &ClientOptions{}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithProviderName sets the provider name for metrics and traces.
func WithProviderName(name string) ClientOption {
	return func(o *ClientOptions) {
		o.providerName = name
	}
}

// WithRequestTimeout sets the request timeout.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *ClientOptions) {
		o.requestTimeout = &timeout
	}
}

// WithBaseURL sets the base URL prepended to relative request paths.
func WithBaseURL(baseURL string) ClientOption {
	return func(o *ClientOptions) {
		o.baseURL = baseURL
	}
}

// WithDefaultHeaders sets headers attached to every request.
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(o *ClientOptions) {
		o.headers = headers
	}
}

// WithHTTPClient provides a pre-configured http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *ClientOptions) {
		o.client = client
	}
}

// ResponseErrorHandler inspects a response and converts venue-specific
// error payloads into errors.
type ResponseErrorHandler func(statusCode int, body []byte) error

// WithresponseErrorHandler sets a handler applied to every response.
func WithResponseErrorHandler(handler ResponseErrorHandler) ClientOption {
	return func(o *ClientOptions) {
		o.errorHandler = handler
	}
}
