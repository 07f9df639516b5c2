package http

import (
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger flanks.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig sets the number of retries after the first attempt and the base
// backoff. Retry n (0-indexed) waits backoff * 2^n.
func WithRetryConfig(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

// WithRetryNetworkErrors makes transport failures retryable.
func WithRetryNetworkErrors(retry bool) Option {
	return func(c *Client) {
		c.retryNetworkErrors = retry
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTransport shares a connection pool, typically with the token manager.
func WithTransport(transport *Transport) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// WithInterceptors runs chain around every attempt.
func WithInterceptors(chain *flanks.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithCache caches successful GET responses for ttl.
func WithCache(cache flanks.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = flanks.NewCacheManager(cache, ttl)
		}
	}
}

// WithTelemetry sets the OpenTelemetry providers. Nil providers fall back to the
// global ones.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(c *Client) {
		c.telemetry = newTelemetry(tp, mp)
	}
}
