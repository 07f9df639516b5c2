package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// Transport is the connection pool shared by the token exchange and API calls.
// The underlying *http.Transport is built on first use and reused until Close.
type Transport struct {
	mu     sync.Mutex
	base   *http.Transport
	closed bool
	build  func() *http.Transport
}

// NewTransport returns an unopened transport backed by a pooled cleanhttp transport.
func NewTransport() *Transport {
	return &Transport{build: cleanhttp.DefaultPooledTransport}
}

func (t *Transport) get() (*http.Transport, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, flanks.NewClosedError()
	}

	if t.base == nil {
		t.base = t.build()
	}

	return t.base, nil
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base, err := t.get()
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}

		return nil, err
	}

	return base.RoundTrip(req)
}

// HTTPClient returns a plain client over the shared pool, used for the token
// exchange.
func (t *Transport) HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: t, Timeout: timeout}
}

// Opened reports whether the pool has been built.
func (t *Transport) Opened() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.base != nil
}

// Closed reports whether Close has been called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}

// CloseIdleConnections drops idle pooled connections without closing the transport.
func (t *Transport) CloseIdleConnections() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.base != nil {
		t.base.CloseIdleConnections()
	}
}

// Close releases pooled connections. Later round trips fail with a Config error.
// Closing twice is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	if t.base != nil {
		t.base.CloseIdleConnections()
		t.base = nil
	}

	return nil
}
