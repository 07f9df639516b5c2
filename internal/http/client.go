package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/flanks-go/internal/auth"
	"github.com/fivetwenty-io/flanks-go/internal/constants"
	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// maxBackoffShift bounds the exponent in backoff * 2^n.
const maxBackoffShift = 30

// Client is the authenticated request executor. Every call gets a bearer token
// from the token manager, is retried on 5xx, 429 and (optionally) transport
// failures, and is retried once more with a fresh token when the API rejects
// the token.
type Client struct {
	baseURL            string
	tokenManager       auth.TokenManager
	logger             flanks.Logger
	debug              bool
	maxRetries         int
	backoff            time.Duration
	retryNetworkErrors bool
	timeout            time.Duration
	userAgent          string
	transport          *Transport
	interceptors       *flanks.InterceptorChain
	cache              *flanks.CacheManager
	telemetry          *telemetry

	policy *retryablehttp.Client
	once   *retryablehttp.Client
}

var _ flanks.Caller = (*Client)(nil)

// Request represents an API request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// Response represents an API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// NewClient creates a new HTTP client. A nil tokenManager sends no
// Authorization header.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		tokenManager: tokenManager,
		maxRetries:   constants.DefaultRetryMax,
		backoff:      constants.DefaultRetryBackoff,
		timeout:      constants.DefaultHTTPTimeout,
		userAgent:    constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.transport == nil {
		client.transport = NewTransport()
	}

	if client.telemetry == nil {
		client.telemetry = newTelemetry(nil, nil)
	}

	if client.maxRetries < 0 {
		client.maxRetries = 0
	}

	client.policy = client.newRetryClient(client.maxRetries)
	client.once = client.newRetryClient(0)

	return client
}

func (c *Client) newRetryClient(retryMax int) *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{
		Transport: &attemptRoundTripper{client: c, base: c.transport},
		Timeout:   c.timeout,
	}
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = c.backoff
	retryClient.RetryWaitMax = c.backoff
	retryClient.CheckRetry = c.checkRetry
	retryClient.Backoff = c.backoffFor
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if c.logger != nil {
		retryClient.Logger = &leveledLogger{logger: c.logger, debug: c.debug}
	} else {
		retryClient.Logger = nil
	}

	return retryClient
}

func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		// Local failures (closed transport, interceptor errors) are final.
		if _, ok := flanks.AsError(err); ok {
			return false, nil
		}

		return c.retryNetworkErrors, nil
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return true, nil
	}

	return false, nil
}

func (c *Client) backoffFor(_, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
	if attemptNum > maxBackoffShift {
		attemptNum = maxBackoffShift
	}

	return c.backoff * time.Duration(1<<uint(attemptNum))
}

// Do executes a request. On an HTTP error the response is returned together with
// the classified error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.transport.Closed() {
		return nil, flanks.NewClosedError()
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.execute(ctx, c.policy, req, token)
	if err == nil || c.tokenManager == nil || !flanks.IsAuth(err) {
		return resp, err
	}

	c.warn("token rejected, refreshing", map[string]interface{}{
		"method": req.Method,
		"path":   req.Path,
		"status": flanks.StatusCode(err),
	})

	refreshErr := c.tokenManager.RefreshToken(ctx)
	if refreshErr != nil {
		return resp, classifyTokenError(refreshErr)
	}

	token, err = c.token(ctx)
	if err != nil {
		return resp, err
	}

	return c.execute(ctx, c.once, req, token)
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.tokenManager == nil {
		return "", nil
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return "", classifyTokenError(err)
	}

	return token, nil
}

func classifyTokenError(err error) error {
	if _, ok := flanks.AsError(err); ok {
		return err
	}

	return &flanks.Error{Kind: flanks.KindAuth, Message: "obtaining access token", Cause: err}
}

// attemptState travels in the request context so the round tripper can number
// the attempts of one logical request.
type attemptState struct {
	attempts atomic.Int32
	body     []byte
}

type attemptStateKey struct{}

func (c *Client) execute(ctx context.Context, rc *retryablehttp.Client, req *Request, token string) (*Response, error) {
	var (
		payload []byte
		rawBody interface{}
	)

	if req.Body != nil && req.Method != http.MethodGet {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &flanks.Error{Kind: flanks.KindValidation, Message: "encoding request body", Cause: err}
		}

		payload = encoded
		rawBody = encoded
	}

	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	state := &attemptState{body: payload}
	ctx = context.WithValue(ctx, attemptStateKey{}, state)

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, rawBody)
	if err != nil {
		return nil, flanks.NewConfigError("building request", err)
	}

	httpReq.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	httpReq.Header.Set(constants.HeaderUserAgent, c.userAgent)
	httpReq.Header.Set(constants.HeaderRequestID, uuid.NewString())

	if payload != nil {
		httpReq.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}

	if token != "" {
		httpReq.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if c.debug {
		c.log("HTTP Request", map[string]interface{}{
			"method":     req.Method,
			"url":        fullURL,
			"request_id": httpReq.Header.Get(constants.HeaderRequestID),
		})
	}

	started := time.Now()

	httpResp, err := rc.Do(httpReq)
	if err != nil {
		if httpResp != nil {
			_ = httpResp.Body.Close()
		}

		if apiErr, ok := flanks.AsError(err); ok {
			return nil, apiErr
		}

		return nil, flanks.NewNetworkError(err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, flanks.NewNetworkError(err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	if c.debug {
		c.log("HTTP Response", map[string]interface{}{
			"status":   httpResp.StatusCode,
			"attempts": state.attempts.Load(),
			"duration": time.Since(started).String(),
		})
	}

	if apiErr := flanks.ErrorFromResponse(httpResp.StatusCode, body); apiErr != nil {
		return resp, apiErr
	}

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPut,
		Path:   path,
		Body:   body,
	})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPatch,
		Path:   path,
		Body:   body,
	})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodDelete,
		Path:   path,
	})
}

// Call implements flanks.Caller. It returns the raw JSON of a 2xx response; an
// empty body decodes as null. Successful GETs are served from and stored in the
// cache when one is configured.
func (c *Client) Call(ctx context.Context, method, path string, body interface{}, params url.Values) (json.RawMessage, error) {
	ctx, span := c.telemetry.startCall(ctx, method, path)
	started := time.Now()

	result, err := c.call(ctx, method, path, body, params)

	c.telemetry.endCall(ctx, span, method, path, started, err)

	return result, err
}

func (c *Client) call(ctx context.Context, method, path string, body interface{}, params url.Values) (json.RawMessage, error) {
	if c.transport.Closed() {
		return nil, flanks.NewClosedError()
	}

	cacheKey := ""

	if method == http.MethodGet && c.cache != nil {
		cacheKey = c.cache.GetCacheKey(method, path, params)

		cached, err := c.cache.Get(ctx, cacheKey)
		if err == nil {
			return json.RawMessage(cached), nil
		}
	}

	resp, err := c.Do(ctx, &Request{
		Method: method,
		Path:   path,
		Query:  params,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(resp.Body)
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}

	if !json.Valid(trimmed) {
		return nil, &flanks.Error{
			Kind:       flanks.KindServer,
			Message:    "response is not valid JSON",
			StatusCode: resp.StatusCode,
			Cause:      flanks.ErrUnexpectedResponse,
		}
	}

	if cacheKey != "" {
		err = c.cache.Set(ctx, cacheKey, trimmed)
		if err != nil {
			c.warn("caching response failed", map[string]interface{}{"path": path, "error": err.Error()})
		}
	}

	return json.RawMessage(trimmed), nil
}

// RecordRefresh reports a token exchange outcome to the client's metrics.
func (c *Client) RecordRefresh(ctx context.Context, err error) {
	c.telemetry.recordRefresh(ctx, err)
}

// CacheStats returns the response cache counters, or zero values without a cache.
func (c *Client) CacheStats() flanks.CacheStats {
	if c.cache == nil {
		return flanks.CacheStats{}
	}

	return c.cache.GetStats()
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

func (c *Client) log(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, fields)
	}
}

func (c *Client) warn(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, fields)
	}
}

// attemptRoundTripper runs once per attempt: it numbers the attempt, records it,
// and passes it through the interceptor chain. It deliberately has no
// CloseIdleConnections, so go-retryablehttp cannot drain the shared pool.
type attemptRoundTripper struct {
	client *Client
	base   http.RoundTripper
}

func (rt *attemptRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	attempt := 1

	var body []byte

	if state, ok := ctx.Value(attemptStateKey{}).(*attemptState); ok {
		attempt = int(state.attempts.Add(1))
		body = state.body
	}

	rt.client.telemetry.recordAttempt(ctx, req.Method, req.URL.Path, attempt)

	if attempt > 1 {
		rt.client.warn("retrying request", map[string]interface{}{
			"method":  req.Method,
			"path":    req.URL.Path,
			"attempt": attempt,
		})
	}

	chain := rt.client.interceptors
	if chain == nil {
		return rt.base.RoundTrip(req)
	}

	req = req.Clone(ctx)

	intercepted := &flanks.Request{
		Method:   req.Method,
		Path:     req.URL.Path,
		Headers:  req.Header,
		Body:     body,
		Attempt:  attempt,
		Metadata: make(map[string]interface{}),
	}

	err := chain.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}

		return nil, flanks.NewConfigError("request rejected by interceptor", err)
	}

	resp, err := rt.base.RoundTrip(req)

	observed := &flanks.Response{Error: err}

	if resp != nil {
		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		resp.Body = io.NopCloser(bytes.NewReader(respBody))

		observed.StatusCode = resp.StatusCode
		observed.Headers = resp.Header
		observed.Body = respBody
	}

	interceptErr := chain.ExecuteResponseInterceptors(ctx, intercepted, observed)
	if interceptErr != nil {
		var apiErr *flanks.Error
		if !errors.As(interceptErr, &apiErr) {
			interceptErr = flanks.NewConfigError("response rejected by interceptor", interceptErr)
		}

		return nil, interceptErr
	}

	return resp, err
}
