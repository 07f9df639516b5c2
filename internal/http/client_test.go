package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	flankshttp "github.com/fivetwenty-io/flanks-go/internal/http"
	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// MockTokenManager for testing. Each refresh switches to the next token in
// the list.
type MockTokenManager struct {
	mu         sync.Mutex
	tokens     []string
	current    int
	err        error
	refreshErr error
	refreshes  atomic.Int32
}

func newMockTokenManager(tokens ...string) *MockTokenManager {
	return &MockTokenManager{tokens: tokens}
}

func (m *MockTokenManager) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}

	return m.tokens[m.current], nil
}

func (m *MockTokenManager) RefreshToken(ctx context.Context) error {
	m.refreshes.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refreshErr != nil {
		return m.refreshErr
	}

	if m.current < len(m.tokens)-1 {
		m.current++
	}

	return nil
}

func (m *MockTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens = append(m.tokens, token)
	m.current = len(m.tokens) - 1
}

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) {
	l.record("debug", msg, fields)
}

func (l *MockLogger) Info(msg string, fields map[string]interface{}) {
	l.record("info", msg, fields)
}

func (l *MockLogger) Warn(msg string, fields map[string]interface{}) {
	l.record("warn", msg, fields)
}

func (l *MockLogger) Error(msg string, fields map[string]interface{}) {
	l.record("error", msg, fields)
}

func (l *MockLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs := make([]string, 0, len(l.logs))
	for _, entry := range l.logs {
		msgs = append(msgs, entry["msg"].(string))
	}

	return msgs
}

// statusSequence serves the given statuses in order, repeating the last one, and
// counts the requests it saw.
func statusSequence(t *testing.T, body string, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var count atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		n := int(count.Add(1))

		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}

		writer.WriteHeader(status)

		if status < http.StatusMultipleChoices {
			_, _ = io.WriteString(writer, body)
		}
	}))
	t.Cleanup(server.Close)

	return server, &count
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()

	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/v0/bank/available", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Equal(t, "flanks-go/0.1.0", request.Header.Get("User-Agent"))
			assert.Empty(t, request.Header.Get("Content-Type"))

			_, err := uuid.Parse(request.Header.Get("X-Request-ID"))
			assert.NoError(t, err)

			_ = json.NewEncoder(writer).Encode([]map[string]string{{"id": "bank-1", "name": "Test Bank"}})
		}))
		defer server.Close()

		client := flankshttp.NewClient(server.URL, newMockTokenManager("test-token"))

		resp, err := client.Do(context.Background(), &flankshttp.Request{
			Method: "GET",
			Path:   "/v0/bank/available",
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result []map[string]string

		err = json.Unmarshal(resp.Body, &result)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "bank-1", result[0]["id"])
	})

	t.Run("request with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/v0/platform/link", request.URL.Path)
			assert.Equal(t, "link_token=lt-1", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := flankshttp.NewClient(server.URL, nil)

		resp, err := client.Do(context.Background(), &flankshttp.Request{
			Method: "GET",
			Path:   "/v0/platform/link",
			Query:  url.Values{"link_token": []string{"lt-1"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
			assert.Empty(t, request.Header.Get("Authorization"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "ct-1", body["credentials_token"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := flankshttp.NewClient(server.URL, nil)

		resp, err := client.Do(context.Background(), &flankshttp.Request{
			Method: "POST",
			Path:   "/v0/bank/credentials/status",
			Body:   map[string]string{"credentials_token": "ct-1"},
		})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(writer).Encode(map[string]string{"detail": "link not found"})
		}))
		defer server.Close()

		client := flankshttp.NewClient(server.URL, nil)

		resp, err := client.Do(context.Background(), &flankshttp.Request{
			Method: "POST",
			Path:   "/v0/links/edit-link",
			Body:   map[string]string{"token": "missing"},
		})
		require.Error(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		assert.True(t, errors.Is(err, flanks.ErrNotFound))

		apiErr, ok := flanks.AsError(err)
		require.True(t, ok)
		assert.Equal(t, 404, apiErr.StatusCode)
		assert.Equal(t, map[string]interface{}{"detail": "link not found"}, apiErr.ResponseBody)
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := flankshttp.NewClient(server.URL, nil)

		resp, err := client.Do(context.Background(), &flankshttp.Request{
			Method: "GET",
			Path:   "/v0/bank/available",
			Headers: map[string]string{
				"X-Custom-Header": "custom-value",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := flankshttp.NewClient(server.URL, nil, flankshttp.WithLogger(logger), flankshttp.WithDebug(true))

		_, err := client.Get(context.Background(), "/v0/bank/available", nil)
		require.NoError(t, err)

		msgs := logger.messages()
		require.NotEmpty(t, msgs)
		assert.Equal(t, "HTTP Request", msgs[0])
		assert.Equal(t, "HTTP Response", msgs[len(msgs)-1])
	})

	t.Run("without debug logging", func(t *testing.T) {
		t.Parallel()

		server, _ := statusSequence(t, `{}`, http.StatusOK)

		logger := &MockLogger{}
		client := flankshttp.NewClient(server.URL, nil, flankshttp.WithLogger(logger))

		_, err := client.Get(context.Background(), "/v0/bank/available", nil)
		require.NoError(t, err)
		assert.Empty(t, logger.messages())
	})

	t.Run("token manager failure", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `{}`, http.StatusOK)

		tokens := newMockTokenManager("unused")
		tokens.err = errors.New("credentials store unavailable")

		client := flankshttp.NewClient(server.URL, tokens)

		_, err := client.Get(context.Background(), "/v0/bank/available", nil)
		require.Error(t, err)
		assert.True(t, flanks.IsAuth(err))
		assert.Equal(t, int32(0), count.Load())
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(*flankshttp.Client, context.Context) (*flankshttp.Response, error)
	}{
		{
			name:   "GET",
			method: "GET",
			fn: func(c *flankshttp.Client, ctx context.Context) (*flankshttp.Response, error) {
				return c.Get(ctx, "/test", nil)
			},
		},
		{
			name:   "POST",
			method: "POST",
			fn: func(c *flankshttp.Client, ctx context.Context) (*flankshttp.Response, error) {
				return c.Post(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PUT",
			method: "PUT",
			fn: func(c *flankshttp.Client, ctx context.Context) (*flankshttp.Response, error) {
				return c.Put(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PATCH",
			method: "PATCH",
			fn: func(c *flankshttp.Client, ctx context.Context) (*flankshttp.Response, error) {
				return c.Patch(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "DELETE",
			method: "DELETE",
			fn: func(c *flankshttp.Client, ctx context.Context) (*flankshttp.Response, error) {
				return c.Delete(ctx, "/test")
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/test", request.URL.Path)
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := flankshttp.NewClient(server.URL, nil)
			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()

	t.Run("retries on 5xx errors", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `{}`, 500, 500, 200)

		client := flankshttp.NewClient(server.URL, nil, flankshttp.WithRetryConfig(3, 10*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), count.Load())
	})

	t.Run("retries on rate limiting", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `{}`, 429, 200)

		client := flankshttp.NewClient(server.URL, nil, flankshttp.WithRetryConfig(3, 10*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(2), count.Load())
	})

	t.Run("does not retry on client errors", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `{}`, 400)

		client := flankshttp.NewClient(server.URL, nil, flankshttp.WithRetryConfig(3, 10*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.True(t, flanks.IsValidation(err))
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, int32(1), count.Load())
	})

	t.Run("persistent server error makes max retries plus one attempts", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `{}`, 503)

		client := flankshttp.NewClient(server.URL, nil, flankshttp.WithRetryConfig(2, time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.True(t, flanks.IsServer(err))
		assert.Equal(t, 503, flanks.StatusCode(err))
		assert.Equal(t, 503, resp.StatusCode)
		assert.Equal(t, int32(3), count.Load())
	})

	t.Run("zero retries makes one attempt", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `{}`, 500)

		client := flankshttp.NewClient(server.URL, nil, flankshttp.WithRetryConfig(0, time.Millisecond))

		_, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.True(t, flanks.IsServer(err))
		assert.Equal(t, int32(1), count.Load())
	})

	t.Run("network errors are not retried by default", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		baseURL := server.URL
		server.Close()

		var attempts atomic.Int32

		chain := flanks.NewInterceptorChain()
		chain.AddRequestInterceptor(func(ctx context.Context, req *flanks.Request) error {
			attempts.Add(1)

			return nil
		})

		client := flankshttp.NewClient(baseURL, nil,
			flankshttp.WithRetryConfig(2, time.Millisecond),
			flankshttp.WithInterceptors(chain),
		)

		_, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.True(t, flanks.IsNetwork(err))
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("network errors are retried when enabled", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		baseURL := server.URL
		server.Close()

		var attempts atomic.Int32

		chain := flanks.NewInterceptorChain()
		chain.AddRequestInterceptor(func(ctx context.Context, req *flanks.Request) error {
			attempts.Add(1)

			return nil
		})

		client := flankshttp.NewClient(baseURL, nil,
			flankshttp.WithRetryConfig(2, time.Millisecond),
			flankshttp.WithRetryNetworkErrors(true),
			flankshttp.WithInterceptors(chain),
		)

		_, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.True(t, flanks.IsNetwork(err))
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("cancelled context is a network error", func(t *testing.T) {
		t.Parallel()

		server, _ := statusSequence(t, `{}`, 200)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := flankshttp.NewClient(server.URL, nil)

		_, err := client.Get(ctx, "/test", nil)
		require.Error(t, err)
		assert.True(t, flanks.IsNetwork(err))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_AuthRecovery(t *testing.T) {
	t.Parallel()

	t.Run("rejected token is refreshed once and the request replayed", func(t *testing.T) {
		t.Parallel()

		var seen []string

		var mu sync.Mutex

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			mu.Lock()
			seen = append(seen, request.Header.Get("Authorization"))
			mu.Unlock()

			if request.Header.Get("Authorization") != "Bearer fresh" {
				writer.WriteHeader(http.StatusUnauthorized)

				return
			}

			_, _ = io.WriteString(writer, `{"status":"ok"}`)
		}))
		defer server.Close()

		tokens := newMockTokenManager("stale", "fresh")
		client := flankshttp.NewClient(server.URL, tokens)

		result, err := client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"ok"}`, string(result))
		assert.Equal(t, int32(1), tokens.refreshes.Load())
		assert.Equal(t, []string{"Bearer stale", "Bearer fresh"}, seen)
	})

	t.Run("second rejection propagates", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `{}`, 401)

		tokens := newMockTokenManager("stale", "also-stale")
		client := flankshttp.NewClient(server.URL, tokens)

		_, err := client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
		require.Error(t, err)
		assert.True(t, flanks.IsAuth(err))
		assert.Equal(t, 401, flanks.StatusCode(err))
		assert.Equal(t, int32(1), tokens.refreshes.Load())
		assert.Equal(t, int32(2), count.Load())
	})

	t.Run("recovery does not consume the retry budget", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `{"ok":true}`, 401, 200)

		tokens := newMockTokenManager("stale", "fresh")
		client := flankshttp.NewClient(server.URL, tokens, flankshttp.WithRetryConfig(0, time.Millisecond))

		result, err := client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(result))
		assert.Equal(t, int32(2), count.Load())
	})

	t.Run("forbidden also triggers recovery", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `[]`, 403, 200)

		tokens := newMockTokenManager("stale", "fresh")
		client := flankshttp.NewClient(server.URL, tokens)

		_, err := client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, int32(1), tokens.refreshes.Load())
		assert.Equal(t, int32(2), count.Load())
	})

	t.Run("refresh failure is returned", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `{}`, 401)

		tokens := newMockTokenManager("stale")
		tokens.refreshErr = &flanks.Error{Kind: flanks.KindAuth, Message: "invalid client credentials", StatusCode: 403}

		client := flankshttp.NewClient(server.URL, tokens)

		_, err := client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
		require.Error(t, err)
		assert.True(t, flanks.IsAuth(err))
		assert.Equal(t, 403, flanks.StatusCode(err))
		assert.Equal(t, int32(1), count.Load())
	})

	t.Run("other errors do not refresh", func(t *testing.T) {
		t.Parallel()

		server, _ := statusSequence(t, `{}`, 404)

		tokens := newMockTokenManager("token")
		client := flankshttp.NewClient(server.URL, tokens)

		_, err := client.Call(context.Background(), "GET", "/missing", nil, nil)
		require.Error(t, err)
		assert.True(t, flanks.IsNotFound(err))
		assert.Equal(t, int32(0), tokens.refreshes.Load())
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Call(t *testing.T) {
	t.Parallel()

	t.Run("retries until success", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `{"result":"ok"}`, 500, 500, 200)

		client := flankshttp.NewClient(server.URL, newMockTokenManager("token"),
			flankshttp.WithRetryConfig(2, 10*time.Millisecond))

		result, err := client.Call(context.Background(), "POST", "/aggregation/v2/list-products", map[string]interface{}{"query": map[string]interface{}{}}, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"result":"ok"}`, string(result))
		assert.Equal(t, int32(3), count.Load())
	})

	t.Run("GET sends params as query and no body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "lt-1", request.URL.Query().Get("link_token"))

			body, _ := io.ReadAll(request.Body)
			assert.Empty(t, body)
			assert.Empty(t, request.Header.Get("Content-Type"))

			_, _ = io.WriteString(writer, `[{"code":"c-1"}]`)
		}))
		defer server.Close()

		client := flankshttp.NewClient(server.URL, nil)

		result, err := client.Call(context.Background(), "GET", "/v0/platform/link",
			map[string]string{"ignored": "yes"}, url.Values{"link_token": []string{"lt-1"}})
		require.NoError(t, err)
		assert.JSONEq(t, `[{"code":"c-1"}]`, string(result))
	})

	t.Run("empty body decodes as null", func(t *testing.T) {
		t.Parallel()

		server, _ := statusSequence(t, ``, http.StatusOK)

		client := flankshttp.NewClient(server.URL, nil)

		result, err := client.Call(context.Background(), "POST", "/v0/links/pause-link", map[string]string{"token": "lt"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "null", string(result))
	})

	t.Run("non-JSON success body is a server error", func(t *testing.T) {
		t.Parallel()

		server, _ := statusSequence(t, `<html>maintenance</html>`, http.StatusOK)

		client := flankshttp.NewClient(server.URL, nil)

		_, err := client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
		require.Error(t, err)
		assert.True(t, flanks.IsServer(err))
		assert.Equal(t, 200, flanks.StatusCode(err))
		assert.ErrorIs(t, err, flanks.ErrUnexpectedResponse)
	})

	t.Run("GET responses are cached", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `[{"id":"bank-1"}]`, http.StatusOK)

		client := flankshttp.NewClient(server.URL, nil, flankshttp.WithCache(flanks.NewMemoryCache(10), time.Minute))

		for range 3 {
			result, err := client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":"bank-1"}]`, string(result))
		}

		assert.Equal(t, int32(1), count.Load())

		stats := client.CacheStats()
		assert.Equal(t, int64(2), stats.Hits)
		assert.Equal(t, int64(1), stats.Sets)
	})

	t.Run("POST responses are not cached", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `{"items":[]}`, http.StatusOK)

		client := flankshttp.NewClient(server.URL, nil, flankshttp.WithCache(flanks.NewMemoryCache(10), time.Minute))

		for range 2 {
			_, err := client.Call(context.Background(), "POST", "/report/v1/list-templates", map[string]interface{}{}, nil)
			require.NoError(t, err)
		}

		assert.Equal(t, int32(2), count.Load())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `[]`, 500, 200)

		client := flankshttp.NewClient(server.URL, nil,
			flankshttp.WithRetryConfig(0, time.Millisecond),
			flankshttp.WithCache(flanks.NewMemoryCache(10), time.Minute))

		_, err := client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
		require.Error(t, err)

		result, err := client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(result))
		assert.Equal(t, int32(2), count.Load())
	})
}

func TestClient_Close(t *testing.T) {
	t.Parallel()

	server, count := statusSequence(t, `{}`, http.StatusOK)

	client := flankshttp.NewClient(server.URL, newMockTokenManager("token"))

	_, err := client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err = client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
	require.Error(t, err)
	assert.True(t, flanks.IsConfig(err))
	assert.ErrorIs(t, err, flanks.ErrClientClosed)
	assert.Equal(t, int32(1), count.Load())
}

func TestClient_CloseWithCache(t *testing.T) {
	t.Parallel()

	server, count := statusSequence(t, `{"v":1}`, http.StatusOK)

	client := flankshttp.NewClient(server.URL, nil, flankshttp.WithCache(flanks.NewMemoryCache(10), time.Minute))

	raw, err := client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(raw))

	require.NoError(t, client.Close())

	raw, err = client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
	require.Error(t, err)
	assert.Nil(t, raw)
	assert.True(t, flanks.IsConfig(err))
	assert.ErrorIs(t, err, flanks.ErrClientClosed)
	assert.Equal(t, int32(1), count.Load())
}

func TestClient_BackoffSchedule(t *testing.T) {
	t.Parallel()

	const base = 100 * time.Millisecond

	var (
		mu    sync.Mutex
		times []time.Time
	)

	statuses := []int{http.StatusInternalServerError, http.StatusInternalServerError, http.StatusOK}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		status := statuses[len(times)-1]
		mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := flankshttp.NewClient(server.URL, nil, flankshttp.WithRetryConfig(2, base))

	_, err := client.Call(context.Background(), "GET", "/retry", nil, nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, times, 3)

	first := times[1].Sub(times[0])
	second := times[2].Sub(times[1])

	assert.GreaterOrEqual(t, first, base)
	assert.Less(t, first, 2*base)
	assert.GreaterOrEqual(t, second, 2*base)
	assert.Less(t, second, 4*base)
}

func TestClient_SharedTransport(t *testing.T) {
	t.Parallel()

	server, _ := statusSequence(t, `{}`, http.StatusOK)

	transport := flankshttp.NewTransport()
	first := flankshttp.NewClient(server.URL, nil, flankshttp.WithTransport(transport))
	second := flankshttp.NewClient(server.URL, nil, flankshttp.WithTransport(transport))

	_, err := first.Get(context.Background(), "/a", nil)
	require.NoError(t, err)
	assert.True(t, transport.Opened())

	require.NoError(t, first.Close())

	_, err = second.Get(context.Background(), "/b", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, flanks.ErrClientClosed)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Interceptors(t *testing.T) {
	t.Parallel()

	t.Run("request interceptors can add headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "tenant-a", request.Header.Get("X-Tenant"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		chain := flanks.NewInterceptorChain()
		chain.AddRequestInterceptor(flanks.HeaderInterceptor(map[string]string{"X-Tenant": "tenant-a"}))

		client := flankshttp.NewClient(server.URL, nil, flankshttp.WithInterceptors(chain))

		_, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
	})

	t.Run("interceptors run once per attempt", func(t *testing.T) {
		t.Parallel()

		server, _ := statusSequence(t, `{}`, 502, 200)

		var (
			mu       sync.Mutex
			attempts []int
			statuses []int
			bodies   []string
		)

		chain := flanks.NewInterceptorChain()
		chain.AddRequestInterceptor(func(ctx context.Context, req *flanks.Request) error {
			mu.Lock()
			defer mu.Unlock()

			attempts = append(attempts, req.Attempt)
			bodies = append(bodies, string(req.Body))

			return nil
		})
		chain.AddResponseInterceptor(func(ctx context.Context, req *flanks.Request, resp *flanks.Response) error {
			mu.Lock()
			defer mu.Unlock()

			statuses = append(statuses, resp.StatusCode)

			return nil
		})

		client := flankshttp.NewClient(server.URL, nil,
			flankshttp.WithRetryConfig(1, time.Millisecond),
			flankshttp.WithInterceptors(chain))

		_, err := client.Post(context.Background(), "/test", map[string]int{"page": 1})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, attempts)
		assert.Equal(t, []int{502, 200}, statuses)
		assert.Equal(t, []string{`{"page":1}`, `{"page":1}`}, bodies)
	})

	t.Run("failing interceptor stops the request", func(t *testing.T) {
		t.Parallel()

		server, count := statusSequence(t, `{}`, http.StatusOK)

		chain := flanks.NewInterceptorChain()
		chain.AddRequestInterceptor(func(ctx context.Context, req *flanks.Request) error {
			return errors.New("quota exhausted")
		})

		client := flankshttp.NewClient(server.URL, nil,
			flankshttp.WithRetryConfig(3, time.Millisecond),
			flankshttp.WithRetryNetworkErrors(true),
			flankshttp.WithInterceptors(chain))

		_, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.True(t, flanks.IsConfig(err))
		assert.Equal(t, int32(0), count.Load())
	})

	t.Run("metrics collector sees every attempt", func(t *testing.T) {
		t.Parallel()

		server, _ := statusSequence(t, `{}`, 500, 200)

		collector := flanks.NewMetricsCollector()
		client := flankshttp.NewClient(server.URL, nil,
			flankshttp.WithRetryConfig(1, time.Millisecond),
			flankshttp.WithInterceptors(flanks.NewMetricsInterceptorChain(collector)))

		_, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)

		metrics := collector.GetMetrics("GET /test")
		require.NotNil(t, metrics)
		assert.Equal(t, int64(2), metrics.TotalRequests)
		assert.Equal(t, int64(1), metrics.TotalErrors)
		assert.Equal(t, 200, metrics.LastStatusCode)
	})
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			for _, point := range sum.DataPoints {
				total += point.Value
			}
		}
	}

	return total
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Telemetry(t *testing.T) {
	t.Parallel()

	t.Run("successful call with a retry", func(t *testing.T) {
		t.Parallel()

		server, _ := statusSequence(t, `[]`, 503, 200)

		reader := sdkmetric.NewManualReader()
		recorder := tracetest.NewSpanRecorder()

		client := flankshttp.NewClient(server.URL, nil,
			flankshttp.WithRetryConfig(1, time.Millisecond),
			flankshttp.WithTelemetry(
				sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)),
				sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
			))

		_, err := client.Call(context.Background(), "GET", "/v0/bank/available", nil, nil)
		require.NoError(t, err)

		assert.Equal(t, int64(2), counterValue(t, reader, "flanks.client.attempts"))
		assert.Equal(t, int64(0), counterValue(t, reader, "flanks.client.errors"))

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "flanks GET /v0/bank/available", spans[0].Name())

		events := spans[0].Events()
		require.Len(t, events, 1)
		assert.Equal(t, "retry", events[0].Name)
	})

	t.Run("failed call records the error kind", func(t *testing.T) {
		t.Parallel()

		server, _ := statusSequence(t, `{}`, 404)

		reader := sdkmetric.NewManualReader()
		recorder := tracetest.NewSpanRecorder()

		client := flankshttp.NewClient(server.URL, nil,
			flankshttp.WithTelemetry(
				sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)),
				sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
			))

		_, err := client.Call(context.Background(), "POST", "/v0/links/delete-link", map[string]string{"token": "x"}, nil)
		require.Error(t, err)

		assert.Equal(t, int64(1), counterValue(t, reader, "flanks.client.errors"))

		spans := recorder.Ended()
		require.Len(t, spans, 1)

		var kind string

		for _, attr := range spans[0].Attributes() {
			if attr.Key == "flanks.error.kind" {
				kind = attr.Value.AsString()
			}
		}

		assert.Equal(t, "not_found", kind)
	})

	t.Run("token refreshes are counted", func(t *testing.T) {
		t.Parallel()

		reader := sdkmetric.NewManualReader()

		client := flankshttp.NewClient("http://unused.invalid", nil,
			flankshttp.WithTelemetry(nil, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))))

		client.RecordRefresh(context.Background(), nil)
		client.RecordRefresh(context.Background(), errors.New("boom"))

		assert.Equal(t, int64(2), counterValue(t, reader, "flanks.client.token_refreshes"))
	})
}
