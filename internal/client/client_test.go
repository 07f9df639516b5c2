package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// fakeFlanks serves the token endpoint and a single entities endpoint.
type fakeFlanks struct {
	server        *httptest.Server
	tokenCalls    atomic.Int32
	apiCalls      atomic.Int32
	rejectNextAPI atomic.Bool
}

func newFakeFlanks(t *testing.T) *fakeFlanks {
	t.Helper()

	fake := &fakeFlanks{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v0/token", func(w http.ResponseWriter, r *http.Request) {
		n := fake.tokenCalls.Add(1)

		var body map[string]string

		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["client_id"] != "id" || body["client_secret"] != "secret" {
			w.WriteHeader(http.StatusForbidden)

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "token-" + string(rune('0'+n)),
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /v0/bank/available", func(w http.ResponseWriter, r *http.Request) {
		fake.apiCalls.Add(1)

		if fake.rejectNextAPI.CompareAndSwap(true, false) {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		_, _ = io.WriteString(w, `[{"id":"bbva","name":"BBVA"}]`)
	})

	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)

	return fake
}

func (f *fakeFlanks) config() *flanks.Config {
	config := flanks.DefaultConfig()
	config.ClientID = "id"
	config.ClientSecret = "secret"
	config.BaseURL = f.server.URL + "/"
	config.RetryBackoff = time.Millisecond

	return config
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), nil)
		require.Error(t, err)
		assert.True(t, flanks.IsConfig(err))
		assert.ErrorIs(t, err, flanks.ErrConfigRequired)
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &flanks.Config{ClientID: "id"})
		require.Error(t, err)
		assert.True(t, flanks.IsConfig(err))
		assert.ErrorIs(t, err, flanks.ErrMissingCredentials)
	})

	t.Run("does not mutate the caller's config", func(t *testing.T) {
		t.Parallel()

		config := &flanks.Config{ClientID: "id", ClientSecret: "secret"}

		client, err := New(context.Background(), config)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		assert.Empty(t, config.BaseURL)
	})

	t.Run("token is exchanged once and reused", func(t *testing.T) {
		t.Parallel()

		fake := newFakeFlanks(t)

		client, err := New(context.Background(), fake.config())
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		assert.Equal(t, int32(0), fake.tokenCalls.Load())

		for range 2 {
			entities, err := client.Entities().List(context.Background())
			require.NoError(t, err)
			require.Len(t, entities, 1)
		}

		assert.Equal(t, int32(1), fake.tokenCalls.Load())
		assert.Equal(t, int32(2), fake.apiCalls.Load())
	})

	t.Run("revoked token is refreshed", func(t *testing.T) {
		t.Parallel()

		fake := newFakeFlanks(t)
		reader := sdkmetric.NewManualReader()

		config := fake.config()
		config.MeterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

		client, err := New(context.Background(), config)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		_, err = client.Entities().List(context.Background())
		require.NoError(t, err)

		fake.rejectNextAPI.Store(true)

		_, err = client.Entities().List(context.Background())
		require.NoError(t, err)

		assert.Equal(t, int32(2), fake.tokenCalls.Load())
		assert.Equal(t, int32(3), fake.apiCalls.Load())

		var rm metricdata.ResourceMetrics

		require.NoError(t, reader.Collect(context.Background(), &rm))

		var refreshes int64

		for _, scope := range rm.ScopeMetrics {
			for _, m := range scope.Metrics {
				if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "flanks.client.token_refreshes" {
					for _, point := range sum.DataPoints {
						refreshes += point.Value
					}
				}
			}
		}

		assert.Equal(t, int64(2), refreshes)
	})

	t.Run("invalid credentials surface as auth error", func(t *testing.T) {
		t.Parallel()

		fake := newFakeFlanks(t)

		config := fake.config()
		config.ClientSecret = "wrong"

		client, err := New(context.Background(), config)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		_, err = client.Entities().List(context.Background())
		require.Error(t, err)
		assert.True(t, flanks.IsAuth(err))
		assert.Equal(t, http.StatusForbidden, flanks.StatusCode(err))
		assert.Equal(t, int32(0), fake.apiCalls.Load())
	})

	t.Run("Token returns the bearer token", func(t *testing.T) {
		t.Parallel()

		fake := newFakeFlanks(t)

		client, err := New(context.Background(), fake.config())
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		token, err := client.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)
		assert.NotNil(t, client.GetTokenManager())
	})

	t.Run("closed client rejects calls", func(t *testing.T) {
		t.Parallel()

		fake := newFakeFlanks(t)

		client, err := New(context.Background(), fake.config())
		require.NoError(t, err)
		require.NoError(t, client.Close())

		_, err = client.Entities().List(context.Background())
		require.Error(t, err)
		assert.True(t, flanks.IsConfig(err))
		assert.ErrorIs(t, err, flanks.ErrClientClosed)
		assert.Equal(t, int32(0), fake.tokenCalls.Load())
	})

	t.Run("raw transport access", func(t *testing.T) {
		t.Parallel()

		fake := newFakeFlanks(t)

		client, err := New(context.Background(), fake.config())
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		raw, err := client.Transport().Call(context.Background(), http.MethodGet, "/v0/bank/available", nil, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"bbva","name":"BBVA"}]`, string(raw))
	})

	t.Run("resource clients are wired", func(t *testing.T) {
		t.Parallel()

		client, err := New(context.Background(), &flanks.Config{ClientID: "id", ClientSecret: "secret"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		assert.NotNil(t, client.Entities())
		assert.NotNil(t, client.Connect())
		assert.NotNil(t, client.Credentials())
		assert.NotNil(t, client.Links())
		assert.NotNil(t, client.Reports())
		assert.NotNil(t, client.AggregationV1())
		assert.NotNil(t, client.AggregationV2())
		assert.Equal(t, flanks.CacheStats{}, client.CacheStats())
	})
}
