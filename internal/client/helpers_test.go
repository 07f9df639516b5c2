package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	internalhttp "github.com/fivetwenty-io/flanks-go/internal/http"
)

// capturedRequest is what the test server saw for one request.
type capturedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]interface{}
}

// apiStub serves canned responses in order and records every request.
type apiStub struct {
	mu        sync.Mutex
	responses []string
	status    int
	requests  []capturedRequest
	server    *httptest.Server
}

func newAPIStub(t *testing.T, responses ...string) *apiStub {
	t.Helper()

	stub := &apiStub{responses: responses, status: http.StatusOK}

	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured := capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
		}

		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &captured.Body)
		}

		stub.mu.Lock()
		index := len(stub.requests)
		stub.requests = append(stub.requests, captured)
		status := stub.status
		stub.mu.Unlock()

		response := ""
		if len(stub.responses) > 0 {
			response = stub.responses[min(index, len(stub.responses)-1)]
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(stub.server.Close)

	return stub
}

func (s *apiStub) withStatus(status int) *apiStub {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status

	return s
}

func (s *apiStub) captured(t *testing.T) []capturedRequest {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	require.NotEmpty(t, s.requests, "no request reached the server")

	return append([]capturedRequest(nil), s.requests...)
}

func (s *apiStub) last(t *testing.T) capturedRequest {
	t.Helper()

	requests := s.captured(t)

	return requests[len(requests)-1]
}

// caller returns an unauthenticated HTTP client against the stub with retries off.
func (s *apiStub) caller() *internalhttp.Client {
	return internalhttp.NewClient(s.server.URL, nil, internalhttp.WithRetryConfig(0, time.Millisecond))
}
