package flanks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fivetwenty-io/flanks-go/internal/constants"
)

// Caller is the transport contract every resource client is built on: one
// authenticated API call returning the raw JSON value of a 2xx response, or a
// classified *Error.
//
// body is JSON-encoded for non-GET methods and ignored for GET. params are sent as
// URL query parameters.
type Caller interface {
	Call(ctx context.Context, method, path string, body interface{}, params url.Values) (json.RawMessage, error)
}

// Client is the root Flanks API client.
type Client interface {
	Entities() EntitiesClient
	Connect() ConnectClient
	Credentials() CredentialsClient
	Links() LinksClient
	Reports() ReportsClient
	AggregationV1() AggregationV1Client
	AggregationV2() AggregationV2Client

	// Transport gives access to raw API calls for endpoints without a typed client.
	Transport() Caller

	// Close releases the underlying HTTP transport. Calls issued afterwards fail.
	Close() error
}

// TokenSource is implemented by clients that can hand out their current access
// token, exchanging credentials first if needed.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// EntitiesClient lists the banking entities Flanks can connect to.
type EntitiesClient interface {
	List(ctx context.Context) ([]Entity, error)
}

// ConnectClient wraps the Connect API v2.
type ConnectClient interface {
	ListSessions(ctx context.Context, query *SessionQuery) *PageIterator[Session]
	ListSessionsPage(ctx context.Context, query *SessionQuery, pageToken string) (*Page[Session], error)
	CreateSession(ctx context.Context, config *SessionConfig) (*Session, error)
	ListConnectors(ctx context.Context, connectorIDs []string) *PageIterator[Connector]
}

// CredentialsClient wraps the Credentials API.
type CredentialsClient interface {
	GetStatus(ctx context.Context, credentialsToken string) (*CredentialStatusResponse, error)
	List(ctx context.Context, page int) ([]Credential, error)
	ForceSCA(ctx context.Context, credentialsToken string) (*CredentialStatusResponse, error)
	ForceReset(ctx context.Context, credentialsToken string) (*CredentialStatusResponse, error)
	ForceTransaction(ctx context.Context, credentialsToken string) (*CredentialStatusResponse, error)
	Delete(ctx context.Context, credentialsToken string) error
}

// LinksClient wraps the legacy Links API.
type LinksClient interface {
	List(ctx context.Context) ([]Link, error)
	Create(ctx context.Context, request *LinkCreateRequest) (*Link, error)
	Edit(ctx context.Context, linkToken string, request *LinkUpdateRequest) (*Link, error)
	Delete(ctx context.Context, linkToken string) error
	Pause(ctx context.Context, linkToken string) (*Link, error)
	Resume(ctx context.Context, linkToken string) (*Link, error)
	GetUnusedCodes(ctx context.Context, linkToken string) ([]LinkCode, error)
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// ReportsClient wraps the Report API (beta).
type ReportsClient interface {
	ListTemplates(ctx context.Context) ([]ReportTemplate, error)
	BuildReport(ctx context.Context, request *BuildReportRequest) (*Report, error)
	GetStatus(ctx context.Context, reportID int) (*Report, error)
	GetContentURL(ctx context.Context, reportID int) (string, error)
}

// AggregationV1Client wraps the Aggregation API v1. Every method takes the
// credentials token plus optional extra body fields (for example "query").
type AggregationV1Client interface {
	GetPortfolios(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]Portfolio, error)
	GetInvestments(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]Investment, error)
	GetInvestmentTransactions(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]LegacyTransaction, error)
	GetAccounts(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]Account, error)
	GetAccountTransactions(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]LegacyTransaction, error)
	GetLiabilities(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]Liability, error)
	GetLiabilityTransactions(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]LegacyTransaction, error)
	GetCards(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]Card, error)
	GetCardTransactions(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]LegacyTransaction, error)
	GetIdentity(ctx context.Context, credentialsToken string) (*Identity, error)
	GetHolders(ctx context.Context, credentialsToken string) ([]Holder, error)
}

// AggregationV2Client wraps the Aggregation API v2.
type AggregationV2Client interface {
	ListProducts(ctx context.Context, query *ProductQuery) *PageIterator[Product]
	ListProductsPage(ctx context.Context, query *ProductQuery, pageToken string) (*Page[Product], error)
	SetProductLabels(ctx context.Context, productID string, labels map[string]string) error
	ListTransactions(ctx context.Context, query *TransactionQuery) *PageIterator[Transaction]
	ListTransactionsPage(ctx context.Context, query *TransactionQuery, pageToken string) (*Page[Transaction], error)
	SetTransactionLabels(ctx context.Context, transactionID string, labels map[string]string) error
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a flanks.Client.
//
// Credentials, base URL, timeout and retry policy are fixed at construction time.
// Use DefaultConfig for the documented defaults; a zero MaxRetries means a single
// attempt per call.
type Config struct {
	// ClientID and ClientSecret are exchanged for a bearer token using the OAuth2
	// client_credentials grant against POST /v0/token.
	ClientID     string
	ClientSecret string

	// BaseURL of the API. Defaults to https://api.flanks.io.
	BaseURL string

	// Version is the API version date (YYYY-MM-DD). Defaults to 2026-01-01.
	Version string

	// Timeout applied to every request, including the token exchange. Defaults to 60s.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt for server
	// errors (>=500, 429). Total attempts are MaxRetries+1.
	MaxRetries int

	// RetryBackoff is the base backoff; the wait before retry n (0-indexed) is
	// RetryBackoff * 2^n. Defaults to 1s.
	RetryBackoff time.Duration

	// RetryNetworkErrors makes transport-level failures retryable with the same
	// policy as server errors. Off by default.
	RetryNetworkErrors bool

	// Debug enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool

	// Logger is an optional structured logger used by the HTTP and auth layers.
	Logger Logger

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Interceptors run around every request attempt.
	Interceptors *InterceptorChain

	// Cache, when set, caches successful GET responses for CacheTTL.
	Cache    Cache
	CacheTTL time.Duration

	// TracerProvider and MeterProvider default to the global OpenTelemetry providers.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// DefaultConfig returns a Config with the documented defaults and no credentials.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      constants.DefaultBaseURL,
		Version:      constants.DefaultAPIVersion,
		Timeout:      constants.DefaultHTTPTimeout,
		MaxRetries:   constants.DefaultRetryMax,
		RetryBackoff: constants.DefaultRetryBackoff,
	}
}

// ApplyDefaults fills zero-valued optional fields. MaxRetries is left untouched.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = constants.DefaultBaseURL
	}

	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	if c.Version == "" {
		c.Version = constants.DefaultAPIVersion
	}

	if c.Timeout <= 0 {
		c.Timeout = constants.DefaultHTTPTimeout
	}

	if c.RetryBackoff <= 0 {
		c.RetryBackoff = constants.DefaultRetryBackoff
	}

	if c.CacheTTL <= 0 {
		c.CacheTTL = constants.DefaultCacheTTL
	}
}

// Validate checks the configuration and returns a Config-kind *Error on failure.
func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return NewConfigError(ErrMissingCredentials.Error(), ErrMissingCredentials)
	}

	parsed, err := url.Parse(c.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return NewConfigError(fmt.Sprintf("invalid base URL %q", c.BaseURL), ErrInvalidBaseURL)
	}

	_, err = time.Parse(time.DateOnly, c.Version)
	if err != nil {
		return NewConfigError(fmt.Sprintf("invalid API version %q", c.Version), ErrInvalidVersion)
	}

	if c.MaxRetries < 0 {
		return NewConfigError("max retries must not be negative", ErrInvalidRetryPolicy)
	}

	return nil
}
