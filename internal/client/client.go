package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/flanks-go/internal/auth"
	"github.com/fivetwenty-io/flanks-go/internal/http"
	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// Client implements the flanks.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	baseURL      string
	logger       flanks.Logger

	// Resource clients
	entities      flanks.EntitiesClient
	connect       flanks.ConnectClient
	credentials   flanks.CredentialsClient
	links         flanks.LinksClient
	reports       flanks.ReportsClient
	aggregationV1 flanks.AggregationV1Client
	aggregationV2 flanks.AggregationV2Client
}

var (
	_ flanks.Client      = (*Client)(nil)
	_ flanks.TokenSource = (*Client)(nil)
)

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *flanks.Config, transport *http.Transport) []http.Option {
	httpOpts := []http.Option{
		http.WithTransport(transport),
		http.WithTimeout(config.Timeout),
		http.WithRetryConfig(config.MaxRetries, config.RetryBackoff),
		http.WithRetryNetworkErrors(config.RetryNetworkErrors),
		http.WithTelemetry(config.TracerProvider, config.MeterProvider),
	}

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.Interceptors != nil {
		httpOpts = append(httpOpts, http.WithInterceptors(config.Interceptors))
	}

	if config.Cache != nil {
		httpOpts = append(httpOpts, http.WithCache(config.Cache, config.CacheTTL))
	}

	return httpOpts
}

// New creates a new Flanks API client. The configuration is validated up front;
// no request is sent until the first call.
func New(ctx context.Context, config *flanks.Config) (*Client, error) {
	if config == nil {
		return nil, flanks.NewConfigError(flanks.ErrConfigRequired.Error(), flanks.ErrConfigRequired)
	}

	cfg := *config
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	transport := http.NewTransport()

	// The token manager reports refreshes to the HTTP client's metrics, which
	// is created after it.
	var httpClient *http.Client

	tokenManager := auth.NewClientCredentialsManager(&auth.ClientCredentialsConfig{
		BaseURL:      cfg.BaseURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		HTTPClient:   transport.HTTPClient(cfg.Timeout),
		Logger:       cfg.Logger,
		OnRefresh: func(ctx context.Context, err error) {
			if httpClient != nil {
				httpClient.RecordRefresh(ctx, err)
			}
		},
	})

	httpClient = http.NewClient(cfg.BaseURL, tokenManager, createHTTPClientOptions(&cfg, transport)...)

	client := NewWithHTTPClient(httpClient, tokenManager)
	client.baseURL = cfg.BaseURL
	client.logger = cfg.Logger

	if cfg.Logger != nil {
		cfg.Logger.Debug("flanks client created", map[string]interface{}{
			"base_url":    cfg.BaseURL,
			"version":     cfg.Version,
			"max_retries": cfg.MaxRetries,
		})
	}

	return client, nil
}

// NewWithHTTPClient wraps an existing HTTP client, for example one built with a
// custom token manager.
func NewWithHTTPClient(httpClient *http.Client, tokenManager auth.TokenManager) *Client {
	client := &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
	}

	client.initializeResourceClients()

	return client
}

func (c *Client) initializeResourceClients() {
	c.entities = NewEntitiesClient(c.httpClient)
	c.connect = NewConnectClient(c.httpClient)
	c.credentials = NewCredentialsClient(c.httpClient)
	c.links = NewLinksClient(c.httpClient)
	c.reports = NewReportsClient(c.httpClient)
	c.aggregationV1 = NewAggregationV1Client(c.httpClient)
	c.aggregationV2 = NewAggregationV2Client(c.httpClient)
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// Token returns a usable access token, exchanging credentials first if needed.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.tokenManager == nil {
		return "", flanks.NewConfigError("no token manager configured", nil)
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("getting access token: %w", err)
	}

	return token, nil
}

// CacheStats returns the response cache counters.
func (c *Client) CacheStats() flanks.CacheStats {
	return c.httpClient.CacheStats()
}

// Entities implements flanks.Client.Entities.
func (c *Client) Entities() flanks.EntitiesClient {
	return c.entities
}

// Connect implements flanks.Client.Connect.
func (c *Client) Connect() flanks.ConnectClient {
	return c.connect
}

// Credentials implements flanks.Client.Credentials.
func (c *Client) Credentials() flanks.CredentialsClient {
	return c.credentials
}

// Links implements flanks.Client.Links.
func (c *Client) Links() flanks.LinksClient {
	return c.links
}

// Reports implements flanks.Client.Reports.
func (c *Client) Reports() flanks.ReportsClient {
	return c.reports
}

// AggregationV1 implements flanks.Client.AggregationV1.
func (c *Client) AggregationV1() flanks.AggregationV1Client {
	return c.aggregationV1
}

// AggregationV2 implements flanks.Client.AggregationV2.
func (c *Client) AggregationV2() flanks.AggregationV2Client {
	return c.aggregationV2
}

// Transport implements flanks.Client.Transport.
func (c *Client) Transport() flanks.Caller {
	return c.httpClient
}

// Close implements flanks.Client.Close.
func (c *Client) Close() error {
	return c.httpClient.Close()
}
