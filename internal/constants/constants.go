package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// API defaults.
const (
	// DefaultBaseURL is the production Flanks API.
	DefaultBaseURL = "https://api.flanks.io"

	// DefaultAPIVersion is the API version date the client is written against.
	DefaultAPIVersion = "2026-01-01"

	// SDKVersion is the library version reported in the User-Agent.
	SDKVersion = "0.1.0"

	// DefaultUserAgent identifies the library to the API.
	DefaultUserAgent = "flanks-go/" + SDKVersion

	// TokenPath is the client-credentials token endpoint.
	TokenPath = "/v0/token"

	// GrantTypeClientCredentials is the only grant the token endpoint accepts.
	GrantTypeClientCredentials = "client_credentials"

	// EnvClientID and EnvClientSecret hold credentials when none are configured.
	EnvClientID     = "FLANKS_CLIENT_ID"
	EnvClientSecret = "FLANKS_CLIENT_SECRET"

	// EnvPrefix namespaces CLI settings read from the environment.
	EnvPrefix = "FLANKS"
)

// Headers sent on API requests.
const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderUserAgent     = "User-Agent"

	ContentTypeJSON = "application/json"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 60 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry policy.
const (
	// DefaultRetryMax is the default number of retries after the first attempt.
	DefaultRetryMax = 1

	// DefaultRetryBackoff is the base backoff; retry n waits DefaultRetryBackoff * 2^n.
	DefaultRetryBackoff = 1 * time.Second
)

// Token lifecycle.
const (
	// TokenRefreshMargin is how long before expiry a token stops being usable.
	TokenRefreshMargin = 5 * time.Minute

	// DefaultTokenLifetime is assumed when the token endpoint omits expires_in.
	DefaultTokenLifetime = 1 * time.Hour
)

// Pagination.
const (
	// DefaultItemKey is the response field holding a page's items.
	DefaultItemKey = "items"

	// PageTokenField is the request body field carrying the cursor.
	PageTokenField = "page_token"

	// NextPageTokenField is the response field carrying the next cursor.
	NextPageTokenField = "next_page_token"
)

// Concurrency and buffers.
const (
	// BufferSize is the default buffer size for channels.
	BufferSize = 100

	// SmallBufferSize is used for smaller buffers.
	SmallBufferSize = 10
)

// Cache settings.
const (
	// DefaultCacheSize is the default cache size limit.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default cache time-to-live.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheBucket is the NATS KV bucket used when none is configured.
	DefaultCacheBucket = "flanks-cache"

	// MaxCacheValueSize is the maximum size for cached values (1MB).
	MaxCacheValueSize = 1024 * 1024
)

// CLI display.
const (
	// TokenPreviewLength is how many characters of a token the CLI prints.
	TokenPreviewLength = 16

	// MinTableWidth is the narrowest table the CLI renders before truncating.
	MinTableWidth = 40
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)
