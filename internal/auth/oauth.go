package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fivetwenty-io/flanks-go/internal/constants"
	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// TokenManager owns the bearer token used by the HTTP layer.
type TokenManager interface {
	// GetToken returns a usable token, refreshing it first when needed.
	GetToken(ctx context.Context) (string, error)
	// RefreshToken exchanges the credentials for a new token unconditionally.
	RefreshToken(ctx context.Context) error
	// SetToken installs a token obtained elsewhere.
	SetToken(token string, expiresAt time.Time)
}

// ClientCredentialsConfig configures a ClientCredentialsManager.
type ClientCredentialsConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	// HTTPClient performs the exchange. It should carry the request timeout.
	HTTPClient *http.Client

	// RefreshMargin defaults to 5 minutes.
	RefreshMargin time.Duration

	Logger flanks.Logger

	// OnRefresh is called after every exchange attempt with its outcome.
	OnRefresh func(ctx context.Context, err error)

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// ClientCredentialsManager implements TokenManager with the OAuth2
// client_credentials grant against POST /v0/token. Concurrent callers needing a
// refresh share one in-flight exchange.
type ClientCredentialsManager struct {
	config *ClientCredentialsConfig
	store  *TokenStore
	group  singleflight.Group
	now    func() time.Time
	margin time.Duration
}

// NewClientCredentialsManager creates a manager with no token; the first
// GetToken performs the exchange.
func NewClientCredentialsManager(config *ClientCredentialsConfig) *ClientCredentialsManager {
	manager := &ClientCredentialsManager{
		config: config,
		store:  NewTokenStore(),
		now:    config.Now,
		margin: config.RefreshMargin,
	}

	if manager.now == nil {
		manager.now = time.Now
	}

	if manager.margin <= 0 {
		manager.margin = constants.TokenRefreshMargin
	}

	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}

	return manager
}

// GetToken returns a usable token, refreshing it first if it is absent or has
// less than the refresh margin left.
func (m *ClientCredentialsManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token.UsableAt(m.now(), m.margin) {
		return token.AccessToken, nil
	}

	err := m.RefreshToken(ctx)
	if err != nil {
		return "", err
	}

	return m.store.Get().AccessToken, nil
}

// RefreshToken performs the credentials exchange. Concurrent calls collapse into
// one request. The shared exchange is detached from the caller that started it,
// so a cancelled caller returns early while the others still get the token.
func (m *ClientCredentialsManager) RefreshToken(ctx context.Context) error {
	results := m.group.DoChan("refresh", func() (interface{}, error) {
		exchangeCtx, cancel := m.exchangeContext(ctx)
		defer cancel()

		token, err := m.exchange(exchangeCtx)

		if m.config.OnRefresh != nil {
			m.config.OnRefresh(ctx, err)
		}

		if err != nil {
			return nil, err
		}

		m.store.Set(token)

		return nil, nil
	})

	select {
	case result := <-results:
		return result.Err
	case <-ctx.Done():
		return flanks.NewNetworkError(ctx.Err())
	}
}

// exchangeContext keeps the caller's values but not its cancellation. The
// HTTP client timeout bounds the exchange instead.
func (m *ClientCredentialsManager) exchangeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := m.config.HTTPClient.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// SetToken installs a token obtained elsewhere.
func (m *ClientCredentialsManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt})
}

// Token returns the current token, or nil before the first exchange.
func (m *ClientCredentialsManager) Token() *Token {
	return m.store.Get()
}

func (m *ClientCredentialsManager) exchange(ctx context.Context) (*Token, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     m.config.ClientID,
		"client_secret": m.config.ClientSecret,
		"grant_type":    constants.GrantTypeClientCredentials,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding token request: %w", err)
	}

	tokenURL := strings.TrimSuffix(m.config.BaseURL, "/") + constants.TokenPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, flanks.NewConfigError("building token request", err)
	}

	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	req.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)

	m.debug("requesting access token", map[string]interface{}{"url": tokenURL})

	resp, err := m.config.HTTPClient.Do(req)
	if err != nil {
		if apiErr, ok := flanks.AsError(err); ok {
			return nil, apiErr
		}

		return nil, flanks.NewNetworkError(err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, flanks.NewNetworkError(err)
	}

	if resp.StatusCode == http.StatusForbidden {
		return nil, &flanks.Error{
			Kind:         flanks.KindAuth,
			Message:      "invalid client credentials",
			StatusCode:   resp.StatusCode,
			ResponseBody: flanks.DecodeBody(body),
		}
	}

	if apiErr := flanks.ErrorFromResponse(resp.StatusCode, body); apiErr != nil {
		return nil, apiErr
	}

	var token Token

	err = json.Unmarshal(body, &token)
	if err != nil || token.AccessToken == "" {
		return nil, &flanks.Error{
			Kind:         flanks.KindServer,
			Message:      flanks.ErrMalformedToken.Error(),
			StatusCode:   resp.StatusCode,
			ResponseBody: flanks.DecodeBody(body),
			Cause:        flanks.ErrMalformedToken,
		}
	}

	lifetime := constants.DefaultTokenLifetime
	if token.ExpiresIn != nil {
		lifetime = time.Duration(*token.ExpiresIn) * time.Second
	}

	token.ExpiresAt = m.now().Add(lifetime)

	m.debug("access token refreshed", map[string]interface{}{"expires_at": token.ExpiresAt})

	return &token, nil
}

func (m *ClientCredentialsManager) debug(msg string, fields map[string]interface{}) {
	if m.config.Logger != nil {
		m.config.Logger.Debug(msg, fields)
	}
}
