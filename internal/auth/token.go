package auth

import (
	"sync"
	"time"

	"github.com/fivetwenty-io/flanks-go/internal/constants"
)

// Token represents an OAuth2 access token issued by the token endpoint.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	ExpiresIn   *int64    `json:"expires_in,omitempty"`
	ExpiresAt   time.Time `json:"-"`
}

// UsableAt reports whether the token can still be sent at now: it must be present
// and have at least margin left before it expires.
func (t *Token) UsableAt(now time.Time, margin time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	return t.ExpiresAt.Sub(now) >= margin
}

// Valid reports whether the token is usable now with the standard refresh margin.
func (t *Token) Valid() bool {
	return t.UsableAt(time.Now(), constants.TokenRefreshMargin)
}

// TokenStore holds the current token. Writers replace the whole token; the last
// write wins.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the current token, or nil.
func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set replaces the current token.
func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// Clear removes the current token.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
}
