package flanksclient

import (
	"context"
	"fmt"
	"os"

	"github.com/fivetwenty-io/flanks-go/internal/client"
	"github.com/fivetwenty-io/flanks-go/internal/constants"
	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// New creates a new Flanks API client. A nil config uses flanks.DefaultConfig.
// Missing credentials are read from FLANKS_CLIENT_ID and FLANKS_CLIENT_SECRET.
// The caller's config is not modified.
func New(ctx context.Context, config *flanks.Config) (flanks.Client, error) {
	return newWithEnv(ctx, config, os.Getenv)
}

// NewWithCredentials creates a client for the production API with the given
// client credentials and default settings.
func NewWithCredentials(ctx context.Context, clientID, clientSecret string) (flanks.Client, error) {
	config := flanks.DefaultConfig()
	config.ClientID = clientID
	config.ClientSecret = clientSecret

	return New(ctx, config)
}

// NewFromEnv creates a client from FLANKS_CLIENT_ID and FLANKS_CLIENT_SECRET.
func NewFromEnv(ctx context.Context) (flanks.Client, error) {
	return New(ctx, nil)
}

func newWithEnv(ctx context.Context, config *flanks.Config, getenv func(string) string) (flanks.Client, error) {
	cfg := flanks.DefaultConfig()
	if config != nil {
		copied := *config
		cfg = &copied
	}

	if cfg.ClientID == "" {
		cfg.ClientID = getenv(constants.EnvClientID)
	}

	if cfg.ClientSecret == "" {
		cfg.ClientSecret = getenv(constants.EnvClientSecret)
	}

	c, err := client.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}
