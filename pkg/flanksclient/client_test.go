package flanksclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

func fakeEnv(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates client with config", func(t *testing.T) {
		t.Parallel()

		client, err := newWithEnv(context.Background(), &flanks.Config{
			ClientID:     "id",
			ClientSecret: "secret",
		}, fakeEnv(nil))
		require.NoError(t, err)
		require.NotNil(t, client)
		require.NoError(t, client.Close())
	})

	t.Run("falls back to the environment", func(t *testing.T) {
		t.Parallel()

		client, err := newWithEnv(context.Background(), nil, fakeEnv(map[string]string{
			"FLANKS_CLIENT_ID":     "env-id",
			"FLANKS_CLIENT_SECRET": "env-secret",
		}))
		require.NoError(t, err)
		require.NoError(t, client.Close())
	})

	t.Run("explicit credentials win over the environment", func(t *testing.T) {
		t.Parallel()

		config := &flanks.Config{ClientID: "explicit"}

		client, err := newWithEnv(context.Background(), config, fakeEnv(map[string]string{
			"FLANKS_CLIENT_ID":     "env-id",
			"FLANKS_CLIENT_SECRET": "env-secret",
		}))
		require.NoError(t, err)
		require.NoError(t, client.Close())

		assert.Equal(t, "explicit", config.ClientID)
		assert.Empty(t, config.ClientSecret)
	})

	t.Run("missing credentials name both variables", func(t *testing.T) {
		t.Parallel()

		_, err := newWithEnv(context.Background(), nil, fakeEnv(nil))
		require.Error(t, err)
		assert.True(t, flanks.IsConfig(err))
		assert.ErrorIs(t, err, flanks.ErrMissingCredentials)
		assert.Contains(t, err.Error(), "FLANKS_CLIENT_ID")
		assert.Contains(t, err.Error(), "FLANKS_CLIENT_SECRET")
	})

	t.Run("invalid base URL", func(t *testing.T) {
		t.Parallel()

		_, err := newWithEnv(context.Background(), &flanks.Config{
			ClientID:     "id",
			ClientSecret: "secret",
			BaseURL:      "not a url",
		}, fakeEnv(nil))
		require.Error(t, err)
		assert.True(t, flanks.IsConfig(err))
		assert.ErrorIs(t, err, flanks.ErrInvalidBaseURL)
	})

	t.Run("negative retries", func(t *testing.T) {
		t.Parallel()

		_, err := newWithEnv(context.Background(), &flanks.Config{
			ClientID:     "id",
			ClientSecret: "secret",
			MaxRetries:   -1,
		}, fakeEnv(nil))
		require.Error(t, err)
		assert.ErrorIs(t, err, flanks.ErrInvalidRetryPolicy)
	})
}

func TestNewWithCredentials(t *testing.T) {
	t.Parallel()

	client, err := NewWithCredentials(context.Background(), "client-id", "client-secret")
	require.NoError(t, err)
	assert.NotNil(t, client)
	require.NoError(t, client.Close())
}
