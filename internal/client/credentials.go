package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

const (
	credentialsPath       = "/v0/bank/credentials"
	credentialsStatusPath = "/v0/bank/credentials/status"
	credentialsListPath   = "/v0/bank/credentials/list"
)

// Credential status actions accepted by PUT /v0/bank/credentials/status.
const (
	actionForceSCA         = "force_sca"
	actionForceReset       = "force_reset"
	actionForceTransaction = "force_transaction"
)

// CredentialsClient implements flanks.CredentialsClient.
type CredentialsClient struct {
	caller flanks.Caller
}

// NewCredentialsClient creates a new credentials client.
func NewCredentialsClient(caller flanks.Caller) *CredentialsClient {
	return &CredentialsClient{caller: caller}
}

// GetStatus implements flanks.CredentialsClient.GetStatus.
func (c *CredentialsClient) GetStatus(ctx context.Context, credentialsToken string) (*flanks.CredentialStatusResponse, error) {
	raw, err := c.caller.Call(ctx, http.MethodPost, credentialsStatusPath, map[string]interface{}{
		"credentials_token": credentialsToken,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("getting credential status: %w", err)
	}

	status, err := decodeObject[flanks.CredentialStatusResponse](raw)
	if err != nil {
		return nil, fmt.Errorf("parsing credential status: %w", err)
	}

	return status, nil
}

// List implements flanks.CredentialsClient.List. Pages are numbered from 1; a
// page below 1 requests the first page.
func (c *CredentialsClient) List(ctx context.Context, page int) ([]flanks.Credential, error) {
	if page < 1 {
		page = 1
	}

	raw, err := c.caller.Call(ctx, http.MethodPost, credentialsListPath, map[string]interface{}{
		"page": page,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}

	credentials, err := decodeItems[flanks.Credential](raw, "credentials")
	if err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	return credentials, nil
}

// ForceSCA implements flanks.CredentialsClient.ForceSCA.
func (c *CredentialsClient) ForceSCA(ctx context.Context, credentialsToken string) (*flanks.CredentialStatusResponse, error) {
	return c.updateStatus(ctx, credentialsToken, actionForceSCA)
}

// ForceReset implements flanks.CredentialsClient.ForceReset.
func (c *CredentialsClient) ForceReset(ctx context.Context, credentialsToken string) (*flanks.CredentialStatusResponse, error) {
	return c.updateStatus(ctx, credentialsToken, actionForceReset)
}

// ForceTransaction implements flanks.CredentialsClient.ForceTransaction.
func (c *CredentialsClient) ForceTransaction(ctx context.Context, credentialsToken string) (*flanks.CredentialStatusResponse, error) {
	return c.updateStatus(ctx, credentialsToken, actionForceTransaction)
}

func (c *CredentialsClient) updateStatus(ctx context.Context, credentialsToken, action string) (*flanks.CredentialStatusResponse, error) {
	raw, err := c.caller.Call(ctx, http.MethodPut, credentialsStatusPath, map[string]interface{}{
		"credentials_token": credentialsToken,
		"action":            action,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("updating credential status (%s): %w", action, err)
	}

	status, err := decodeObject[flanks.CredentialStatusResponse](raw)
	if err != nil {
		return nil, fmt.Errorf("parsing credential status: %w", err)
	}

	return status, nil
}

// Delete implements flanks.CredentialsClient.Delete.
func (c *CredentialsClient) Delete(ctx context.Context, credentialsToken string) error {
	_, err := c.caller.Call(ctx, http.MethodDelete, credentialsPath, map[string]interface{}{
		"credentials_token": credentialsToken,
	}, nil)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}

	return nil
}
