package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// EntitiesClient implements flanks.EntitiesClient.
type EntitiesClient struct {
	caller flanks.Caller
}

// NewEntitiesClient creates a new entities client.
func NewEntitiesClient(caller flanks.Caller) *EntitiesClient {
	return &EntitiesClient{caller: caller}
}

// List implements flanks.EntitiesClient.List. The endpoint returns a bare array.
func (c *EntitiesClient) List(ctx context.Context) ([]flanks.Entity, error) {
	raw, err := c.caller.Call(ctx, http.MethodGet, "/v0/bank/available", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}

	if jsonKind(raw) != "array" {
		return nil, fmt.Errorf("parsing entities: %w", unexpected("array", raw))
	}

	entities, err := decodeList[flanks.Entity](raw, "entities")
	if err != nil {
		return nil, fmt.Errorf("parsing entities: %w", err)
	}

	return entities, nil
}
