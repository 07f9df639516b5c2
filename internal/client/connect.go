package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

const (
	listSessionsPath   = "/connect/v2/sessions/list-sessions"
	createSessionPath  = "/connect/v2/sessions/create-session"
	listConnectorsPath = "/connect/v2/connectors/list-connectors"
)

// ConnectClient implements flanks.ConnectClient.
type ConnectClient struct {
	caller flanks.Caller
}

// NewConnectClient creates a new Connect API client.
func NewConnectClient(caller flanks.Caller) *ConnectClient {
	return &ConnectClient{caller: caller}
}

func sessionsRequest(query *flanks.SessionQuery) flanks.PageRequest {
	return flanks.PageRequest{
		Path: listSessionsPath,
		Body: queryBody(query, query != nil),
	}
}

// ListSessions implements flanks.ConnectClient.ListSessions.
func (c *ConnectClient) ListSessions(ctx context.Context, query *flanks.SessionQuery) *flanks.PageIterator[flanks.Session] {
	return flanks.NewPageIterator[flanks.Session](ctx, c.caller, sessionsRequest(query))
}

// ListSessionsPage implements flanks.ConnectClient.ListSessionsPage.
func (c *ConnectClient) ListSessionsPage(ctx context.Context, query *flanks.SessionQuery, pageToken string) (*flanks.Page[flanks.Session], error) {
	page, err := flanks.FetchPage[flanks.Session](ctx, c.caller, sessionsRequest(query), pageToken)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	return page, nil
}

// CreateSession implements flanks.ConnectClient.CreateSession.
func (c *ConnectClient) CreateSession(ctx context.Context, config *flanks.SessionConfig) (*flanks.Session, error) {
	if config == nil {
		config = &flanks.SessionConfig{}
	}

	raw, err := c.caller.Call(ctx, http.MethodPost, createSessionPath, map[string]interface{}{
		"configuration": config,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	session, err := decodeField[flanks.Session](raw, "session")
	if err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}

	return session, nil
}

// ListConnectors implements flanks.ConnectClient.ListConnectors. An empty
// connectorIDs lists every connector.
func (c *ConnectClient) ListConnectors(ctx context.Context, connectorIDs []string) *flanks.PageIterator[flanks.Connector] {
	query := map[string]interface{}{}
	if len(connectorIDs) > 0 {
		query["connector_id_in"] = connectorIDs
	}

	return flanks.NewPageIterator[flanks.Connector](ctx, c.caller, flanks.PageRequest{
		Path: listConnectorsPath,
		Body: map[string]interface{}{"query": query},
	})
}
