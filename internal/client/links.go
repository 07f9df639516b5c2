package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

const (
	listLinksPath    = "/v0/links/list-links"
	createLinkPath   = "/v0/links/create-link"
	editLinkPath     = "/v0/links/edit-link"
	deleteLinkPath   = "/v0/links/delete-link"
	pauseLinkPath    = "/v0/links/pause-link"
	resumeLinkPath   = "/v0/links/resume-link"
	platformLinkPath = "/v0/platform/link"
)

// LinksClient implements flanks.LinksClient.
type LinksClient struct {
	caller flanks.Caller
}

// NewLinksClient creates a new links client.
func NewLinksClient(caller flanks.Caller) *LinksClient {
	return &LinksClient{caller: caller}
}

// List implements flanks.LinksClient.List.
func (c *LinksClient) List(ctx context.Context) ([]flanks.Link, error) {
	raw, err := c.caller.Call(ctx, http.MethodGet, listLinksPath, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}

	links, err := decodeItems[flanks.Link](raw, "links")
	if err != nil {
		return nil, fmt.Errorf("parsing links: %w", err)
	}

	return links, nil
}

// Create implements flanks.LinksClient.Create.
func (c *LinksClient) Create(ctx context.Context, request *flanks.LinkCreateRequest) (*flanks.Link, error) {
	if request == nil {
		request = &flanks.LinkCreateRequest{}
	}

	body := make(map[string]interface{}, len(request.Extra)+2)
	for key, value := range request.Extra {
		body[key] = value
	}

	body["redirect_uri"] = request.RedirectURI
	body["name"] = request.Name

	return c.linkCall(ctx, createLinkPath, body, "creating link")
}

// Edit implements flanks.LinksClient.Edit. Only non-empty fields are sent.
func (c *LinksClient) Edit(ctx context.Context, linkToken string, request *flanks.LinkUpdateRequest) (*flanks.Link, error) {
	body := map[string]interface{}{}

	if request != nil {
		for key, value := range request.Extra {
			body[key] = value
		}

		if request.Name != "" {
			body["name"] = request.Name
		}

		if request.RedirectURI != "" {
			body["redirect_uri"] = request.RedirectURI
		}
	}

	body["link_token"] = linkToken

	return c.linkCall(ctx, editLinkPath, body, "editing link")
}

// Delete implements flanks.LinksClient.Delete.
func (c *LinksClient) Delete(ctx context.Context, linkToken string) error {
	_, err := c.caller.Call(ctx, http.MethodPost, deleteLinkPath, map[string]interface{}{
		"link_token": linkToken,
	}, nil)
	if err != nil {
		return fmt.Errorf("deleting link: %w", err)
	}

	return nil
}

// Pause implements flanks.LinksClient.Pause.
func (c *LinksClient) Pause(ctx context.Context, linkToken string) (*flanks.Link, error) {
	return c.linkCall(ctx, pauseLinkPath, map[string]interface{}{"link_token": linkToken}, "pausing link")
}

// Resume implements flanks.LinksClient.Resume.
func (c *LinksClient) Resume(ctx context.Context, linkToken string) (*flanks.Link, error) {
	return c.linkCall(ctx, resumeLinkPath, map[string]interface{}{"link_token": linkToken}, "resuming link")
}

func (c *LinksClient) linkCall(ctx context.Context, path string, body map[string]interface{}, action string) (*flanks.Link, error) {
	raw, err := c.caller.Call(ctx, http.MethodPost, path, body, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	link, err := decodeObject[flanks.Link](raw)
	if err != nil {
		return nil, fmt.Errorf("parsing link: %w", err)
	}

	return link, nil
}

// GetUnusedCodes implements flanks.LinksClient.GetUnusedCodes. The link token is
// sent as a query parameter since GET requests carry no body.
func (c *LinksClient) GetUnusedCodes(ctx context.Context, linkToken string) ([]flanks.LinkCode, error) {
	raw, err := c.caller.Call(ctx, http.MethodGet, platformLinkPath, nil, url.Values{
		"link_token": []string{linkToken},
	})
	if err != nil {
		return nil, fmt.Errorf("getting unused link codes: %w", err)
	}

	codes, err := decodeItems[flanks.LinkCode](raw, "codes")
	if err != nil {
		return nil, fmt.Errorf("parsing link codes: %w", err)
	}

	return codes, nil
}

// ExchangeCode implements flanks.LinksClient.ExchangeCode and returns the
// credentials token.
func (c *LinksClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	raw, err := c.caller.Call(ctx, http.MethodPost, platformLinkPath, map[string]interface{}{
		"code": code,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("exchanging link code: %w", err)
	}

	token, err := decodeString(raw, "credentials_token")
	if err != nil {
		return "", fmt.Errorf("parsing exchange response: %w", err)
	}

	return token, nil
}
