package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

const aggregationV1Prefix = "/v0/bank/credentials"

// AggregationV1Client implements flanks.AggregationV1Client. Responses may be a
// bare array or an object holding the list under its collection key.
type AggregationV1Client struct {
	caller flanks.Caller
}

// NewAggregationV1Client creates a new Aggregation API v1 client.
func NewAggregationV1Client(caller flanks.Caller) *AggregationV1Client {
	return &AggregationV1Client{caller: caller}
}

func credentialsBody(credentialsToken string, query map[string]interface{}) map[string]interface{} {
	body := make(map[string]interface{}, len(query)+1)
	for key, value := range query {
		body[key] = value
	}

	body["credentials_token"] = credentialsToken

	return body
}

// fetchV1 posts to an Aggregation v1 endpoint and decodes the list under key.
func fetchV1[T any](
	ctx context.Context,
	caller flanks.Caller,
	endpoint, key, credentialsToken string,
	query map[string]interface{},
) ([]T, error) {
	raw, err := caller.Call(ctx, http.MethodPost, aggregationV1Prefix+endpoint, credentialsBody(credentialsToken, query), nil)
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", key, err)
	}

	items, err := decodeItemsLenient[T](raw, key)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", key, err)
	}

	return items, nil
}

// GetPortfolios implements flanks.AggregationV1Client.GetPortfolios.
func (c *AggregationV1Client) GetPortfolios(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]flanks.Portfolio, error) {
	return fetchV1[flanks.Portfolio](ctx, c.caller, "/portfolio", "portfolios", credentialsToken, query)
}

// GetInvestments implements flanks.AggregationV1Client.GetInvestments.
func (c *AggregationV1Client) GetInvestments(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]flanks.Investment, error) {
	return fetchV1[flanks.Investment](ctx, c.caller, "/investment", "investments", credentialsToken, query)
}

// GetInvestmentTransactions implements flanks.AggregationV1Client.GetInvestmentTransactions.
func (c *AggregationV1Client) GetInvestmentTransactions(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]flanks.LegacyTransaction, error) {
	return fetchV1[flanks.LegacyTransaction](ctx, c.caller, "/investment/transaction", "transactions", credentialsToken, query)
}

// GetAccounts implements flanks.AggregationV1Client.GetAccounts.
func (c *AggregationV1Client) GetAccounts(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]flanks.Account, error) {
	return fetchV1[flanks.Account](ctx, c.caller, "/account", "accounts", credentialsToken, query)
}

// GetAccountTransactions implements flanks.AggregationV1Client.GetAccountTransactions.
func (c *AggregationV1Client) GetAccountTransactions(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]flanks.LegacyTransaction, error) {
	return fetchV1[flanks.LegacyTransaction](ctx, c.caller, "/data", "transactions", credentialsToken, query)
}

// GetLiabilities implements flanks.AggregationV1Client.GetLiabilities.
func (c *AggregationV1Client) GetLiabilities(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]flanks.Liability, error) {
	return fetchV1[flanks.Liability](ctx, c.caller, "/liability", "liabilities", credentialsToken, query)
}

// GetLiabilityTransactions implements flanks.AggregationV1Client.GetLiabilityTransactions.
func (c *AggregationV1Client) GetLiabilityTransactions(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]flanks.LegacyTransaction, error) {
	return fetchV1[flanks.LegacyTransaction](ctx, c.caller, "/liability/transaction", "transactions", credentialsToken, query)
}

// GetCards implements flanks.AggregationV1Client.GetCards.
func (c *AggregationV1Client) GetCards(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]flanks.Card, error) {
	return fetchV1[flanks.Card](ctx, c.caller, "/card", "cards", credentialsToken, query)
}

// GetCardTransactions implements flanks.AggregationV1Client.GetCardTransactions.
func (c *AggregationV1Client) GetCardTransactions(ctx context.Context, credentialsToken string, query map[string]interface{}) ([]flanks.LegacyTransaction, error) {
	return fetchV1[flanks.LegacyTransaction](ctx, c.caller, "/card/transaction", "transactions", credentialsToken, query)
}

// GetIdentity implements flanks.AggregationV1Client.GetIdentity. It returns nil
// when the response carries no identity.
func (c *AggregationV1Client) GetIdentity(ctx context.Context, credentialsToken string) (*flanks.Identity, error) {
	raw, err := c.caller.Call(ctx, http.MethodPost, aggregationV1Prefix+"/auth/", credentialsBody(credentialsToken, nil), nil)
	if err != nil {
		return nil, fmt.Errorf("getting identity: %w", err)
	}

	envelope, err := decodeEnvelope(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}

	field, ok := envelope["identity"]
	if !ok || jsonKind(field) == "null" {
		return nil, nil //nolint:nilnil // no identity is not an error
	}

	identity, err := decodeObject[flanks.Identity](field)
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}

	return identity, nil
}

// GetHolders implements flanks.AggregationV1Client.GetHolders.
func (c *AggregationV1Client) GetHolders(ctx context.Context, credentialsToken string) ([]flanks.Holder, error) {
	return fetchV1[flanks.Holder](ctx, c.caller, "/holder", "holders", credentialsToken, nil)
}
