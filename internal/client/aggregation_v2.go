package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

const (
	listProductsPath         = "/aggregation/v2/list-products"
	setProductLabelsPath     = "/aggregation/v2/set-product-labels"
	listTransactionsPath     = "/aggregation/v2/list-transactions"
	setTransactionLabelsPath = "/aggregation/v2/set-transaction-labels"
)

// AggregationV2Client implements flanks.AggregationV2Client.
type AggregationV2Client struct {
	caller flanks.Caller
}

// NewAggregationV2Client creates a new Aggregation API v2 client.
func NewAggregationV2Client(caller flanks.Caller) *AggregationV2Client {
	return &AggregationV2Client{caller: caller}
}

func productsRequest(query *flanks.ProductQuery) flanks.PageRequest {
	return flanks.PageRequest{Path: listProductsPath, Body: queryBody(query, query != nil)}
}

func transactionsRequest(query *flanks.TransactionQuery) flanks.PageRequest {
	return flanks.PageRequest{Path: listTransactionsPath, Body: queryBody(query, query != nil)}
}

// ListProducts implements flanks.AggregationV2Client.ListProducts.
func (c *AggregationV2Client) ListProducts(ctx context.Context, query *flanks.ProductQuery) *flanks.PageIterator[flanks.Product] {
	return flanks.NewPageIterator[flanks.Product](ctx, c.caller, productsRequest(query))
}

// ListProductsPage implements flanks.AggregationV2Client.ListProductsPage.
func (c *AggregationV2Client) ListProductsPage(ctx context.Context, query *flanks.ProductQuery, pageToken string) (*flanks.Page[flanks.Product], error) {
	page, err := flanks.FetchPage[flanks.Product](ctx, c.caller, productsRequest(query), pageToken)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	return page, nil
}

// SetProductLabels implements flanks.AggregationV2Client.SetProductLabels.
func (c *AggregationV2Client) SetProductLabels(ctx context.Context, productID string, labels map[string]string) error {
	_, err := c.caller.Call(ctx, http.MethodPost, setProductLabelsPath, map[string]interface{}{
		"product_id": productID,
		"labels":     labelsOrEmpty(labels),
	}, nil)
	if err != nil {
		return fmt.Errorf("setting product labels: %w", err)
	}

	return nil
}

// ListTransactions implements flanks.AggregationV2Client.ListTransactions.
func (c *AggregationV2Client) ListTransactions(ctx context.Context, query *flanks.TransactionQuery) *flanks.PageIterator[flanks.Transaction] {
	return flanks.NewPageIterator[flanks.Transaction](ctx, c.caller, transactionsRequest(query))
}

// ListTransactionsPage implements flanks.AggregationV2Client.ListTransactionsPage.
func (c *AggregationV2Client) ListTransactionsPage(ctx context.Context, query *flanks.TransactionQuery, pageToken string) (*flanks.Page[flanks.Transaction], error) {
	page, err := flanks.FetchPage[flanks.Transaction](ctx, c.caller, transactionsRequest(query), pageToken)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return page, nil
}

// SetTransactionLabels implements flanks.AggregationV2Client.SetTransactionLabels.
func (c *AggregationV2Client) SetTransactionLabels(ctx context.Context, transactionID string, labels map[string]string) error {
	_, err := c.caller.Call(ctx, http.MethodPost, setTransactionLabelsPath, map[string]interface{}{
		"transaction_id": transactionID,
		"labels":         labelsOrEmpty(labels),
	}, nil)
	if err != nil {
		return fmt.Errorf("setting transaction labels: %w", err)
	}

	return nil
}

func labelsOrEmpty(labels map[string]string) map[string]string {
	if labels == nil {
		return map[string]string{}
	}

	return labels
}
