package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestAggregationV2Client(t *testing.T) {
	t.Parallel()

	t.Run("ListProducts iterates every page", func(t *testing.T) {
		t.Parallel()

		stub := newAPIStub(t,
			`{"items":[{"product_id":"p1","product_type":"Account","balance":"100.50"}],"next_page_token":"t2"}`,
			`{"items":[{"product_id":"p2","product_type":"Card"}]}`,
		)

		var ids []string

		for product, err := range NewAggregationV2Client(stub.caller()).ListProducts(context.Background(), nil).Seq() {
			require.NoError(t, err)

			ids = append(ids, product.ProductID)
		}

		assert.Equal(t, []string{"p1", "p2"}, ids)

		requests := stub.captured(t)
		require.Len(t, requests, 2)
		assert.Equal(t, "/aggregation/v2/list-products", requests[0].Path)
		assert.Equal(t, map[string]interface{}{}, requests[0].Body["query"])
		assert.Nil(t, requests[0].Body["page_token"])
		assert.Equal(t, "t2", requests[1].Body["page_token"])
	})

	t.Run("ListProductsPage with query", func(t *testing.T) {
		t.Parallel()

		stub := newAPIStub(t, `{"items":[],"next_page_token":null}`)

		page, err := NewAggregationV2Client(stub.caller()).ListProductsPage(context.Background(), &flanks.ProductQuery{
			ProductIDIn: []string{"p1"},
			Labels:      map[string]string{"team": "a"},
		}, "")
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.False(t, page.HasNext())

		assert.Equal(t, map[string]interface{}{
			"product_id_in": []interface{}{"p1"},
			"labels":        map[string]interface{}{"team": "a"},
		}, stub.last(t).Body["query"])
	})

	t.Run("ListTransactions encodes dates", func(t *testing.T) {
		t.Parallel()

		stub := newAPIStub(t, `{"items":[{"transaction_id":"t1","amount":-12.5,"date":"2026-02-14"}]}`)

		from := flanks.NewDate(2026, time.February, 1)

		transactions, err := NewAggregationV2Client(stub.caller()).ListTransactions(context.Background(), &flanks.TransactionQuery{
			DateFrom: &from,
		}).All()
		require.NoError(t, err)
		require.Len(t, transactions, 1)
		require.NotNil(t, transactions[0].Date)
		assert.Equal(t, "2026-02-14", transactions[0].Date.String())
		assert.Equal(t, "-12.5", transactions[0].Amount.String())

		request := stub.last(t)
		assert.Equal(t, "/aggregation/v2/list-transactions", request.Path)
		assert.Equal(t, map[string]interface{}{"date_from": "2026-02-01"}, request.Body["query"])
	})

	t.Run("ListTransactionsPage", func(t *testing.T) {
		t.Parallel()

		stub := newAPIStub(t, `{"items":[{"transaction_id":"t9"}],"next_page_token":"more"}`)

		page, err := NewAggregationV2Client(stub.caller()).ListTransactionsPage(context.Background(), nil, "start")
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "more", page.NextPageToken)
		assert.Equal(t, "start", stub.last(t).Body["page_token"])
	})

	t.Run("SetProductLabels", func(t *testing.T) {
		t.Parallel()

		stub := newAPIStub(t, `{}`)

		err := NewAggregationV2Client(stub.caller()).SetProductLabels(context.Background(), "p1", map[string]string{"team": "b"})
		require.NoError(t, err)

		request := stub.last(t)
		assert.Equal(t, "/aggregation/v2/set-product-labels", request.Path)
		assert.Equal(t, map[string]interface{}{
			"product_id": "p1",
			"labels":     map[string]interface{}{"team": "b"},
		}, request.Body)
	})

	t.Run("SetTransactionLabels with nil labels", func(t *testing.T) {
		t.Parallel()

		stub := newAPIStub(t, ``)

		err := NewAggregationV2Client(stub.caller()).SetTransactionLabels(context.Background(), "t1", nil)
		require.NoError(t, err)

		request := stub.last(t)
		assert.Equal(t, "/aggregation/v2/set-transaction-labels", request.Path)
		assert.Equal(t, map[string]interface{}{
			"transaction_id": "t1",
			"labels":         map[string]interface{}{},
		}, request.Body)
	})
}
