// Package flanks provides types, interfaces, and helpers for working with the
// Flanks financial-aggregation API.
//
// # Overview
//
// The flanks package defines the domain types (Entity, Session, Credential, Link,
// Report, Product, Transaction and the Aggregation v1 models), the interfaces of
// the resource clients (ConnectClient, CredentialsClient, ...), the classified
// error taxonomy, and the cursor pager. A concrete implementation is provided by
// the flanksclient package, which wires configuration, transport, token handling
// and retries. Most consumers import flanksclient to construct a client and then
// use the interfaces exposed here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/flanks-go/pkg/flanks"
//	  "github.com/fivetwenty-io/flanks-go/pkg/flanksclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := flanksclient.New(ctx, flanks.DefaultConfig()) // credentials from FLANKS_CLIENT_ID / FLANKS_CLIENT_SECRET
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  entities, err := cli.Entities().List(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = entities
//	}
//
// # Pagination
//
// Cursor-paginated endpoints return a PageIterator that fetches the next page
// only when the current one is exhausted:
//
//	it := cli.AggregationV2().ListProducts(ctx, nil)
//	for product, err := range it.Seq() {
//	  if err != nil { break }
//	  _ = product
//	}
//
// or one page at a time:
//
//	page, err := cli.AggregationV2().ListProductsPage(ctx, nil, "")
//	if err == nil && page.HasNext() {
//	  page, err = cli.AggregationV2().ListProductsPage(ctx, nil, page.NextPageToken)
//	}
//
// # Errors
//
// Every failure carries a *Error with one of six kinds: Config, Auth, Validation,
// NotFound, Server or Network. Branch with errors.Is(err, flanks.ErrNotFound) or
// the IsNotFound style helpers; StatusCode and ResponseBody are preserved.
//
// # Interceptors and caching
//
// An InterceptorChain runs around every HTTP attempt (logging, static headers,
// request IDs, metrics). Successful GET responses can be cached in memory or in
// a NATS JetStream key-value bucket; see Config.Cache and NewCacheFromConfig.
package flanks
