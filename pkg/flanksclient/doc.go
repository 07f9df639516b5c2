// Package flanksclient is the entry point for constructing a Flanks API client
// that implements the flanks.Client interface.
//
// It wires the OAuth2 client-credentials token manager, the retrying HTTP
// transport and the resource clients defined in the flanks package. Credentials
// come from the Config or, when absent, from the FLANKS_CLIENT_ID and
// FLANKS_CLIENT_SECRET environment variables.
//
// Quick start
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
//
//	  // Credentials from the environment, default settings.
//	  cli, err := flanksclient.NewFromEnv(ctx)
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  // Or explicitly, with a custom retry policy:
//	  config := flanks.DefaultConfig()
//	  config.ClientID = "client-id"
//	  config.ClientSecret = "client-secret"
//	  config.MaxRetries = 3
//	  cli, err = flanksclient.New(ctx, config)
//	  if err != nil { log.Fatal(err) }
//
//	  for product, err := range cli.AggregationV2().ListProducts(ctx, nil).Seq() {
//	    if err != nil { log.Fatal(err) }
//	    log.Println(product.ProductID, product.Balance)
//	  }
//	}
//
// # Errors
//
// Every failure carries a flanks.ErrorKind. Use errors.Is with the kind
// sentinels (flanks.ErrAuth, flanks.ErrNotFound, ...) or the flanks.Is* helpers
// to tell "fix your request" from "retry later" without parsing messages.
//
// # Configuration
//
// Credentials, base URL, timeout and retry policy are fixed at construction.
// Invalid configuration fails New with a Config error; no request is sent until
// the first call.
package flanksclient
