package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/flanks-go/internal/constants"
	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// NewProductsCommand creates the products command group (Aggregation API v2).
func NewProductsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse aggregated products",
	}

	var (
		types       []string
		connections []string
		limit       int
	)

	list := &cobra.Command{
		Use:   "list",
		Short: "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			query := &flanks.ProductQuery{ConnectionIDIn: connections}
			for _, productType := range types {
				query.ProductTypeIn = append(query.ProductTypeIn, flanks.ProductType(productType))
			}

			products, err := collect(client.AggregationV2().ListProducts(cmd.Context(), query), limit)
			if err != nil {
				return fmt.Errorf("failed to list products: %w", err)
			}

			return renderList(cmd.OutOrStdout(), products, "No products found",
				[]string{"Product ID", "Type", "Name", "Balance", "Currency"},
				func(product flanks.Product) []string {
					return []string{
						product.ProductID, orNA(string(product.ProductType)), orNA(product.Name),
						orNA(product.Balance.String()), orNA(product.Currency),
					}
				})
		},
	}

	list.Flags().StringSliceVar(&types, "type", nil, "filter by product type (repeatable)")
	list.Flags().StringSliceVar(&connections, "connection", nil, "filter by connection ID (repeatable)")
	list.Flags().IntVar(&limit, "limit", 0, "stop after this many products (0 for all)")

	cmd.AddCommand(list)

	return cmd
}

// NewTransactionsCommand creates the transactions command group (Aggregation API v2).
func NewTransactionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Browse aggregated transactions",
	}

	var (
		products []string
		from     string
		to       string
		limit    int
	)

	list := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := &flanks.TransactionQuery{ProductIDIn: products}

			var err error

			query.DateFrom, err = parseDateFlag(from)
			if err != nil {
				return err
			}

			query.DateTo, err = parseDateFlag(to)
			if err != nil {
				return err
			}

			client, cleanup, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			transactions, err := collect(client.AggregationV2().ListTransactions(cmd.Context(), query), limit)
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			return renderList(cmd.OutOrStdout(), transactions, "No transactions found",
				[]string{"Transaction ID", "Product", "Date", "Amount", "Currency", "Description"},
				func(transaction flanks.Transaction) []string {
					date := NotAvailable
					if transaction.Date != nil {
						date = transaction.Date.String()
					}

					return []string{
						transaction.TransactionID, orNA(transaction.ProductID), date,
						orNA(transaction.Amount.String()), orNA(transaction.Currency), orNA(transaction.Description),
					}
				})
		},
	}

	list.Flags().StringSliceVar(&products, "product", nil, "filter by product ID (repeatable)")
	list.Flags().StringVar(&from, "from", "", "earliest date (YYYY-MM-DD)")
	list.Flags().StringVar(&to, "to", "", "latest date (YYYY-MM-DD)")
	list.Flags().IntVar(&limit, "limit", 0, "stop after this many transactions (0 for all)")

	cmd.AddCommand(list)

	return cmd
}

func parseDateFlag(value string) (*flanks.Date, error) {
	if value == "" {
		return nil, nil //nolint:nilnil // an unset flag is not an error
	}

	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", constants.ErrInvalidDate, value)
	}

	date := flanks.NewDate(parsed.Year(), parsed.Month(), parsed.Day())

	return &date, nil
}
