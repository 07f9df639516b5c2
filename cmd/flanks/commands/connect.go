package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// NewConnectCommand creates the connect command group.
func NewConnectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Inspect Connect sessions and connectors",
	}

	cmd.AddCommand(newConnectSessionsCommand())
	cmd.AddCommand(newConnectConnectorsCommand())

	return cmd
}

func newConnectSessionsCommand() *cobra.Command {
	var (
		statuses []string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List Connect sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			var query *flanks.SessionQuery
			if len(statuses) > 0 {
				query = &flanks.SessionQuery{}
				for _, status := range statuses {
					query.StatusIn = append(query.StatusIn, flanks.SessionStatus(status))
				}
			}

			sessions, err := collect(client.Connect().ListSessions(cmd.Context(), query), limit)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			return renderList(cmd.OutOrStdout(), sessions, "No sessions found",
				[]string{"Session ID", "Status", "Connection ID", "Error"},
				func(session flanks.Session) []string {
					return []string{session.SessionID, string(session.Status), orNA(session.ConnectionID), orNA(session.ErrorCode)}
				})
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many sessions (0 for all)")

	return cmd
}

func newConnectConnectorsCommand() *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "connectors",
		Short: "List Connect connectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			connectors, err := client.Connect().ListConnectors(cmd.Context(), ids).All()
			if err != nil {
				return fmt.Errorf("failed to list connectors: %w", err)
			}

			return renderList(cmd.OutOrStdout(), connectors, "No connectors found",
				[]string{"Connector ID", "Name"},
				func(connector flanks.Connector) []string {
					return []string{connector.ConnectorID, connector.Name}
				})
		},
	}

	cmd.Flags().StringSliceVar(&ids, "id", nil, "only these connector IDs (repeatable)")

	return cmd
}

// collect drains an iterator, stopping after limit items when limit is positive.
func collect[T any](it *flanks.PageIterator[T], limit int) ([]T, error) {
	items := []T{}

	for item, err := range it.Seq() {
		if err != nil {
			return nil, err
		}

		items = append(items, item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}

	return items, nil
}
