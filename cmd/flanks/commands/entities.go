package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// NewEntitiesCommand creates the entities command group.
func NewEntitiesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entities",
		Aliases: []string{"banks"},
		Short:   "Browse banking entities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available entities",
		Long:  "List the banks and financial institutions Flanks can connect to",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			entities, err := client.Entities().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list entities: %w", err)
			}

			return renderList(cmd.OutOrStdout(), entities, "No entities found",
				[]string{"ID", "Name", "Country"},
				func(entity flanks.Entity) []string {
					return []string{entity.ID, entity.Name, orNA(entity.Country)}
				})
		},
	})

	return cmd
}
