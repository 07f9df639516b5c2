package commands

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// NewCredentialsCommand creates the credentials command group.
func NewCredentialsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"creds"},
		Short:   "Inspect bank credentials",
	}

	cmd.AddCommand(newCredentialsStatusCommand())
	cmd.AddCommand(newCredentialsListCommand())

	return cmd
}

func newCredentialsStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status CREDENTIALS_TOKEN",
		Short: "Show the status of a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			status, err := client.Credentials().GetStatus(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get credential status: %w", err)
			}

			return renderValue(cmd.OutOrStdout(), status, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("Credentials Token", status.CredentialsToken)
				_ = table.Append("Status", string(status.Status))
				_ = table.Append("Entity", orNA(status.EntityID))
			})
		},
	}
}

func newCredentialsListCommand() *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			credentials, err := client.Credentials().List(cmd.Context(), page)
			if err != nil {
				return fmt.Errorf("failed to list credentials: %w", err)
			}

			return renderList(cmd.OutOrStdout(), credentials, "No credentials found",
				[]string{"Credentials Token", "Entity", "Status", "Created"},
				func(credential flanks.Credential) []string {
					created := NotAvailable
					if credential.CreatedAt != nil {
						created = credential.CreatedAt.Format("2006-01-02")
					}

					return []string{credential.CredentialsToken, credential.EntityID, string(credential.Status), created}
				})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")

	return cmd
}
