package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// NewLinksCommand creates the links command group.
func NewLinksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Inspect legacy links",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List links",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			links, err := client.Links().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list links: %w", err)
			}

			return renderList(cmd.OutOrStdout(), links, "No links found",
				[]string{"Link Token", "Name", "Redirect URI", "Paused"},
				func(link flanks.Link) []string {
					paused := NotAvailable
					if link.IsPaused != nil {
						paused = strconv.FormatBool(*link.IsPaused)
					}

					return []string{link.LinkToken, orNA(link.Name), orNA(link.RedirectURI), paused}
				})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "codes LINK_TOKEN",
		Short: "List unused exchange codes of a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			codes, err := client.Links().GetUnusedCodes(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get unused codes: %w", err)
			}

			return renderList(cmd.OutOrStdout(), codes, "No unused codes",
				[]string{"Code", "Expires"},
				func(code flanks.LinkCode) []string {
					return []string{code.Code, orNA(code.ExpiresAt)}
				})
		},
	})

	return cmd
}
