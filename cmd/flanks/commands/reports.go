package commands

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/flanks-go/internal/constants"
	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// NewReportsCommand creates the reports command group.
func NewReportsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect reports (beta)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "templates",
		Short: "List report templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			templates, err := client.Reports().ListTemplates(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list report templates: %w", err)
			}

			return renderList(cmd.OutOrStdout(), templates, "No report templates found",
				[]string{"Template ID", "Name", "Description"},
				func(template flanks.ReportTemplate) []string {
					return []string{template.TemplateID, orNA(template.Name), orNA(template.Description)}
				})
		},
	})

	cmd.AddCommand(newReportsStatusCommand())

	return cmd
}

func newReportsStatusCommand() *cobra.Command {
	var withURL bool

	cmd := &cobra.Command{
		Use:   "status REPORT_ID",
		Short: "Show the status of a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reportID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q", constants.ErrInvalidReportID, args[0])
			}

			client, cleanup, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := client.Reports().GetStatus(cmd.Context(), reportID)
			if err != nil {
				return fmt.Errorf("failed to get report status: %w", err)
			}

			contentURL := ""
			if withURL && report.Status == flanks.ReportStatusCompleted {
				contentURL, err = client.Reports().GetContentURL(cmd.Context(), reportID)
				if err != nil {
					return fmt.Errorf("failed to get report content URL: %w", err)
				}
			}

			type reportView struct {
				flanks.Report `yaml:",inline"`

				ContentURL string `json:"content_url,omitempty" yaml:"content_url,omitempty"`
			}

			return renderValue(cmd.OutOrStdout(), reportView{Report: *report, ContentURL: contentURL}, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("Report ID", report.ReportID)
				_ = table.Append("Template", orNA(report.TemplateID))
				_ = table.Append("Status", string(report.Status))
				_ = table.Append("Created", orNA(report.CreatedAt))

				if report.ErrorMessage != "" {
					_ = table.Append("Error", report.ErrorMessage)
				}

				if contentURL != "" {
					_ = table.Append("Content URL", contentURL)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&withURL, "url", false, "also fetch the download URL of a completed report")

	return cmd
}
