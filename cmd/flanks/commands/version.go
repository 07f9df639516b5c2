package commands

import (
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/flanks-go/internal/constants"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the flanks CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			type VersionInfo struct {
				Version    string `json:"version"     yaml:"version"`
				Commit     string `json:"commit"      yaml:"commit"`
				Built      string `json:"built"       yaml:"built"`
				SDKVersion string `json:"sdk_version" yaml:"sdk_version"`
				APIVersion string `json:"api_version" yaml:"api_version"`
			}

			info := VersionInfo{
				Version:    version,
				Commit:     commit,
				Built:      date,
				SDKVersion: constants.SDKVersion,
				APIVersion: constants.DefaultAPIVersion,
			}

			return renderValue(cmd.OutOrStdout(), info, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("Version", info.Version)
				_ = table.Append("Commit", info.Commit)
				_ = table.Append("Built", info.Built)
				_ = table.Append("SDK", info.SDKVersion)
				_ = table.Append("API", info.APIVersion)
			})
		},
	}
}
