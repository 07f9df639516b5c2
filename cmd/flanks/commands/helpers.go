package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/flanks-go/internal/constants"
)

// Output formats.
const (
	OutputFormatTable = "table"
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"

	NotAvailable = "N/A"

	defaultJSONIndent = 2
)


// renderValue writes data as JSON or YAML, or calls table to fill a table.
func renderValue(w io.Writer, data interface{}, table func(*tablewriter.Table)) error {
	format := strings.ToLower(viper.GetString("output"))

	switch format {
	case OutputFormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

		return encoder.Encode(data)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(defaultJSONIndent)

		err := encoder.Encode(data)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}

		return encoder.Close()
	case OutputFormatTable, "":
		writer := tablewriter.NewWriter(w)
		table(writer)

		err := writer.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", constants.ErrUnsupportedFormat, format)
	}
}

// renderList renders items, printing empty instead of a table when there are none.
func renderList[T any](w io.Writer, items []T, empty string, headers []string, row func(T) []string) error {
	if len(items) == 0 && isTableOutput() {
		_, _ = fmt.Fprintln(w, empty)

		return nil
	}

	return renderValue(w, items, func(table *tablewriter.Table) {
		table.Header(headers)

		for _, item := range items {
			_ = table.Append(row(item))
		}
	})
}

func isTableOutput() bool {
	format := strings.ToLower(viper.GetString("output"))

	return format == OutputFormatTable || format == ""
}

func orNA(value string) string {
	if value == "" {
		return NotAvailable
	}

	return value
}
