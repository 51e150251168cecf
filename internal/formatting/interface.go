// Package formatting renders command output for the toolbelt CLI.
//
// Every formatter writes to the io.Writer in its Options. The table
// formatter produces go-pretty tables for humans; the JSON and YAML
// formatters produce machine-readable documents with the same field names
// as the export format.
package formatting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"toolbelt/internal/api"
	"toolbelt/internal/dependency"
	"toolbelt/internal/registry"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseOutputFormat converts a flag value. The empty string selects
// FormatTable.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table, json or yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Suppress decorative elements
	Color  bool // Enable colored output
	Out    io.Writer
}

// ToolDetail pairs a tool with its registry metadata.
type ToolDetail struct {
	Tool     api.Tool         `json:"tool"`
	Metadata api.ToolMetadata `json:"metadata"`
}

// Formatter renders CLI results.
type Formatter interface {
	FormatTools(tools []api.Tool) error
	FormatToolDetail(detail ToolDetail) error
	FormatResponse(resp *api.Response) error
	FormatStatistics(stats registry.Statistics) error
	FormatHealth(report dependency.HealthReport) error

	// FormatData renders an arbitrary value such as a tool result.
	FormatData(data interface{}) error

	SetOptions(options Options)
	GetOptions() Options
}

// New creates the formatter selected by options.Format. A nil Out writes to
// stdout.
func New(options Options) Formatter {
	if options.Out == nil {
		options.Out = os.Stdout
	}
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	default:
		return NewTableFormatter(options)
	}
}
