package formatting

import (
	"fmt"

	"toolbelt/internal/api"
	"toolbelt/internal/dependency"
	"toolbelt/internal/registry"
)

// JSONFormatter provides JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

func (f *JSONFormatter) FormatTools(tools []api.Tool) error {
	return f.write(map[string]interface{}{
		"tools": tools,
		"count": len(tools),
	})
}

func (f *JSONFormatter) FormatToolDetail(detail ToolDetail) error {
	return f.write(detail)
}

func (f *JSONFormatter) FormatResponse(resp *api.Response) error {
	return f.write(resp)
}

func (f *JSONFormatter) FormatStatistics(stats registry.Statistics) error {
	return f.write(stats)
}

func (f *JSONFormatter) FormatHealth(report dependency.HealthReport) error {
	return f.write(report)
}

func (f *JSONFormatter) FormatData(data interface{}) error {
	return f.write(data)
}

// SetOptions updates the formatter options
func (f *JSONFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *JSONFormatter) GetOptions() Options {
	return f.options
}

func (f *JSONFormatter) write(v interface{}) error {
	_, err := fmt.Fprintln(f.options.Out, PrettyJSON(v))
	return err
}
