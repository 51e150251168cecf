package formatting

import (
	"fmt"

	"sigs.k8s.io/yaml"

	"toolbelt/internal/api"
	"toolbelt/internal/dependency"
	"toolbelt/internal/registry"
)

// YAMLFormatter provides YAML output formatting. Values are encoded through
// their JSON form, so YAML keys match the JSON output.
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

func (f *YAMLFormatter) FormatTools(tools []api.Tool) error {
	return f.write(map[string]interface{}{
		"tools": tools,
		"count": len(tools),
	})
}

func (f *YAMLFormatter) FormatToolDetail(detail ToolDetail) error {
	return f.write(detail)
}

func (f *YAMLFormatter) FormatResponse(resp *api.Response) error {
	return f.write(resp)
}

func (f *YAMLFormatter) FormatStatistics(stats registry.Statistics) error {
	return f.write(stats)
}

func (f *YAMLFormatter) FormatHealth(report dependency.HealthReport) error {
	return f.write(report)
}

func (f *YAMLFormatter) FormatData(data interface{}) error {
	return f.write(data)
}

// SetOptions updates the formatter options
func (f *YAMLFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *YAMLFormatter) GetOptions() Options {
	return f.options
}

func (f *YAMLFormatter) write(v interface{}) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	_, err = f.options.Out.Write(out)
	return err
}
