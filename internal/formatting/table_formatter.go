package formatting

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"toolbelt/internal/api"
	"toolbelt/internal/dependency"
	"toolbelt/internal/registry"
	pkgstrings "toolbelt/pkg/strings"
)

const (
	maxCellWidth = 60
	maxListed    = 5
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// FormatTools renders one row per tool.
func (f *TableFormatter) FormatTools(tools []api.Tool) error {
	if len(tools) == 0 {
		return f.formatEmptyMessage("No tools found")
	}

	t := f.createTable()
	t.AppendHeader(f.header("NAME", "CATEGORY", "VERSION", "DESCRIPTION"))
	for _, tool := range tools {
		t.AppendRow(table.Row{
			f.paint(text.FgHiCyan, tool.Name),
			string(tool.Category),
			tool.Version,
			pkgstrings.TruncateDescription(tool.Description, pkgstrings.DefaultDescriptionMaxLen),
		})
	}
	t.Render()
	return f.formatTotal(len(tools), "tools")
}

// FormatToolDetail renders the tool, its metadata and its parameters.
func (f *TableFormatter) FormatToolDetail(detail ToolDetail) error {
	tool, md := detail.Tool, detail.Metadata

	t := f.createTable()
	t.SetTitle(tool.Name)
	t.AppendRows([]table.Row{
		{f.paint(text.FgHiCyan, "Description"), tool.Description},
		{f.paint(text.FgHiCyan, "Category"), string(tool.Category)},
		{f.paint(text.FgHiCyan, "Version"), tool.Version},
		{f.paint(text.FgHiCyan, "Author"), orDash(md.Author)},
		{f.paint(text.FgHiCyan, "Tags"), JoinOrDash(md.Tags)},
		{f.paint(text.FgHiCyan, "Dependencies"), JoinOrDash(md.Dependencies)},
		{f.paint(text.FgHiCyan, "Usage"), fmt.Sprintf("%d calls, %s success", md.UsageCount, Percent(md.SuccessRate))},
		{f.paint(text.FgHiCyan, "Last used"), lastUsed(md)},
	})
	t.Render()

	params := tool.InputSchema.Properties
	if len(params) == 0 {
		return nil
	}

	required := make(map[string]bool, len(tool.InputSchema.Required))
	for _, name := range tool.InputSchema.Required {
		required[name] = true
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pt := f.createTable()
	pt.SetTitle("Parameters")
	pt.AppendHeader(f.header("NAME", "TYPE", "REQUIRED", "DESCRIPTION"))
	for _, name := range names {
		description := ""
		if prop, ok := params[name].(map[string]interface{}); ok {
			description, _ = prop["description"].(string)
		}
		req := "no"
		if required[name] {
			req = f.paint(text.FgYellow, "yes")
		}
		pt.AppendRow(table.Row{name, orDash(tool.InputSchema.PropertyType(name)), req, Truncate(description, maxCellWidth)})
	}
	pt.Render()
	return nil
}

// FormatResponse renders the result of a tool call.
func (f *TableFormatter) FormatResponse(resp *api.Response) error {
	if !resp.Success {
		_, err := fmt.Fprintf(f.options.Out, "%s %s\n", f.paint(text.FgRed, "Error:"), resp.Error)
		return err
	}
	if err := f.FormatData(resp.Data); err != nil {
		return err
	}
	if f.options.Quiet {
		return nil
	}
	if ms, ok := resp.Metadata["duration_ms"]; ok {
		_, err := fmt.Fprintf(f.options.Out, "%s %vms\n", f.paint(text.FgHiBlue, "Duration:"), ms)
		return err
	}
	return nil
}

// FormatStatistics renders registry usage statistics.
func (f *TableFormatter) FormatStatistics(stats registry.Statistics) error {
	t := f.createTable()
	t.SetTitle("Registry")
	t.AppendRows([]table.Row{
		{f.paint(text.FgHiCyan, "Tools"), stats.TotalTools},
		{f.paint(text.FgHiCyan, "Calls"), stats.TotalUsage},
		{f.paint(text.FgHiCyan, "Average success"), Percent(stats.AverageSuccessRate)},
		{f.paint(text.FgHiCyan, "Tags"), stats.TagCount},
	})
	t.Render()

	if len(stats.Categories) > 0 {
		categories := make([]string, 0, len(stats.Categories))
		for category := range stats.Categories {
			categories = append(categories, category)
		}
		sort.Strings(categories)

		ct := f.createTable()
		ct.AppendHeader(f.header("CATEGORY", "TOOLS"))
		for _, category := range categories {
			ct.AppendRow(table.Row{category, stats.Categories[category]})
		}
		ct.Render()
	}

	if len(stats.PopularTools) > 0 {
		pt := f.createTable()
		pt.SetTitle("Most used")
		pt.AppendHeader(f.header("TOOL", "CALLS", "SUCCESS"))
		for _, p := range stats.PopularTools {
			pt.AppendRow(table.Row{p.Name, p.UsageCount, Percent(p.SuccessRate)})
		}
		pt.Render()
	}
	return nil
}

// FormatHealth renders the dependency health report.
func (f *TableFormatter) FormatHealth(report dependency.HealthReport) error {
	if report.Total == 0 {
		return f.formatEmptyMessage("No dependencies declared")
	}

	t := f.createTable()
	t.AppendHeader(f.header("DEPENDENCY", "REQUIRED", "STATE", "LOAD TIME", "ERROR"))
	for _, status := range report.Dependencies {
		t.AppendRow(table.Row{
			status.Name,
			yesNo(status.Required),
			f.state(status.State),
			status.LoadTime.String(),
			Truncate(status.ErrorMessage, maxCellWidth),
		})
	}
	t.Render()

	if f.options.Quiet {
		return nil
	}
	_, err := fmt.Fprintf(f.options.Out, "%s %d/%d loaded (%.1f%%), missing required: %s, missing optional: %s\n",
		f.paint(text.FgHiBlue, "Health:"),
		report.Loaded, report.Total, report.SuccessRate,
		pkgstrings.SummarizeList(report.MissingRequired, maxListed),
		pkgstrings.SummarizeList(report.MissingOptional, maxListed))
	return err
}

// FormatData formats generic data using table logic
func (f *TableFormatter) FormatData(data interface{}) error {
	switch d := data.(type) {
	case nil:
		return f.formatEmptyMessage("No data")
	case map[string]interface{}:
		return f.formatObjectData(d)
	case []interface{}:
		return f.formatArrayData(d)
	case string:
		_, err := fmt.Fprintln(f.options.Out, d)
		return err
	default:
		_, err := fmt.Fprintln(f.options.Out, PrettyJSON(d))
		return err
	}
}

// SetOptions updates the formatter options
func (f *TableFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.Out)
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) header(columns ...string) table.Row {
	row := make(table.Row, len(columns))
	for i, column := range columns {
		row[i] = f.paint(text.FgHiCyan, column)
	}
	return row
}

// paint colors s when colored output is enabled.
func (f *TableFormatter) paint(color text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return color.Sprint(s)
}

func (f *TableFormatter) state(state dependency.State) string {
	switch state {
	case dependency.StateLoaded:
		return f.paint(text.FgGreen, string(state))
	case dependency.StateFailed:
		return f.paint(text.FgRed, string(state))
	default:
		return f.paint(text.FgYellow, string(state))
	}
}

func (f *TableFormatter) formatEmptyMessage(message string) error {
	_, err := fmt.Fprintln(f.options.Out, f.paint(text.FgYellow, message))
	return err
}

func (f *TableFormatter) formatTotal(n int, noun string) error {
	if f.options.Quiet {
		return nil
	}
	_, err := fmt.Fprintf(f.options.Out, "%s %d %s\n", f.paint(text.FgHiBlue, "Total:"), n, noun)
	return err
}

// formatObjectData formats object data as key-value pairs
func (f *TableFormatter) formatObjectData(data map[string]interface{}) error {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	t := f.createTable()
	t.AppendHeader(f.header("KEY", "VALUE"))
	for _, key := range keys {
		value := data[key]
		valueStr, ok := value.(string)
		if !ok {
			valueStr = fmt.Sprintf("%v", value)
		}
		t.AppendRow(table.Row{f.paint(text.FgHiCyan, key), Truncate(valueStr, 100)})
	}
	t.Render()
	return nil
}

// formatArrayData formats array data as a numbered list
func (f *TableFormatter) formatArrayData(data []interface{}) error {
	if len(data) == 0 {
		return f.formatEmptyMessage("No items found")
	}
	for i, item := range data {
		if _, err := fmt.Fprintf(f.options.Out, "  %d. %v\n", i+1, item); err != nil {
			return err
		}
	}
	return f.formatTotal(len(data), "items")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func lastUsed(md api.ToolMetadata) string {
	if md.LastUsed == nil {
		return "never"
	}
	return md.LastUsed.Format("2006-01-02 15:04:05")
}
