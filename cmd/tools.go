package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"toolbelt/internal/api"
	"toolbelt/internal/formatting"
	"toolbelt/internal/registry"
)

var (
	toolsCategory string
	toolsPattern  string
	toolsTag      string
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect registered tools",
	Long: `Inspect the tools in the registry: the built-in tools plus every tool
imported from registry.file.`,
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools",
	Long: `List registered tools sorted by name.

Examples:
  toolbelt tools list
  toolbelt tools list --category system
  toolbelt tools list --pattern '*_file'
  toolbelt tools list --pattern '{read,write}_*' --output json`,
	Args: cobra.NoArgs,
	RunE: runToolsList,
}

var toolsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search tools by name, description and tags",
	Long: `Search tools whose name, description or tags contain the query,
ignoring case. An empty query matches every tool.`,
	Args: cobra.ExactArgs(1),
	RunE: runToolsSearch,
}

var toolsDescribeCmd = &cobra.Command{
	Use:               "describe <name>",
	Short:             "Show a tool with its metadata and parameters",
	Args:              cobra.ExactArgs(1),
	RunE:              runToolsDescribe,
	ValidArgsFunction: completeToolNames,
}

func runToolsList(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	tools, err := filterTools(application.Services().Registry, toolsCategory, toolsPattern, toolsTag)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}
	return formatter.FormatTools(tools)
}

// filterTools applies the list filters. Every filter is optional; set
// filters must all match.
func filterTools(reg *registry.Registry, category, pattern, tag string) ([]api.Tool, error) {
	var tools []api.Tool
	if pattern != "" {
		matched, err := reg.MatchTools(pattern)
		if err != nil {
			return nil, err
		}
		tools = matched
	} else {
		tools = reg.ListTools()
	}

	if category != "" {
		c, err := api.ParseCategory(category)
		if err != nil {
			return nil, err
		}
		tools = keepTools(tools, func(t api.Tool) bool { return t.Category == c })
	}

	if tag != "" {
		tagged := make(map[string]bool)
		for _, t := range reg.ToolsByTag(tag) {
			tagged[t.Name] = true
		}
		tools = keepTools(tools, func(t api.Tool) bool { return tagged[t.Name] })
	}

	return tools, nil
}

func keepTools(tools []api.Tool, keep func(api.Tool) bool) []api.Tool {
	out := make([]api.Tool, 0, len(tools))
	for _, t := range tools {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func runToolsSearch(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	tools := application.Services().Registry.SearchTools(args[0])

	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}
	return formatter.FormatTools(tools)
}

func runToolsDescribe(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	reg := application.Services().Registry

	name := args[0]
	tool, ok := reg.GetTool(name)
	if !ok {
		return fmt.Errorf("%w (try 'toolbelt tools search %s')", api.NewToolNotFoundError(name), name)
	}
	metadata, _ := reg.GetMetadata(name)

	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}
	return formatter.FormatToolDetail(formatting.ToolDetail{Tool: tool, Metadata: metadata})
}

func init() {
	toolsListCmd.Flags().StringVar(&toolsCategory, "category", "", "Only list tools of this category")
	toolsListCmd.Flags().StringVar(&toolsPattern, "pattern", "", "Only list tools whose name matches this glob pattern")
	toolsListCmd.Flags().StringVar(&toolsTag, "tag", "", "Only list tools carrying this tag")

	addOutputFlag(toolsCmd.PersistentFlags())

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsSearchCmd)
	toolsCmd.AddCommand(toolsDescribeCmd)
}
