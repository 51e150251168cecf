package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"toolbelt/internal/registry"
)

var (
	exportFormat string
	exportOutput string
	importFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the registry",
	Long: `Export every registered tool with its metadata as a JSON, YAML or TOML
document. Without --output the document is written to stdout; with it the
format defaults to the file extension.

Examples:
  toolbelt export --format yaml
  toolbelt export --output tools.toml`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the configured registry file with an exported document",
	Long: `Import an exported document and store it as registry.file.

The import replaces the previous content of the registry file. Built-in
tools do not need to be part of the document; they are registered on every
start.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := selectFormat(exportFormat, exportOutput)
	if err != nil {
		return err
	}

	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	reg := application.Services().Registry

	if exportOutput != "" {
		if err := reg.SaveFile(exportOutput, format); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d tools to %s\n", reg.Count(), exportOutput)
		return nil
	}

	data, err := reg.Marshal(format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runImport(cmd *cobra.Command, args []string) error {
	source := args[0]
	format, err := selectFormat(importFormat, source)
	if err != nil {
		return err
	}

	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	target := application.Config().Registry.File
	if target == "" {
		return fmt.Errorf("registry.file is not configured: nothing to import into")
	}

	reg := registry.New()
	if err := reg.LoadFile(source, format); err != nil {
		return err
	}
	if err := reg.SaveFile(target, registry.Format(application.Config().Registry.Format)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tools from %s into %s\n", reg.Count(), source, target)
	return nil
}

// selectFormat parses an explicit --format, otherwise infers the format from
// path. Without either the format is JSON.
func selectFormat(flag, path string) (registry.Format, error) {
	if flag != "" {
		return registry.ParseFormat(flag)
	}
	if path != "" {
		return registry.FormatFromPath(path), nil
	}
	return registry.FormatJSON, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "Document format: json, yaml or toml")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "Write the document to this file instead of stdout")
	importCmd.Flags().StringVar(&importFormat, "format", "", "Document format: json, yaml or toml (default from the file extension)")
}
