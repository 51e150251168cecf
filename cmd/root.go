package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"toolbelt/internal/api"
	"toolbelt/internal/config"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfig indicates that config.yaml could not be loaded or is invalid.
	ExitCodeConfig = 2
	// ExitCodeDependency indicates that a required dependency is missing.
	ExitCodeDependency = 3
)

var (
	// configPath is the directory holding config.yaml. Empty selects
	// ~/.config/toolbelt.
	configPath string

	// debug raises the log level to debug regardless of the configuration.
	debug bool

	// outputFormat selects table, json or yaml output for the commands
	// registering the --output flag.
	outputFormat string
)

// rootCmd represents the base command for the toolbelt application.
var rootCmd = &cobra.Command{
	Use:   "toolbelt",
	Short: "Register, discover and invoke tools for AI agents",
	Long: `toolbelt keeps a registry of tools with typed input schemas, invokes them
through a validating client and exposes them to agents either directly or
over the Model Context Protocol.

Tools, dependencies and agents are configured in config.yaml inside the
configuration directory (~/.config/toolbelt unless --config-path is set).`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "toolbelt version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfig
	}

	if api.IsRequiredDependencyMissing(err) {
		return ExitCodeDependency
	}

	return ExitCodeError
}

// addOutputFlag registers --output on commands that render results.
func addOutputFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json, yaml)")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Configuration directory (default is $HOME/.config/toolbelt)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(serveCmd)
}
