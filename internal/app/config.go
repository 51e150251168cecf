package app

import (
	"io"

	"toolbelt/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// Silent discards all log output.
	Silent bool

	// LogOutput receives log records; nil selects stderr so that stdout stays
	// free for command output and the MCP stdio transport.
	LogOutput io.Writer

	// Custom configuration path (optional)
	ConfigPath string

	// Version is reported by the client handshake and the MCP server.
	Version string

	// ToolbeltConfig, when set, is used instead of loading config.yaml.
	ToolbeltConfig *config.ToolbeltConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath, version string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
		Version:    version,
	}
}
