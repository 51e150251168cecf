package config

import "time"

const (
	DefaultCallTimeout  = 30 * time.Second
	DefaultHistoryLimit = 1000
	DefaultServerAddr   = "127.0.0.1:8090"
	DefaultMetricsAddr  = "127.0.0.1:9090"
)

// GetDefaultConfig returns the configuration used when no config.yaml exists.
func GetDefaultConfig() ToolbeltConfig {
	return ToolbeltConfig{
		Workspace: ".",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Client: ClientConfig{
			Name:         "toolbelt",
			CallTimeout:  DefaultCallTimeout,
			HistoryLimit: DefaultHistoryLimit,
		},
		Metrics: MetricsConfig{
			Addr: DefaultMetricsAddr,
		},
		Server: ServerConfig{
			Transport: TransportStdio,
			Addr:      DefaultServerAddr,
			Agent:     "mcp",
		},
	}
}
