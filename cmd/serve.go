package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"toolbelt/internal/app"
)

var (
	serveTransport   string
	serveAddr        string
	serveMetricsAddr string
)

// serveCmd publishes the registry over the Model Context Protocol.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose every registered tool over MCP",
	Long: `Starts an MCP server that exposes every registered tool. Calls are routed
through the client, so parameters are validated and usage is recorded.

Transports:
  stdio            (default) for agents that spawn toolbelt as a subprocess
  streamable-http  listens on --addr (default 127.0.0.1:8090)

When registry.watch is enabled the tool list follows changes to
registry.file. With --metrics-addr (or metrics.enabled in config.yaml)
Prometheus metrics are served on /metrics.

Logs are written to stderr so that stdout stays reserved for the stdio
transport.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Serve(commandContext(cmd), app.ServeOptions{
		In:          cmd.InOrStdin(),
		Out:         cmd.OutOrStdout(),
		Transport:   serveTransport,
		Addr:        serveAddr,
		MetricsAddr: serveMetricsAddr,
	})
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "MCP transport: stdio or streamable-http (default from config)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address for the streamable-http transport")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}
