package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"toolbelt/internal/app"
	"toolbelt/internal/formatting"
)

// commandContext returns the command context, or a background context when
// the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newApplication loads the configuration and builds all services. Logs go
// to the command's stderr so that stdout only carries command output.
func newApplication(cmd *cobra.Command) (*app.Application, error) {
	cfg := app.NewConfig(debug, configPath, GetVersion())
	cfg.LogOutput = cmd.ErrOrStderr()
	return app.NewApplication(commandContext(cmd), cfg)
}

// connectedServices builds the application and connects its client. The
// returned function disconnects the client again.
func connectedServices(cmd *cobra.Command) (*app.Services, func(), error) {
	application, err := newApplication(cmd)
	if err != nil {
		return nil, nil, err
	}
	services := application.Services()
	if err := services.Client.Connect(commandContext(cmd)); err != nil {
		return nil, nil, fmt.Errorf("failed to connect client: %w", err)
	}
	return services, services.Client.Disconnect, nil
}

// newFormatter creates the formatter selected by --output.
func newFormatter(cmd *cobra.Command) (formatting.Formatter, error) {
	format, err := formatting.ParseOutputFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	return formatting.New(formatting.Options{
		Format: format,
		Color:  isTerminal(out),
		Out:    out,
	}), nil
}

// isTerminal reports whether w is a character device and NO_COLOR is unset.
func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// parseArguments decodes the --args flag. An empty value yields no
// parameters.
func parseArguments(raw string) (map[string]interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	var params map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("invalid --args: expected a JSON object: %w", err)
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	return params, nil
}

// completeToolNames completes the first argument with registered tool names.
func completeToolNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg := app.NewConfig(false, configPath, GetVersion())
	cfg.Silent = true
	application, err := app.NewApplication(commandContext(cmd), cfg)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var names []string
	for _, tool := range application.Services().Registry.ListTools() {
		if strings.HasPrefix(tool.Name, toComplete) {
			names = append(names, tool.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
