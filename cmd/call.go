package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"toolbelt/internal/api"
	"toolbelt/internal/formatting"
)

var (
	callArgs  string
	callAgent string
	callUser  string
)

var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Invoke a tool",
	Long: `Invoke a tool through the client. Parameters are passed as a JSON object
and validated against the tool's input schema before the handler runs.

With --agent the call goes through that agent's integration façade, which
applies the agent's category filter, dependency checks and error policy.

Examples:
  toolbelt call file_exists --args '{"path": "go.mod"}'
  toolbelt call read_file --args '{"path": "README.md"}' --output json
  toolbelt call query_data --agent assistant --args '{"query": "users"}'`,
	Args:              cobra.ExactArgs(1),
	RunE:              runCall,
	ValidArgsFunction: completeToolNames,
}

func runCall(cmd *cobra.Command, args []string) error {
	params, err := parseArguments(callArgs)
	if err != nil {
		return err
	}
	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}

	services, disconnect, err := connectedServices(cmd)
	if err != nil {
		return err
	}
	defer disconnect()

	ctx := commandContext(cmd)
	name := args[0]

	if callAgent != "" {
		facade, ok := services.Facade(callAgent)
		if !ok {
			return fmt.Errorf("unknown agent %q (configured: %s)", callAgent, formatting.JoinOrDash(services.AgentNames()))
		}
		if err := facade.Initialize(ctx); err != nil {
			return err
		}
		result, err := facade.CallTool(ctx, name, params)
		if err != nil {
			return err
		}
		return formatter.FormatData(result)
	}

	var opts []api.ContextOption
	if callUser != "" {
		opts = append(opts, api.WithUser(callUser))
	}
	resp := services.Client.CallTool(ctx, name, params, services.Client.CreateContext(opts...))
	if resp.Success {
		return formatter.FormatResponse(resp)
	}

	// Table output would only repeat the error cobra prints.
	if formatter.GetOptions().Format != formatting.FormatTable {
		if err := formatter.FormatResponse(resp); err != nil {
			return err
		}
	}
	return responseError(resp)
}

// responseError returns the typed cause of a failed response when known.
func responseError(resp *api.Response) error {
	if resp.Err != nil {
		return resp.Err
	}
	msg := strings.TrimSpace(resp.Error)
	if msg == "" {
		msg = "tool call failed"
	}
	return errors.New(msg)
}

func init() {
	callCmd.Flags().StringVar(&callArgs, "args", "", "Tool parameters as a JSON object")
	callCmd.Flags().StringVar(&callAgent, "agent", "", "Call through the integration façade of this agent")
	callCmd.Flags().StringVar(&callUser, "user", "", "User ID recorded in the execution context")
	addOutputFlag(callCmd.Flags())
}
