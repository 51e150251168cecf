package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"toolbelt/internal/api"
	"toolbelt/internal/client"
	"toolbelt/pkg/logging"
)

// Config configures the MCP server identity.
type Config struct {
	Name    string
	Version string
	// Agent is recorded on the invocation context of every MCP call.
	Agent string
}

// Server publishes client tools over MCP.
type Server struct {
	cfg    Config
	client *client.Client
	mcp    *server.MCPServer

	mu      sync.Mutex
	exposed map[string]bool
}

// New creates an MCP server for c. Tools are published by Sync.
func New(c *client.Client, cfg Config) *Server {
	if cfg.Name == "" {
		cfg.Name = "toolbelt"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Agent == "" {
		cfg.Agent = "mcp"
	}
	return &Server{
		cfg:    cfg,
		client: c,
		mcp: server.NewMCPServer(
			cfg.Name,
			cfg.Version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		exposed: make(map[string]bool),
	}
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Sync publishes every client tool and withdraws tools that no longer exist.
// It returns the number of published tools.
func (s *Server) Sync() int {
	tools := s.client.GetTools("")

	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(map[string]bool, len(tools))
	serverTools := make([]server.ServerTool, 0, len(tools))
	for _, tool := range tools {
		current[tool.Name] = true
		serverTools = append(serverTools, server.ServerTool{
			Tool:    ToMCPTool(tool),
			Handler: s.handler(tool.Name),
		})
	}

	var removed []string
	for name := range s.exposed {
		if !current[name] {
			removed = append(removed, name)
		}
	}
	if len(removed) > 0 {
		sort.Strings(removed)
		s.mcp.DeleteTools(removed...)
	}
	if len(serverTools) > 0 {
		s.mcp.AddTools(serverTools...)
	}
	s.exposed = current

	logging.Debug("MCPServer", "Published %d tools, withdrew %d", len(serverTools), len(removed))
	return len(serverTools)
}

// Exposed returns the names of the published tools, sorted.
func (s *Server) Exposed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.exposed))
	for name := range s.exposed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToMCPTool converts a tool definition into its MCP form. The output schema is
// only published when the tool declares one.
func ToMCPTool(tool api.Tool) mcp.Tool {
	t := mcp.Tool{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: ToInputSchema(tool.InputSchema),
	}
	if !tool.OutputSchema.IsZero() {
		in := ToInputSchema(tool.OutputSchema)
		t.OutputSchema = mcp.ToolOutputSchema{
			Type:       in.Type,
			Properties: in.Properties,
			Required:   in.Required,
		}
	}
	return t
}

// ToInputSchema converts an api.Schema into an MCP input schema. MCP requires
// an object schema, so an empty type is reported as "object".
func ToInputSchema(s api.Schema) mcp.ToolInputSchema {
	properties := make(map[string]interface{}, len(s.Properties))
	for name, prop := range s.Properties {
		properties[name] = prop
	}
	required := append([]string{}, s.Required...)

	schemaType := s.Type
	if schemaType == "" {
		schemaType = "object"
	}
	return mcp.ToolInputSchema{
		Type:       schemaType,
		Properties: properties,
		Required:   required,
	}
}

// handler routes an MCP tool call through the client.
func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.mu.Lock()
		active := s.exposed[name]
		s.mu.Unlock()
		if !active {
			return mcp.NewToolResultError(fmt.Sprintf("tool '%s' is no longer available", name)), nil
		}

		callCtx := s.client.CreateContext(api.WithAgent(s.cfg.Agent))
		resp := s.client.CallTool(ctx, name, req.GetArguments(), callCtx)
		return ToResult(resp), nil
	}
}

// ToResult converts a client response into an MCP tool result.
func ToResult(resp *api.Response) *mcp.CallToolResult {
	if !resp.Success {
		msg := resp.Error
		if msg == "" && resp.Err != nil {
			msg = resp.Err.Error()
		}
		return mcp.NewToolResultError(msg)
	}
	if text, ok := resp.Data.(string); ok {
		return mcp.NewToolResultText(text)
	}
	payload, err := json.Marshal(resp.Data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(payload))
}

// ServeStdio serves MCP over in and out until ctx is cancelled or in is
// closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	logging.Info("MCPServer", "Serving %d tools over stdio", len(s.Exposed()))
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server failed: %w", err)
	}
	return nil
}

// ServeHTTP serves the streamable HTTP transport on addr until ctx is
// cancelled.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	logging.Info("MCPServer", "Serving %d tools over streamable HTTP on %s", len(s.Exposed()), addr)
	if !isLoopback(addr) {
		logging.Warn("MCPServer", "Streamable HTTP transport on %s is reachable from other hosts and has no authentication", addr)
	}
	httpServer := server.NewStreamableHTTPServer(s.mcp)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("streamable HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	}
}

// isLoopback reports whether addr binds only a loopback interface. An empty
// host listens on every interface.
func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
