package client

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"toolbelt/internal/api"
	"toolbelt/internal/clock"
	"toolbelt/internal/metrics"
	"toolbelt/internal/registry"
	"toolbelt/internal/schema"
	"toolbelt/pkg/logging"
)

const (
	// DefaultCallTimeout bounds a single handler invocation.
	DefaultCallTimeout = 30 * time.Second

	// DefaultHistoryLimit is how many contexts, requests and responses are
	// retained.
	DefaultHistoryLimit = 1000
)

// SupportedProtocolVersions lists the protocol versions announced by Connect,
// newest first.
var SupportedProtocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

// Config configures a Client.
type Config struct {
	Name         string
	Version      string
	CallTimeout  time.Duration
	HistoryLimit int
	// Workspace roots the default system category handler.
	Workspace string
}

// Option configures optional collaborators of a Client.
type Option func(*Client)

// WithClock sets the time source for contexts, requests and responses.
func WithClock(c clock.Clock) Option {
	return func(cl *Client) { cl.clock = clock.OrReal(c) }
}

// WithMetrics records call metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// Client dispatches tool invocations.
type Client struct {
	cfg       Config
	registry  *registry.Registry
	sessionID string
	clock     clock.Clock
	metrics   *metrics.Metrics

	mu         sync.RWMutex
	connected  bool
	serverInfo api.ServerInfo
	handlers   map[api.Category]api.Handler

	contexts      map[string]*api.Context
	contextOrder  []string
	contextTotal  int
	requests      []api.Request
	responses     []api.Response
	requestTotal  int
	responseTotal int
}

// NewClient creates a disconnected client backed by reg.
func NewClient(reg *registry.Registry, cfg Config, opts ...Option) *Client {
	if cfg.Name == "" {
		cfg.Name = "toolbelt"
	}
	if cfg.Version == "" {
		cfg.Version = api.DefaultToolVersion
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}

	c := &Client{
		cfg:       cfg,
		registry:  reg,
		sessionID: uuid.NewString(),
		clock:     clock.Real{},
		handlers:  defaultHandlers(cfg.Workspace),
		contexts:  make(map[string]*api.Context),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the session id stamped on every context of this client.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Registry returns the registry the client stores tools in.
func (c *Client) Registry() *registry.Registry {
	return c.registry
}

// Connect performs the handshake. Calling Connect on a connected client is a
// no-op.
func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("connect aborted: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	tools := c.registry.ListTools()
	capabilities := make([]string, 0, len(tools))
	for _, tool := range tools {
		capabilities = append(capabilities, tool.Name)
	}

	c.serverInfo = api.ServerInfo{
		Name:             c.cfg.Name,
		Version:          c.cfg.Version,
		Capabilities:     capabilities,
		ProtocolVersions: append([]string(nil), SupportedProtocolVersions...),
		ConnectedAt:      c.clock.Now(),
	}
	c.connected = true

	logging.Info("Client", "Connected session %s with %d capabilities", c.sessionID, len(capabilities))
	return nil
}

// Disconnect ends the session. It always succeeds.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		logging.Info("Client", "Disconnected session %s", c.sessionID)
	}
	c.connected = false
	c.serverInfo = api.ServerInfo{}
}

// IsConnected reports whether Connect has succeeded and Disconnect has not
// been called since.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// ServerInfo returns the handshake result while connected.
func (c *Client) ServerInfo() (api.ServerInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return api.ServerInfo{}, false
	}
	info := c.serverInfo
	info.Capabilities = append([]string(nil), info.Capabilities...)
	info.ProtocolVersions = append([]string(nil), info.ProtocolVersions...)
	return info, true
}

// RegisterTool stores tool in the registry, binding tool.Handler when set. It
// reports false instead of failing when the descriptor is invalid.
func (c *Client) RegisterTool(tool api.Tool) bool {
	if err := c.registry.RegisterTool(tool, tool.Handler, nil); err != nil {
		logging.Warn("Client", "Rejected tool %q: %v", tool.Name, err)
		return false
	}
	return true
}

// GetTool returns a registered tool.
func (c *Client) GetTool(name string) (api.Tool, bool) {
	return c.registry.GetTool(name)
}

// GetTools returns the tools of category, or every tool when category is
// empty.
func (c *Client) GetTools(category api.Category) []api.Tool {
	if category == "" {
		return c.registry.ListTools()
	}
	return c.registry.ToolsByCategory(category)
}

// SetCategoryHandler binds the default handler of a category. A nil handler
// restores the NotImplemented default.
func (c *Client) SetCategoryHandler(category api.Category, handler api.Handler) error {
	if !category.IsValid() {
		_, err := api.ParseCategory(string(category))
		return err
	}
	if handler == nil {
		handler = notImplemented(category)
	}

	c.mu.Lock()
	c.handlers[category] = handler
	c.mu.Unlock()

	logging.Debug("Client", "Bound default handler for category %s", category)
	return nil
}

// CreateContext builds a new execution context for this session.
func (c *Client) CreateContext(opts ...api.ContextOption) *api.Context {
	callCtx := &api.Context{
		ID:        uuid.NewString(),
		SessionID: c.sessionID,
		Timestamp: c.clock.Now(),
		Version:   api.ProtocolVersion,
	}
	for _, opt := range opts {
		opt(callCtx)
	}

	c.mu.Lock()
	c.contextTotal++
	c.contexts[callCtx.ID] = callCtx
	c.contextOrder = append(c.contextOrder, callCtx.ID)
	if over := len(c.contextOrder) - c.cfg.HistoryLimit; over > 0 {
		for _, id := range c.contextOrder[:over] {
			delete(c.contexts, id)
		}
		c.contextOrder = append([]string(nil), c.contextOrder[over:]...)
	}
	c.mu.Unlock()

	logging.Debug("Client", "Created context %s", callCtx.ID)
	return callCtx
}

// CallTool invokes a tool and reports the outcome as a Response. It never
// returns an error and never panics; a nil callCtx gets a fresh context.
func (c *Client) CallTool(ctx context.Context, name string, params map[string]interface{}, callCtx *api.Context) *api.Response {
	if callCtx == nil {
		callCtx = c.CreateContext()
	}
	req := api.Request{
		ID:         uuid.NewString(),
		ToolName:   name,
		Parameters: params,
		Context:    callCtx,
		Timestamp:  c.clock.Now(),
	}
	c.appendRequest(req)

	resp := c.call(ctx, req)
	c.appendResponse(*resp)
	return resp
}

func (c *Client) call(ctx context.Context, req api.Request) *api.Response {
	if !c.IsConnected() {
		return c.fail(req, "", 0, &api.ConnectionError{Operation: "call tool " + req.ToolName})
	}

	tool, ok := c.registry.GetTool(req.ToolName)
	if !ok {
		logging.Warn("Client", "Call to unknown tool %s", req.ToolName)
		return c.fail(req, "", 0, api.NewToolNotFoundError(req.ToolName))
	}

	if err := schema.ValidateParameters(tool.InputSchema, req.Parameters); err != nil {
		c.registry.RecordToolUsage(tool.Name, false)
		c.metrics.ObserveToolCall(tool.Name, string(tool.Category), false, 0)
		return c.fail(req, tool.Category, 0, err)
	}

	handler := tool.Handler
	if handler == nil {
		handler = c.categoryHandler(tool.Category)
	}

	start := c.clock.Now()
	data, err := c.invoke(ctx, tool, handler, req)
	elapsed := c.clock.Now().Sub(start)

	c.registry.RecordToolUsage(tool.Name, err == nil)
	c.metrics.ObserveToolCall(tool.Name, string(tool.Category), err == nil, elapsed)

	if err != nil {
		logging.Warn("Client", "Tool %s failed after %s: %v", tool.Name, elapsed, err)
		return c.fail(req, tool.Category, elapsed, err)
	}

	resp := api.NewSuccessResponse(req.ID, data, c.clock.Now())
	resp.Metadata = responseMetadata(tool.Name, tool.Category, elapsed)
	logging.Debug("Client", "Tool %s succeeded in %s", tool.Name, elapsed)
	return resp
}

type outcome struct {
	data interface{}
	err  error
}

// invoke runs handler under the call timeout. Handler panics and errors are
// converted to ExecutionErrors.
func (c *Client) invoke(ctx context.Context, tool api.Tool, handler api.Handler, req api.Request) (interface{}, error) {
	callCtx, cancel := context.WithTimeout(api.WithToolName(ctx, tool.Name), c.cfg.CallTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("handler panicked: %v", r)}
			}
		}()
		data, err := handler.Invoke(callCtx, req.Parameters, req.Context)
		done <- outcome{data: data, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, &api.ExecutionError{Tool: tool.Name, Err: out.err}
		}
		return out.data, nil
	case <-callCtx.Done():
		return nil, &api.ExecutionError{Tool: tool.Name, Err: callCtx.Err()}
	}
}

func (c *Client) categoryHandler(category api.Category) api.Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if handler, ok := c.handlers[category]; ok {
		return handler
	}
	return notImplemented(category)
}

func (c *Client) fail(req api.Request, category api.Category, elapsed time.Duration, err error) *api.Response {
	resp := api.NewErrorResponse(req.ID, err, c.clock.Now())
	resp.Metadata = responseMetadata(req.ToolName, category, elapsed)
	return resp
}

func responseMetadata(tool string, category api.Category, elapsed time.Duration) map[string]interface{} {
	md := map[string]interface{}{
		"tool":        tool,
		"duration_ms": elapsed.Milliseconds(),
	}
	if category != "" {
		md["category"] = string(category)
	}
	return md
}

func (c *Client) appendRequest(req api.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestTotal++
	c.requests = append(c.requests, req)
	if over := len(c.requests) - c.cfg.HistoryLimit; over > 0 {
		c.requests = append([]api.Request(nil), c.requests[over:]...)
	}
}

func (c *Client) appendResponse(resp api.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.responseTotal++
	c.responses = append(c.responses, resp)
	if over := len(c.responses) - c.cfg.HistoryLimit; over > 0 {
		c.responses = append([]api.Response(nil), c.responses[over:]...)
	}
}

// Context returns a retained context created by CreateContext.
func (c *Client) Context(id string) (*api.Context, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	callCtx, ok := c.contexts[id]
	return callCtx, ok
}

// Contexts returns the retained contexts, oldest first.
func (c *Client) Contexts() []*api.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*api.Context, 0, len(c.contextOrder))
	for _, id := range c.contextOrder {
		out = append(out, c.contexts[id])
	}
	return out
}

// Requests returns a copy of the retained request log, oldest first.
func (c *Client) Requests() []api.Request {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]api.Request(nil), c.requests...)
}

// Responses returns a copy of the retained response log, oldest first.
func (c *Client) Responses() []api.Response {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]api.Response(nil), c.responses...)
}

// Statistics summarises client activity.
type Statistics struct {
	SessionID  string   `json:"session_id"`
	Connected  bool     `json:"connected"`
	Tools      int      `json:"tools"`
	Contexts   int      `json:"contexts"`
	Requests   int      `json:"requests"`
	Responses  int      `json:"responses"`
	Categories []string `json:"categories"`
}

// Statistics returns counters for this client. Request and response counts
// are totals and are not affected by history trimming.
func (c *Client) Statistics() Statistics {
	tools := c.registry.ListTools()
	seen := make(map[string]bool)
	categories := []string{}
	for _, tool := range tools {
		if !seen[string(tool.Category)] {
			seen[string(tool.Category)] = true
			categories = append(categories, string(tool.Category))
		}
	}
	sort.Strings(categories)

	c.mu.RLock()
	defer c.mu.RUnlock()

	return Statistics{
		SessionID:  c.sessionID,
		Connected:  c.connected,
		Tools:      len(tools),
		Contexts:   c.contextTotal,
		Requests:   c.requestTotal,
		Responses:  c.responseTotal,
		Categories: categories,
	}
}
