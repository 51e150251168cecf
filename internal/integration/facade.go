package integration

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"toolbelt/internal/api"
	"toolbelt/internal/client"
	"toolbelt/internal/clock"
	"toolbelt/internal/dependency"
	"toolbelt/internal/registry"
	"toolbelt/internal/template"
	"toolbelt/pkg/logging"
)

// DefaultMaxSamples is how many latency samples are kept per tool.
const DefaultMaxSamples = 100

// Config configures one agent's façade.
type Config struct {
	Agent          string
	Enabled        bool
	AutoInitialize bool
	// Categories lists the categories the agent may use; empty allows all.
	Categories []api.Category
	// CustomTools allows individual tools regardless of their category.
	CustomTools []string
	ErrorPolicy ErrorPolicy
	MaxSamples  int
	// Rules drive EnhancedOperation; nil selects DefaultRules.
	Rules []Rule
}

// Option configures optional collaborators of a Facade.
type Option func(*Facade)

// WithDependencies makes tool availability depend on the tool's declared
// metadata dependencies.
func WithDependencies(m *dependency.Manager) Option {
	return func(f *Facade) { f.deps = m }
}

// WithClock sets the time source for samples and communication records.
func WithClock(c clock.Clock) Option {
	return func(f *Facade) { f.clock = clock.OrReal(c) }
}

// Facade is the integration surface of one agent.
type Facade struct {
	cfg      Config
	client   *client.Client
	registry *registry.Registry
	deps     *dependency.Manager
	engine   *template.Engine
	clock    clock.Clock

	allowedCategories map[api.Category]bool
	allowedTools      map[string]bool

	mu         sync.RWMutex
	disabled   map[string]string
	samples    map[string][]Sample
	comms      map[commKey][]Communication
	commCounts map[commKey]int
	commTotal  int
}

// New creates a façade for cfg.Agent.
func New(c *client.Client, reg *registry.Registry, cfg Config, opts ...Option) *Facade {
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = DefaultMaxSamples
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultRules()
	}

	f := &Facade{
		cfg:               cfg,
		client:            c,
		registry:          reg,
		engine:            template.New(),
		clock:             clock.Real{},
		allowedCategories: make(map[api.Category]bool, len(cfg.Categories)),
		allowedTools:      make(map[string]bool, len(cfg.CustomTools)),
		disabled:          make(map[string]string),
		samples:           make(map[string][]Sample),
		comms:             make(map[commKey][]Communication),
		commCounts:        make(map[commKey]int),
	}
	for _, category := range cfg.Categories {
		f.allowedCategories[category] = true
	}
	for _, name := range cfg.CustomTools {
		f.allowedTools[name] = true
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Agent returns the agent name.
func (f *Facade) Agent() string {
	return f.cfg.Agent
}

// Policy returns the configured error policy.
func (f *Facade) Policy() ErrorPolicy {
	return f.cfg.ErrorPolicy
}

// Enabled reports whether the façade is switched on.
func (f *Facade) Enabled() bool {
	return f.cfg.Enabled
}

// Initialize connects the client when AutoInitialize is set.
func (f *Facade) Initialize(ctx context.Context) error {
	if !f.cfg.Enabled {
		logging.Info("Integration", "Integration for agent %s is disabled", f.cfg.Agent)
		return nil
	}
	if f.cfg.AutoInitialize && !f.client.IsConnected() {
		if err := f.client.Connect(ctx); err != nil {
			return fmt.Errorf("failed to initialize integration for agent %s: %w", f.cfg.Agent, err)
		}
	}
	logging.Info("Integration", "Integration for agent %s initialized with %d tools", f.cfg.Agent, len(f.AvailableTools(ctx)))
	return nil
}

// allowed reports whether tool is within the agent's categories or allowlist.
func (f *Facade) allowed(tool api.Tool) bool {
	if f.allowedTools[tool.Name] {
		return true
	}
	if len(f.allowedCategories) == 0 {
		return true
	}
	return f.allowedCategories[tool.Category]
}

// dependenciesAvailable checks the optional dependencies a tool declares.
func (f *Facade) dependenciesAvailable(ctx context.Context, name string) (string, bool) {
	if f.deps == nil {
		return "", true
	}
	md, ok := f.registry.GetMetadata(name)
	if !ok {
		return "", true
	}
	for _, dep := range md.Dependencies {
		if !f.deps.IsAvailable(ctx, dep) {
			return dep, false
		}
	}
	return "", true
}

// AvailableTools returns the tools this agent can call right now.
func (f *Facade) AvailableTools(ctx context.Context) []api.Tool {
	if !f.cfg.Enabled {
		return []api.Tool{}
	}

	tools := []api.Tool{}
	for _, tool := range f.registry.ListTools() {
		if !f.allowed(tool) || f.isDisabled(tool.Name) {
			continue
		}
		if _, ok := f.dependenciesAvailable(ctx, tool.Name); !ok {
			continue
		}
		tools = append(tools, tool)
	}
	return tools
}

// IsToolAvailable reports whether name is among AvailableTools.
func (f *Facade) IsToolAvailable(ctx context.Context, name string) bool {
	tool, ok := f.registry.GetTool(name)
	if !ok || !f.cfg.Enabled || !f.allowed(tool) || f.isDisabled(name) {
		return false
	}
	_, ok = f.dependenciesAvailable(ctx, name)
	return ok
}

// CallTool invokes name on behalf of the agent. Failures are handled by the
// error policy: only PolicyStrict returns them.
func (f *Facade) CallTool(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	if !f.cfg.Enabled {
		return f.handleFailure(name, ErrDisabled, false)
	}

	tool, ok := f.registry.GetTool(name)
	if !ok {
		return f.handleFailure(name, api.NewToolNotFoundError(name), false)
	}
	if !f.allowed(tool) {
		return f.handleFailure(name, fmt.Errorf("%s: %w", name, ErrToolNotAllowed), false)
	}
	if reason, disabled := f.disabledReason(name); disabled {
		return f.handleFailure(name, fmt.Errorf("%w: %s", ErrCapabilityDisabled, reason), false)
	}
	if dep, ok := f.dependenciesAvailable(ctx, name); !ok {
		return f.handleFailure(name, &api.DependencyUnavailableError{Name: dep, Reason: "required by " + name}, true)
	}

	callCtx := f.client.CreateContext(api.WithAgent(f.cfg.Agent))
	start := f.clock.Now()
	resp := f.client.CallTool(ctx, name, params, callCtx)
	f.recordSample(name, f.clock.Now().Sub(start))

	if !resp.Success {
		return f.handleFailure(name, resp.Err, true)
	}
	return resp.Data, nil
}

// handleFailure applies the error policy. disable controls whether graceful
// handling turns the capability off.
func (f *Facade) handleFailure(name string, err error, disable bool) (interface{}, error) {
	switch f.cfg.ErrorPolicy {
	case PolicyStrict:
		return nil, &ToolCallError{Agent: f.cfg.Agent, Tool: name, Err: err}
	case PolicySilent:
		logging.Debug("Integration", "Agent %s ignored failure of %s: %v", f.cfg.Agent, name, err)
		return nil, nil
	case PolicyGraceful:
		logging.Warn("Integration", "Agent %s continuing without %s: %v", f.cfg.Agent, name, err)
		if disable {
			f.disable(name, err.Error())
		}
		return nil, nil
	default:
		return nil, &ToolCallError{Agent: f.cfg.Agent, Tool: name, Err: err}
	}
}

func (f *Facade) disable(name, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled[name] = reason
}

func (f *Facade) isDisabled(name string) bool {
	_, disabled := f.disabledReason(name)
	return disabled
}

func (f *Facade) disabledReason(name string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	reason, ok := f.disabled[name]
	return reason, ok
}

// EnableCapability re-enables a capability disabled by graceful degradation.
// It reports whether the capability was disabled.
func (f *Facade) EnableCapability(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.disabled[name]; !ok {
		return false
	}
	delete(f.disabled, name)
	logging.Info("Integration", "Agent %s re-enabled %s", f.cfg.Agent, name)
	return true
}

// DisabledCapabilities returns the disabled capabilities and the failure
// that disabled each of them.
func (f *Facade) DisabledCapabilities() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string]string, len(f.disabled))
	for name, reason := range f.disabled {
		out[name] = reason
	}
	return out
}

// Status summarises the façade.
type Status struct {
	Agent          string            `json:"agent"`
	Enabled        bool              `json:"enabled"`
	Connected      bool              `json:"connected"`
	ErrorPolicy    string            `json:"error_policy"`
	AvailableTools []string          `json:"available_tools"`
	Disabled       map[string]string `json:"disabled"`
	Communications int               `json:"communications"`
}

// Status reports the current state of the façade.
func (f *Facade) Status(ctx context.Context) Status {
	tools := f.AvailableTools(ctx)
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)

	return Status{
		Agent:          f.cfg.Agent,
		Enabled:        f.cfg.Enabled,
		Connected:      f.client.IsConnected(),
		ErrorPolicy:    f.cfg.ErrorPolicy.String(),
		AvailableTools: names,
		Disabled:       f.DisabledCapabilities(),
		Communications: f.CommunicationTotal(),
	}
}

func lowerStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
