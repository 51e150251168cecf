package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"toolbelt/internal/api"
	"toolbelt/internal/client"
	"toolbelt/internal/config"
	"toolbelt/internal/dependency"
	"toolbelt/internal/integration"
	"toolbelt/internal/metrics"
	"toolbelt/internal/registry"
	"toolbelt/pkg/logging"
)

// Services holds every component built from the configuration.
//
// Initialization order:
//  1. Metrics, so that the registry and dependency manager can report to it
//  2. Registry, importing registry.file when configured
//  3. Client, with the built-in tools registered on top of the imported ones
//  4. Dependency manager, probing required dependencies
//  5. One integration façade per configured agent
type Services struct {
	Config config.ToolbeltConfig

	// MetricsRegistry is the Prometheus registry every collector is
	// registered on.
	MetricsRegistry *prometheus.Registry
	Metrics         *metrics.Metrics

	Registry     *registry.Registry
	Client       *client.Client
	Dependencies *dependency.Manager
	Facades      map[string]*integration.Facade

	// Watcher is nil unless registry.watch is set.
	Watcher *registry.Watcher

	mu          sync.Mutex
	reloadHooks []func()
}

// InitializeServices creates all components described by cfg. A required
// dependency that cannot be resolved aborts initialization with an
// *api.RequiredDependencyMissingError.
func InitializeServices(ctx context.Context, cfg config.ToolbeltConfig, version string) (*Services, error) {
	s := &Services{
		Config:          cfg,
		MetricsRegistry: prometheus.NewRegistry(),
		Facades:         make(map[string]*integration.Facade),
	}
	s.Metrics = metrics.New(s.MetricsRegistry)
	s.Registry = registry.New(registry.WithObserver(s.Metrics))

	if err := s.loadRegistryFile(); err != nil {
		return nil, err
	}

	clientVersion := cfg.Client.Version
	if clientVersion == "" {
		clientVersion = version
	}
	s.Client = client.NewClient(s.Registry, client.Config{
		Name:         cfg.Client.Name,
		Version:      clientVersion,
		CallTimeout:  cfg.Client.CallTimeout,
		HistoryLimit: cfg.Client.HistoryLimit,
		Workspace:    cfg.Workspace,
	}, client.WithMetrics(s.Metrics))
	builtins := s.Client.RegisterBuiltinTools()
	logging.Debug("Services", "Registered %d built-in tools", builtins)

	descriptors, err := Descriptors(cfg.Dependencies)
	if err != nil {
		return nil, err
	}
	deps, err := dependency.NewManager(ctx, descriptors, dependency.WithObserver(s.Metrics))
	if err != nil {
		return nil, err
	}
	s.Dependencies = deps

	for _, agentCfg := range cfg.Agents {
		facadeCfg, err := FacadeConfig(agentCfg)
		if err != nil {
			return nil, err
		}
		s.Facades[agentCfg.Name] = integration.New(s.Client, s.Registry, facadeCfg, integration.WithDependencies(deps))
	}

	if cfg.Registry.Watch {
		s.Watcher = registry.NewWatcher(s.Registry, cfg.Registry.File, registry.Format(cfg.Registry.Format), 0)
		s.Watcher.OnReload(s.afterReload)
	}

	logging.Info("Services", "Initialized %d tools, %d dependencies and %d agents",
		s.Registry.Count(), len(descriptors), len(s.Facades))
	return s, nil
}

// loadRegistryFile imports registry.file. A missing file is not an error so
// that a watched file can be created later.
func (s *Services) loadRegistryFile() error {
	path := s.Config.Registry.File
	if path == "" {
		return nil
	}
	if err := s.Registry.LoadFile(path, registry.Format(s.Config.Registry.Format)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Services", "Registry file %s does not exist yet", path)
			return nil
		}
		return fmt.Errorf("failed to load registry file: %w", err)
	}
	logging.Info("Services", "Loaded %d tools from %s", s.Registry.Count(), path)
	return nil
}

// afterReload restores the built-in tools dropped by the destructive import
// and runs the registered hooks.
func (s *Services) afterReload(err error) {
	if err != nil {
		return
	}
	s.Client.RegisterBuiltinTools()

	s.mu.Lock()
	hooks := append([]func(){}, s.reloadHooks...)
	s.mu.Unlock()
	for _, hook := range hooks {
		hook()
	}
}

// OnReload registers fn to run after the watched registry file has been
// reloaded successfully.
func (s *Services) OnReload(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadHooks = append(s.reloadHooks, fn)
}

// Start connects the client, initializes the façades and starts the
// registry watcher.
func (s *Services) Start(ctx context.Context) error {
	if err := s.Client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect client: %w", err)
	}
	for _, name := range s.AgentNames() {
		if err := s.Facades[name].Initialize(ctx); err != nil {
			return err
		}
	}
	if s.Watcher != nil {
		if err := s.Watcher.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops the watcher and disconnects the client.
func (s *Services) Stop() {
	if s.Watcher != nil {
		s.Watcher.Stop()
	}
	s.Client.Disconnect()
}

// Facade returns the façade of the named agent.
func (s *Services) Facade(name string) (*integration.Facade, bool) {
	f, ok := s.Facades[name]
	return f, ok
}

// AgentNames returns the configured agent names, sorted.
func (s *Services) AgentNames() []string {
	names := make([]string, 0, len(s.Facades))
	for name := range s.Facades {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors converts dependency configuration into manager descriptors.
func Descriptors(deps []config.DependencyConfig) ([]dependency.Descriptor, error) {
	descriptors := make([]dependency.Descriptor, 0, len(deps))
	for _, dep := range deps {
		target := dep.Target
		if target == "" {
			target = dep.Name
		}
		probe, err := dependency.ProbeFromConfig(dep.Kind, target)
		if err != nil {
			return nil, api.FormatValidationError("dependency", dep.Name, api.ValidationError{
				Field:   "kind",
				Value:   dep.Kind,
				Message: err.Error(),
			})
		}
		descriptors = append(descriptors, dependency.Descriptor{
			Name:      dep.Name,
			Purpose:   dep.Purpose,
			Required:  dep.Required,
			Version:   dep.Version,
			DependsOn: dep.DependsOn,
			Probe:     probe,
		})
	}
	return descriptors, nil
}

// FacadeConfig converts agent configuration into a façade configuration.
func FacadeConfig(agent config.AgentConfig) (integration.Config, error) {
	policy, err := integration.ParseErrorPolicy(agent.ErrorHandling)
	if err != nil {
		return integration.Config{}, api.FormatValidationError("agent", agent.Name, err)
	}

	categories := make([]api.Category, 0, len(agent.Categories))
	for _, name := range agent.Categories {
		category, err := api.ParseCategory(name)
		if err != nil {
			return integration.Config{}, api.FormatValidationError("agent", agent.Name, err)
		}
		categories = append(categories, category)
	}

	var rules []integration.Rule
	if len(agent.Rules) > 0 {
		rules = make([]integration.Rule, 0, len(agent.Rules))
		for _, r := range agent.Rules {
			name := r.Name
			if name == "" {
				name = r.Tool
			}
			rules = append(rules, integration.Rule{
				Name:      name,
				Keywords:  r.Keywords,
				Tool:      r.Tool,
				Arguments: r.Arguments,
			})
		}
	}

	return integration.Config{
		Agent:          agent.Name,
		Enabled:        agent.IsEnabled(),
		AutoInitialize: agent.IsAutoInitialize(),
		Categories:     categories,
		CustomTools:    agent.CustomTools,
		ErrorPolicy:    policy,
		MaxSamples:     agent.MaxSamples,
		Rules:          rules,
	}, nil
}
