package dependency

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"toolbelt/internal/api"
	"toolbelt/internal/clock"
	"toolbelt/pkg/logging"
)

// State is the resolution state of a dependency.
type State string

const (
	StateUnresolved State = "unresolved"
	StateLoaded     State = "loaded"
	StateFailed     State = "failed"
)

// Descriptor declares a dependency.
type Descriptor struct {
	Name     string
	Purpose  string
	Required bool
	// Version is an optional semver constraint such as ">= 1.2".
	Version   string
	DependsOn []string
	Probe     Probe
}

// Status is the observable state of one dependency.
type Status struct {
	Name         string        `json:"name"`
	Purpose      string        `json:"purpose"`
	Required     bool          `json:"required"`
	State        State         `json:"state"`
	Loaded       bool          `json:"loaded"`
	LoadTime     time.Duration `json:"load_time"`
	LoadedAt     *time.Time    `json:"loaded_at,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// HealthReport summarises every declared dependency.
type HealthReport struct {
	Total           int      `json:"total"`
	Loaded          int      `json:"loaded"`
	Required        int      `json:"required"`
	Optional        int      `json:"optional"`
	MissingRequired []string `json:"missing_required"`
	MissingOptional []string `json:"missing_optional"`
	// SuccessRate is loaded/total as a percentage; 0 when nothing is declared.
	SuccessRate  float64  `json:"success_rate"`
	Dependencies []Status `json:"dependencies"`
}

// Observer is notified whenever a dependency is resolved.
type Observer interface {
	DependencyState(name string, required, loaded bool)
}

type dependency struct {
	desc       Descriptor
	constraint *semver.Constraints
	status     Status
	handle     interface{}
}

// Manager tracks whether declared dependencies are usable.
//
// Required dependencies are resolved when the Manager is built and must all
// load. Optional dependencies are resolved on first use; a failed optional
// dependency is probed again on the next access, so it recovers once the
// underlying tool or service becomes available.
type Manager struct {
	mu    sync.RWMutex
	deps  map[string]*dependency
	order []string
	graph *Graph

	group    singleflight.Group
	clock    clock.Clock
	observer Observer
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source used for load timestamps.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = clock.OrReal(c) }
}

// WithObserver registers an observer for dependency state changes.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// NewManager validates descriptors and resolves every required dependency in
// dependency order. Any required failure is returned as a
// *api.RequiredDependencyMissingError.
func NewManager(ctx context.Context, descriptors []Descriptor, opts ...Option) (*Manager, error) {
	m := &Manager{
		deps:  make(map[string]*dependency, len(descriptors)),
		graph: NewGraph(),
		clock: clock.Real{},
	}
	for _, opt := range opts {
		opt(m)
	}

	var errs api.ValidationErrors
	for _, desc := range descriptors {
		if err := api.ValidateEntityName(desc.Name, "dependency"); err != nil {
			errs.Add("dependencies.name", err.Error(), desc.Name)
			continue
		}
		if _, dup := m.deps[desc.Name]; dup {
			errs.Add("dependencies."+desc.Name, "is declared more than once")
			continue
		}
		if desc.Probe == nil {
			errs.Add("dependencies."+desc.Name+".probe", "is required")
			continue
		}

		dep := &dependency{
			desc: desc,
			status: Status{
				Name:     desc.Name,
				Purpose:  desc.Purpose,
				Required: desc.Required,
				State:    StateUnresolved,
			},
		}
		if desc.Version != "" {
			constraint, err := semver.NewConstraint(desc.Version)
			if err != nil {
				errs.Add("dependencies."+desc.Name+".version", fmt.Sprintf("invalid constraint: %v", err), desc.Version)
				continue
			}
			dep.constraint = constraint
		}
		m.deps[desc.Name] = dep

		node := Node{ID: NodeID(desc.Name), Purpose: desc.Purpose, Required: desc.Required}
		for _, d := range desc.DependsOn {
			node.DependsOn = append(node.DependsOn, NodeID(d))
		}
		m.graph.AddNode(node)
	}
	if errs.HasErrors() {
		return nil, api.FormatValidationError("dependencies", "", errs)
	}

	order, err := m.graph.TopologicalOrder()
	if err != nil {
		return nil, api.FormatValidationError("dependencies", "", api.ValidationError{Field: "depends_on", Message: err.Error()})
	}
	for _, id := range order {
		m.order = append(m.order, string(id))
	}

	failures := make(map[string]string)
	for _, name := range m.order {
		if !m.deps[name].desc.Required {
			continue
		}
		if _, err := m.resolve(ctx, name); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		missing := &api.RequiredDependencyMissingError{Failures: failures}
		logging.Error("Dependencies", missing, "Required dependencies could not be loaded")
		return nil, missing
	}

	logging.Info("Dependencies", "Dependency manager ready with %d dependencies (%d required)", len(m.deps), m.countRequired())
	return m, nil
}

// resolve returns the handle of name, probing it if it is not loaded yet.
// Concurrent resolutions of the same dependency share one probe.
func (m *Manager) resolve(ctx context.Context, name string) (interface{}, error) {
	m.mu.RLock()
	dep, ok := m.deps[name]
	if ok && dep.status.Loaded {
		handle := dep.handle
		m.mu.RUnlock()
		return handle, nil
	}
	m.mu.RUnlock()
	if !ok {
		return nil, api.NewDependencyNotFoundError(name)
	}

	handle, err, _ := m.group.Do(name, func() (interface{}, error) {
		return m.load(ctx, dep)
	})
	return handle, err
}

func (m *Manager) load(ctx context.Context, dep *dependency) (interface{}, error) {
	name := dep.desc.Name

	m.mu.RLock()
	if dep.status.Loaded {
		handle := dep.handle
		m.mu.RUnlock()
		return handle, nil
	}
	m.mu.RUnlock()

	for _, upstream := range dep.desc.DependsOn {
		if _, err := m.resolve(ctx, upstream); err != nil {
			return nil, m.record(dep, nil, 0, fmt.Errorf("depends on %s: %w", upstream, err))
		}
	}

	start := m.clock.Now()
	handle, err := check(ctx, dep.desc.Probe)
	elapsed := m.clock.Now().Sub(start)

	if err == nil {
		err = checkVersion(dep, handle)
	}
	if err == nil && handle == nil {
		handle = name
	}
	return handle, m.record(dep, handle, elapsed, err)
}

// check runs p and reports a panic as an error so that a broken check marks
// the dependency failed instead of unwinding into the caller.
func check(ctx context.Context, p Probe) (handle interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			handle, err = nil, fmt.Errorf("check panicked: %v", r)
		}
	}()
	return p.Probe(ctx)
}

func checkVersion(dep *dependency, handle interface{}) error {
	if dep.constraint == nil {
		return nil
	}
	versioned, ok := handle.(Versioned)
	if !ok {
		logging.Debug("Dependencies", "Dependency %s does not report a version; constraint %s not checked", dep.desc.Name, dep.desc.Version)
		return nil
	}
	v, err := semver.NewVersion(versioned.Version())
	if err != nil {
		return fmt.Errorf("cannot parse version %q: %w", versioned.Version(), err)
	}
	if !dep.constraint.Check(v) {
		return fmt.Errorf("version %s does not satisfy %s", v, dep.desc.Version)
	}
	return nil
}

// record stores the outcome of a probe and returns err unchanged.
func (m *Manager) record(dep *dependency, handle interface{}, elapsed time.Duration, err error) error {
	now := m.clock.Now()

	m.mu.Lock()
	dep.status.LoadTime = elapsed
	if err != nil {
		dep.status.State = StateFailed
		dep.status.Loaded = false
		dep.status.ErrorMessage = err.Error()
		dep.handle = nil
	} else {
		dep.status.State = StateLoaded
		dep.status.Loaded = true
		dep.status.ErrorMessage = ""
		dep.status.LoadedAt = &now
		dep.handle = handle
	}
	m.mu.Unlock()

	if err != nil {
		if dep.desc.Required {
			logging.Error("Dependencies", err, "Required dependency %s failed to load", dep.desc.Name)
		} else {
			logging.Warn("Dependencies", "Optional dependency %s unavailable: %v", dep.desc.Name, err)
		}
	} else {
		logging.Debug("Dependencies", "Loaded dependency %s in %s", dep.desc.Name, elapsed)
	}
	if m.observer != nil {
		m.observer.DependencyState(dep.desc.Name, dep.desc.Required, err == nil)
	}
	return err
}

// GetOptional returns the handle of name, or nil when the dependency is
// unknown or cannot be loaded. It never panics.
func (m *Manager) GetOptional(ctx context.Context, name string) interface{} {
	handle, err := m.Get(ctx, name)
	if err != nil {
		if api.IsNotFound(err) {
			logging.Warn("Dependencies", "Requested undeclared dependency %s", name)
		}
		return nil
	}
	return handle
}

// Get returns the handle of name. Unknown names yield a NotFoundError and
// load failures a *api.DependencyUnavailableError.
func (m *Manager) Get(ctx context.Context, name string) (interface{}, error) {
	handle, err := m.resolve(ctx, name)
	if err == nil {
		return handle, nil
	}
	if api.IsNotFound(err) {
		return nil, err
	}
	return nil, &api.DependencyUnavailableError{Name: name, Reason: err.Error()}
}

// IsAvailable reports whether name can be loaded.
func (m *Manager) IsAvailable(ctx context.Context, name string) bool {
	_, err := m.Get(ctx, name)
	return err == nil
}

// FeatureChecker returns a predicate that reports whether every named
// dependency is available.
func (m *Manager) FeatureChecker(names ...string) func(ctx context.Context) bool {
	required := append([]string(nil), names...)
	return func(ctx context.Context) bool {
		for _, name := range required {
			if !m.IsAvailable(ctx, name) {
				return false
			}
		}
		return true
	}
}

// Warmup resolves every dependency that is not loaded yet, concurrently.
// Failures are recorded in the dependency status and are not returned.
func (m *Manager) Warmup(ctx context.Context) error {
	var pending []string
	m.mu.RLock()
	for _, name := range m.order {
		if !m.deps[name].status.Loaded {
			pending = append(pending, name)
		}
	}
	m.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range pending {
		name := name
		g.Go(func() error {
			m.GetOptional(gctx, name)
			return nil
		})
	}
	return g.Wait()
}

// Statuses returns the status of every dependency sorted by name.
func (m *Manager) Statuses() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusesLocked()
}

func (m *Manager) statusesLocked() []Status {
	statuses := make([]Status, 0, len(m.deps))
	for _, dep := range m.deps {
		s := dep.status
		if s.LoadedAt != nil {
			t := *s.LoadedAt
			s.LoadedAt = &t
		}
		statuses = append(statuses, s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// Status returns the status of one dependency.
func (m *Manager) Status(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dep, ok := m.deps[name]
	if !ok {
		return Status{}, false
	}
	return dep.status, true
}

// Order returns dependency names in resolution order.
func (m *Manager) Order() []string {
	return append([]string(nil), m.order...)
}

// Dependents returns the names of dependencies that directly need name.
func (m *Manager) Dependents(name string) []string {
	ids := m.graph.Dependents(NodeID(name))
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return names
}

// HealthReport summarises the state of every declared dependency.
func (m *Manager) HealthReport() HealthReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := HealthReport{
		Total:           len(m.deps),
		MissingRequired: []string{},
		MissingOptional: []string{},
		Dependencies:    m.statusesLocked(),
	}
	for _, s := range report.Dependencies {
		if s.Required {
			report.Required++
		} else {
			report.Optional++
		}
		if s.Loaded {
			report.Loaded++
			continue
		}
		if s.Required {
			report.MissingRequired = append(report.MissingRequired, s.Name)
		} else if s.State == StateFailed {
			report.MissingOptional = append(report.MissingOptional, s.Name)
		}
	}
	if report.Total > 0 {
		report.SuccessRate = float64(report.Loaded) / float64(report.Total) * 100
	}
	return report
}

func (m *Manager) countRequired() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, dep := range m.deps {
		if dep.desc.Required {
			n++
		}
	}
	return n
}
