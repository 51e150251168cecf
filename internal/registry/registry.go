package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"toolbelt/internal/api"
	"toolbelt/internal/clock"
	"toolbelt/internal/schema"
	"toolbelt/pkg/logging"
)

// Observer is notified when the number of registered tools changes.
type Observer interface {
	RegistrySize(n int)
}

type entry struct {
	tool     api.Tool
	metadata api.ToolMetadata
}

// Registry is a thread-safe catalog of tools.
type Registry struct {
	mu sync.RWMutex

	entries    map[string]*entry
	byCategory map[api.Category]map[string]struct{}
	byTag      map[string]map[string]struct{}

	clock    clock.Clock
	observer Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source used for metadata timestamps.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) { r.clock = clock.OrReal(c) }
}

// WithObserver registers an observer for registry size changes.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries:    make(map[string]*entry),
		byCategory: make(map[api.Category]map[string]struct{}),
		byTag:      make(map[string]map[string]struct{}),
		clock:      clock.Real{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// prepare normalises and validates a tool before it is stored.
func prepare(tool api.Tool) (api.Tool, error) {
	category, err := api.ParseCategory(string(tool.Category))
	if err != nil {
		return tool, api.FormatValidationError("tool", tool.Name, err)
	}
	tool.Category = category
	if strings.TrimSpace(tool.Version) == "" {
		tool.Version = api.DefaultToolVersion
	}
	if err := schema.ValidateTool(tool); err != nil {
		return tool, err
	}
	return tool, nil
}

// RegisterTool validates and stores tool. A non-nil executor is bound as the
// tool's handler. When metadata is nil, metadata is synthesized for a new tool
// or carried over from the entry being replaced.
func (r *Registry) RegisterTool(tool api.Tool, executor api.Handler, metadata *api.ToolMetadata) error {
	tool, err := prepare(tool)
	if err != nil {
		return err
	}
	if executor != nil {
		tool.Handler = executor
	}

	now := r.clock.Now()

	r.mu.Lock()
	prev, replaced := r.entries[tool.Name]

	var md api.ToolMetadata
	switch {
	case metadata != nil:
		md = metadata.Clone()
		if md.CreatedAt.IsZero() {
			md.CreatedAt = now
		}
	case replaced:
		md = prev.metadata.Clone()
	default:
		md = api.ToolMetadata{CreatedAt: now}
	}
	md.Tags = api.NormalizeTags(md.Tags)
	if md.Dependencies == nil {
		md.Dependencies = []string{}
	}
	md.UpdatedAt = now

	if replaced {
		r.unindex(prev)
	}
	e := &entry{tool: tool, metadata: md}
	r.entries[tool.Name] = e
	r.index(e)
	count := len(r.entries)
	r.mu.Unlock()

	if replaced {
		logging.Debug("Registry", "Replaced tool %s (category %s, version %s)", tool.Name, tool.Category, tool.Version)
	} else {
		logging.Debug("Registry", "Registered tool %s (category %s, version %s)", tool.Name, tool.Category, tool.Version)
	}
	r.notify(count)
	return nil
}

// UnregisterTool removes a tool and its metadata. It reports whether the tool
// was present.
func (r *Registry) UnregisterTool(name string) bool {
	r.mu.Lock()
	e, ok := r.entries[name]
	if ok {
		r.unindex(e)
		delete(r.entries, name)
	}
	count := len(r.entries)
	r.mu.Unlock()

	if ok {
		logging.Debug("Registry", "Unregistered tool %s", name)
		r.notify(count)
	}
	return ok
}

// GetTool returns the tool registered under name.
func (r *Registry) GetTool(name string) (api.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return api.Tool{}, false
	}
	return e.tool, true
}

// GetMetadata returns a copy of the metadata of the tool registered under name.
func (r *Registry) GetMetadata(name string) (api.ToolMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return api.ToolMetadata{}, false
	}
	return e.metadata.Clone(), true
}

// ListTools returns every tool sorted by name.
func (r *Registry) ListTools() []api.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]api.Tool, 0, len(r.entries))
	for _, e := range r.entries {
		tools = append(tools, e.tool)
	}
	sortTools(tools)
	return tools
}

// ToolsByCategory returns the tools of one category sorted by name.
func (r *Registry) ToolsByCategory(category api.Category) []api.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(r.byCategory[category])
}

// ToolsByTag returns the tools carrying tag sorted by name. Tags are matched
// case-insensitively.
func (r *Registry) ToolsByTag(tag string) []api.Tool {
	tag = strings.ToLower(strings.TrimSpace(tag))

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(r.byTag[tag])
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// SearchTools returns tools whose name, description or tags contain query,
// ignoring case. An empty query matches every tool.
func (r *Registry) SearchTools(query string) []api.Tool {
	query = strings.ToLower(strings.TrimSpace(query))

	r.mu.RLock()
	defer r.mu.RUnlock()

	var tools []api.Tool
	for _, e := range r.entries {
		if query == "" || matchesQuery(e, query) {
			tools = append(tools, e.tool)
		}
	}
	sortTools(tools)
	return tools
}

func matchesQuery(e *entry, query string) bool {
	if strings.Contains(strings.ToLower(e.tool.Name), query) ||
		strings.Contains(strings.ToLower(e.tool.Description), query) {
		return true
	}
	for _, tag := range e.metadata.Tags {
		if strings.Contains(tag, query) {
			return true
		}
	}
	return false
}

// MatchTools returns tools whose names match the glob pattern, for example
// "*_file" or "{read,write}_*".
func (r *Registry) MatchTools(pattern string) ([]api.Tool, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, api.ValidationError{Field: "pattern", Value: pattern, Message: "is not a valid glob pattern"}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var tools []api.Tool
	for name, e := range r.entries {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return nil, fmt.Errorf("matching %q: %w", pattern, err)
		}
		if ok {
			tools = append(tools, e.tool)
		}
	}
	sortTools(tools)
	return tools, nil
}

// Categories returns the category index: category name to sorted tool names.
func (r *Registry) Categories() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.byCategory))
	for category, names := range r.byCategory {
		out[string(category)] = sortedNames(names)
	}
	return out
}

// Tags returns the tag index: tag to sorted tool names.
func (r *Registry) Tags() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.byTag))
	for tag, names := range r.byTag {
		out[tag] = sortedNames(names)
	}
	return out
}

// RecordToolUsage records the outcome of one invocation. It reports false when
// the tool is not registered.
func (r *Registry) RecordToolUsage(name string, success bool) bool {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return false
	}

	md := &e.metadata
	md.UsageCount++
	if success {
		md.SuccessCount++
	}
	md.SuccessRate = float64(md.SuccessCount) / float64(md.UsageCount)
	md.LastUsed = &now
	return true
}

// PopularTools returns up to limit tools ordered by usage count, most used
// first. Ties are broken by name.
func (r *Registry) PopularTools(limit int) []api.PopularTool {
	if limit <= 0 {
		return []api.PopularTool{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.popular(limit)
}

func (r *Registry) popular(limit int) []api.PopularTool {
	ranked := make([]api.PopularTool, 0, len(r.entries))
	for name, e := range r.entries {
		ranked = append(ranked, api.PopularTool{
			Name:        name,
			UsageCount:  e.metadata.UsageCount,
			SuccessRate: e.metadata.SuccessRate,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].UsageCount != ranked[j].UsageCount {
			return ranked[i].UsageCount > ranked[j].UsageCount
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Statistics summarises the registry.
type Statistics struct {
	TotalTools         int               `json:"total_tools"`
	TotalUsage         int               `json:"total_usage"`
	AverageSuccessRate float64           `json:"average_success_rate"`
	Categories         map[string]int    `json:"categories"`
	TagCount           int               `json:"tag_count"`
	PopularTools       []api.PopularTool `json:"popular_tools"`
}

// Statistics computes registry statistics with the topN most used tools. The
// average success rate only considers tools that have been used.
func (r *Registry) Statistics(topN int) Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Statistics{
		TotalTools:   len(r.entries),
		Categories:   make(map[string]int, len(r.byCategory)),
		TagCount:     len(r.byTag),
		PopularTools: []api.PopularTool{},
	}

	var used int
	var rateSum float64
	for _, e := range r.entries {
		stats.TotalUsage += e.metadata.UsageCount
		if e.metadata.UsageCount > 0 {
			used++
			rateSum += e.metadata.SuccessRate
		}
	}
	if used > 0 {
		stats.AverageSuccessRate = rateSum / float64(used)
	}
	for category, names := range r.byCategory {
		stats.Categories[string(category)] = len(names)
	}
	if topN > 0 {
		stats.PopularTools = r.popular(topN)
	}
	return stats
}

// index adds e to the category and tag indexes. Callers hold r.mu.
func (r *Registry) index(e *entry) {
	name := e.tool.Name
	if r.byCategory[e.tool.Category] == nil {
		r.byCategory[e.tool.Category] = make(map[string]struct{})
	}
	r.byCategory[e.tool.Category][name] = struct{}{}

	for _, tag := range e.metadata.Tags {
		if r.byTag[tag] == nil {
			r.byTag[tag] = make(map[string]struct{})
		}
		r.byTag[tag][name] = struct{}{}
	}
}

// unindex removes e from the indexes, dropping empty buckets. Callers hold r.mu.
func (r *Registry) unindex(e *entry) {
	name := e.tool.Name
	if names, ok := r.byCategory[e.tool.Category]; ok {
		delete(names, name)
		if len(names) == 0 {
			delete(r.byCategory, e.tool.Category)
		}
	}
	for _, tag := range e.metadata.Tags {
		if names, ok := r.byTag[tag]; ok {
			delete(names, name)
			if len(names) == 0 {
				delete(r.byTag, tag)
			}
		}
	}
}

func (r *Registry) collect(names map[string]struct{}) []api.Tool {
	tools := make([]api.Tool, 0, len(names))
	for name := range names {
		if e, ok := r.entries[name]; ok {
			tools = append(tools, e.tool)
		}
	}
	sortTools(tools)
	return tools
}

func (r *Registry) notify(count int) {
	if r.observer != nil {
		r.observer.RegistrySize(count)
	}
}

func sortTools(tools []api.Tool) {
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
