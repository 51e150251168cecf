package integration

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"toolbelt/internal/template"
	"toolbelt/pkg/logging"
)

// Rule maps operations to a tool. A rule matches when any keyword occurs,
// ignoring case, in the operation name or in a string value of the operation
// data. Arguments, when set, are rendered as templates against the operation
// data and replace it as the tool's parameters.
type Rule struct {
	Name      string
	Keywords  []string
	Tool      string
	Arguments map[string]interface{}
}

// DefaultRules returns the built-in operation rules.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "code-analysis", Keywords: []string{"code"}, Tool: "analyze_code"},
		{Name: "quality-check", Keywords: []string{"quality"}, Tool: "check_quality"},
		{Name: "documentation", Keywords: []string{"documentation"}, Tool: "generate_documentation"},
	}
}

// OperationResult folds the outcome of an enhanced operation.
type OperationResult struct {
	Operation string `json:"operation"`
	Agent     string `json:"agent"`
	// Enhanced is true when at least one tool returned data.
	Enhanced    bool                   `json:"enhanced"`
	ToolsCalled []string               `json:"tools_called"`
	Skipped     []string               `json:"skipped"`
	Results     map[string]interface{} `json:"results"`
	Errors      map[string]string      `json:"errors,omitempty"`
}

// MatchRules returns the rules matching operation and data, in rule order.
func (f *Facade) MatchRules(operation string, data map[string]interface{}) []Rule {
	haystack := []string{strings.ToLower(operation)}
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if s, ok := data[key].(string); ok {
			haystack = append(haystack, strings.ToLower(s))
		}
	}

	var matched []Rule
	for _, rule := range f.cfg.Rules {
		if ruleMatches(rule, haystack) {
			matched = append(matched, rule)
		}
	}
	return matched
}

func ruleMatches(rule Rule, haystack []string) bool {
	for _, keyword := range lowerStrings(rule.Keywords) {
		for _, text := range haystack {
			if strings.Contains(text, keyword) {
				return true
			}
		}
	}
	return false
}

// EnhancedOperation runs every tool whose rule matches the operation and is
// available to the agent. Under PolicyStrict the first failure aborts the
// operation and is returned together with the partial result.
func (f *Facade) EnhancedOperation(ctx context.Context, operation string, data map[string]interface{}) (*OperationResult, error) {
	result := &OperationResult{
		Operation:   operation,
		Agent:       f.cfg.Agent,
		ToolsCalled: []string{},
		Skipped:     []string{},
		Results:     make(map[string]interface{}),
		Errors:      make(map[string]string),
	}
	if !f.cfg.Enabled {
		_, err := f.handleFailure(operation, ErrDisabled, false)
		return result, err
	}

	templateData := template.MergeContexts(data, map[string]interface{}{
		"operation": operation,
		"agent":     f.cfg.Agent,
	})

	seen := make(map[string]bool)
	for _, rule := range f.MatchRules(operation, data) {
		if seen[rule.Tool] {
			continue
		}
		seen[rule.Tool] = true

		if !f.IsToolAvailable(ctx, rule.Tool) {
			result.Skipped = append(result.Skipped, rule.Tool)
			continue
		}

		params := copyMap(data)
		if rule.Arguments != nil {
			rendered, err := f.engine.ReplaceArguments(rule.Arguments, templateData)
			if err != nil {
				result.Errors[rule.Tool] = err.Error()
				if _, perr := f.handleFailure(rule.Tool, fmt.Errorf("rule %s: %w", rule.Name, err), false); perr != nil {
					return result, perr
				}
				continue
			}
			params = rendered
		}

		result.ToolsCalled = append(result.ToolsCalled, rule.Tool)
		out, err := f.CallTool(ctx, rule.Tool, params)
		if err != nil {
			result.Errors[rule.Tool] = err.Error()
			return result, err
		}
		if out != nil {
			result.Results[rule.Tool] = out
			result.Enhanced = true
		}
	}

	logging.Debug("Integration", "Agent %s operation %q called %d tools (enhanced=%t)",
		f.cfg.Agent, operation, len(result.ToolsCalled), result.Enhanced)
	return result, nil
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
