package template

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Engine renders argument templates. Strings containing "{{" are executed as
// Go templates with the sprig function library against a data map; all other
// values are returned unchanged. Maps and slices are rendered recursively.
type Engine struct {
	mu    sync.Mutex
	cache map[string]*template.Template

	// variablePattern finds top-level field references such as {{ .name }}.
	variablePattern *regexp.Regexp
}

// New creates a new template engine.
func New() *Engine {
	return &Engine{
		cache:           make(map[string]*template.Template),
		variablePattern: regexp.MustCompile(`\.([a-zA-Z_][a-zA-Z0-9_]*)`),
	}
}

// Replace renders every template in value against data. References to
// missing keys are an error.
func (e *Engine) Replace(value interface{}, data map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return e.render(v, data)
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, item := range v {
			rendered, err := e.Replace(item, data)
			if err != nil {
				return nil, fmt.Errorf("error in key '%s': %w", key, err)
			}
			result[key] = rendered
		}
		return result, nil
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			rendered, err := e.Replace(item, data)
			if err != nil {
				return nil, fmt.Errorf("error at index %d: %w", i, err)
			}
			result[i] = rendered
		}
		return result, nil
	default:
		return value, nil
	}
}

// ReplaceArguments renders an argument map.
func (e *Engine) ReplaceArguments(args map[string]interface{}, data map[string]interface{}) (map[string]interface{}, error) {
	if args == nil {
		return map[string]interface{}{}, nil
	}
	rendered, err := e.Replace(args, data)
	if err != nil {
		return nil, err
	}
	return rendered.(map[string]interface{}), nil
}

func (e *Engine) render(text string, data map[string]interface{}) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := e.parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", text, err)
	}
	return buf.String(), nil
}

func (e *Engine) parse(text string) (*template.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.cache[text]; ok {
		return tmpl, nil
	}
	tmpl, err := template.New("argument").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", text, err)
	}
	e.cache[text] = tmpl
	return tmpl, nil
}

// ExtractVariables returns the sorted top-level field names referenced by
// templates anywhere in value.
func (e *Engine) ExtractVariables(value interface{}) []string {
	variables := make(map[string]bool)
	e.extract(value, variables)

	result := make([]string, 0, len(variables))
	for name := range variables {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

func (e *Engine) extract(value interface{}, variables map[string]bool) {
	switch v := value.(type) {
	case string:
		for _, action := range actions(v) {
			for _, match := range e.variablePattern.FindAllStringSubmatch(action, -1) {
				variables[match[1]] = true
			}
		}
	case map[string]interface{}:
		for _, item := range v {
			e.extract(item, variables)
		}
	case []interface{}:
		for _, item := range v {
			e.extract(item, variables)
		}
	}
}

// actions returns the text between each "{{" and "}}" pair.
func actions(s string) []string {
	var out []string
	for {
		start := strings.Index(s, "{{")
		if start < 0 {
			return out
		}
		end := strings.Index(s[start:], "}}")
		if end < 0 {
			return out
		}
		out = append(out, s[start+2:start+end])
		s = s[start+end+2:]
	}
}

// ValidateContext ensures all variables referenced by value are present in
// data.
func (e *Engine) ValidateContext(value interface{}, data map[string]interface{}) error {
	var missing []string
	for _, name := range e.ExtractVariables(value) {
		if _, ok := data[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
