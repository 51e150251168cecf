package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolbelt/internal/api"
)

func TestMatchRules(t *testing.T) {
	f := New(nil, nil, Config{Agent: "a", Enabled: true})

	names := func(rules []Rule) []string {
		out := []string{}
		for _, r := range rules {
			out = append(out, r.Tool)
		}
		return out
	}

	assert.Equal(t, []string{"analyze_code"}, names(f.MatchRules("Review CODE", nil)))
	assert.Equal(t, []string{"analyze_code", "check_quality"},
		names(f.MatchRules("review", map[string]interface{}{"focus": "code quality", "n": 3})))
	assert.Equal(t, []string{"generate_documentation"}, names(f.MatchRules("write documentation", nil)))
	assert.Empty(t, f.MatchRules("deploy", map[string]interface{}{"target": "prod"}))
}

func TestEnhancedOperation(t *testing.T) {
	fx := newFixture(t,
		tool("analyze_code", api.CategoryDevelopment, echoHandler()),
		tool("check_quality", api.CategoryQuality, handlerReturning(nil, nil)),
	)
	f := fx.facade(Config{Agent: "reviewer", Enabled: true, AutoInitialize: true})
	require.NoError(t, f.Initialize(context.Background()))

	result, err := f.EnhancedOperation(context.Background(), "code quality review", map[string]interface{}{"file": "main.go"})
	require.NoError(t, err)

	assert.True(t, result.Enhanced)
	assert.Equal(t, []string{"analyze_code", "check_quality"}, result.ToolsCalled)
	assert.Contains(t, result.Results, "analyze_code")
	assert.NotContains(t, result.Results, "check_quality", "nil results are not folded")
	assert.Empty(t, result.Skipped)

	params := result.Results["analyze_code"].(map[string]interface{})["params"]
	assert.Equal(t, map[string]interface{}{"file": "main.go"}, params)
}

func TestEnhancedOperationNotEnhanced(t *testing.T) {
	fx := newFixture(t, tool("check_quality", api.CategoryQuality, handlerReturning(nil, nil)))
	f := fx.facade(Config{Agent: "reviewer", Enabled: true, AutoInitialize: true})
	require.NoError(t, f.Initialize(context.Background()))

	result, err := f.EnhancedOperation(context.Background(), "code quality", nil)
	require.NoError(t, err)
	assert.False(t, result.Enhanced)
	assert.Equal(t, []string{"check_quality"}, result.ToolsCalled)
	assert.Equal(t, []string{"analyze_code"}, result.Skipped, "unregistered tools are skipped")
}

func TestEnhancedOperationSkipsUnavailableTools(t *testing.T) {
	fx := newFixture(t,
		tool("analyze_code", api.CategoryDevelopment, echoHandler()),
		tool("check_quality", api.CategoryQuality, echoHandler()),
	)
	f := fx.facade(Config{Agent: "qa", Enabled: true, AutoInitialize: true, Categories: []api.Category{api.CategoryQuality}})
	require.NoError(t, f.Initialize(context.Background()))

	result, err := f.EnhancedOperation(context.Background(), "code quality", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"check_quality"}, result.ToolsCalled)
	assert.Equal(t, []string{"analyze_code"}, result.Skipped)
}

func TestEnhancedOperationTemplatedArguments(t *testing.T) {
	fx := newFixture(t, tool("publish", api.CategoryDocumentation, echoHandler()))
	f := fx.facade(Config{
		Agent:          "writer",
		Enabled:        true,
		AutoInitialize: true,
		Rules: []Rule{{
			Name:     "publish-docs",
			Keywords: []string{"publish"},
			Tool:     "publish",
			Arguments: map[string]interface{}{
				"title":  "{{ .operation | upper }}",
				"path":   `{{ index . "file" | default "README.md" }}`,
				"author": "{{ .agent }}",
			},
		}},
	})
	require.NoError(t, f.Initialize(context.Background()))

	result, err := f.EnhancedOperation(context.Background(), "publish docs", nil)
	require.NoError(t, err)
	require.True(t, result.Enhanced)

	params := result.Results["publish"].(map[string]interface{})["params"]
	assert.Equal(t, map[string]interface{}{
		"title":  "PUBLISH DOCS",
		"path":   "README.md",
		"author": "writer",
	}, params)
}

func TestEnhancedOperationStrictFailure(t *testing.T) {
	fx := newFixture(t,
		tool("analyze_code", api.CategoryDevelopment, handlerReturning(nil, errors.New("parser crashed"))),
		tool("check_quality", api.CategoryQuality, echoHandler()),
	)
	f := fx.facade(Config{Agent: "reviewer", Enabled: true, AutoInitialize: true, ErrorPolicy: PolicyStrict})
	require.NoError(t, f.Initialize(context.Background()))

	result, err := f.EnhancedOperation(context.Background(), "code quality", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parser crashed")
	assert.Equal(t, []string{"analyze_code"}, result.ToolsCalled)
	assert.False(t, result.Enhanced)
}

func TestEnhancedOperationDisabled(t *testing.T) {
	fx := newFixture(t, tool("analyze_code", api.CategoryDevelopment, echoHandler()))

	f := fx.facade(Config{Agent: "off", Enabled: false})
	result, err := f.EnhancedOperation(context.Background(), "code", nil)
	require.NoError(t, err)
	assert.False(t, result.Enhanced)
	assert.Empty(t, result.ToolsCalled)

	strict := fx.facade(Config{Agent: "off", Enabled: false, ErrorPolicy: PolicyStrict})
	_, err = strict.EnhancedOperation(context.Background(), "code", nil)
	assert.True(t, errors.Is(err, ErrDisabled))
}
