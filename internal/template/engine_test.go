package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplace(t *testing.T) {
	e := New()
	data := map[string]interface{}{
		"file":      "main.go",
		"operation": "review code",
		"count":     3,
	}

	tests := []struct {
		name    string
		value   interface{}
		want    interface{}
		wantErr string
	}{
		{name: "plain string", value: "no templates", want: "no templates"},
		{name: "field", value: "{{ .file }}", want: "main.go"},
		{name: "no spaces", value: "{{.file}}", want: "main.go"},
		{name: "sprig function", value: "{{ .operation | upper }}", want: "REVIEW CODE"},
		{name: "sprig default", value: `{{ index . "missing" | default "x" }}`, want: "x"},
		{name: "number", value: "n={{ .count }}", want: "n=3"},
		{name: "non string passthrough", value: 42, want: 42},
		{
			name:  "nested map and slice",
			value: map[string]interface{}{"paths": []interface{}{"{{ .file }}", "other.go"}, "flag": true},
			want:  map[string]interface{}{"paths": []interface{}{"main.go", "other.go"}, "flag": true},
		},
		{name: "missing key", value: "{{ .absent }}", wantErr: "absent"},
		{name: "parse error", value: "{{ .file ", wantErr: "invalid template"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Replace(tt.value, data)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplaceArguments(t *testing.T) {
	e := New()

	got, err := e.ReplaceArguments(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = e.ReplaceArguments(map[string]interface{}{"target": "{{ .agent }}"}, map[string]interface{}{"agent": "reviewer"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"target": "reviewer"}, got)
}

func TestExtractVariables(t *testing.T) {
	e := New()
	value := map[string]interface{}{
		"a": "{{ .file }} and {{ .operation | lower }}",
		"b": []interface{}{"{{ .file }}", "literal .notAVariable"},
	}
	assert.Equal(t, []string{"file", "operation"}, e.ExtractVariables(value))

	assert.NoError(t, e.ValidateContext(value, map[string]interface{}{"file": 1, "operation": 2}))
	err := e.ValidateContext(value, map[string]interface{}{"file": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation")
}

func TestMergeContexts(t *testing.T) {
	merged := MergeContexts(
		map[string]interface{}{"a": 1, "b": 1},
		map[string]interface{}{"b": 2},
		nil,
	)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 2}, merged)
}
