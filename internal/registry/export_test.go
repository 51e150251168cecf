package registry

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolbelt/internal/api"
)

func populated(t *testing.T) *Registry {
	t.Helper()
	r := New()
	require.NoError(t, r.RegisterTool(testTool("read_file", api.CategorySystem), nil,
		&api.ToolMetadata{Author: "core", Tags: []string{"filesystem", "io"}}))
	require.NoError(t, r.RegisterTool(testTool("http_request", api.CategoryNetwork), nil,
		&api.ToolMetadata{Author: "net-team", Tags: []string{"web"}}))
	require.NoError(t, r.RegisterTool(testTool("lint", api.CategoryQuality), nil, nil))
	r.RecordToolUsage("read_file", true)
	r.RecordToolUsage("read_file", false)
	return r
}

func toolNames(r *Registry) []string {
	var names []string
	for _, tool := range r.ListTools() {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	return names
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatJSON},
		{in: "JSON", want: FormatJSON},
		{in: "yml", want: FormatYAML},
		{in: "yaml", want: FormatYAML},
		{in: "toml", want: FormatTOML},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, FormatYAML, FormatFromPath("/tmp/tools.yaml"))
	assert.Equal(t, FormatTOML, FormatFromPath("tools.toml"))
	assert.Equal(t, FormatJSON, FormatFromPath("tools"))
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			source := populated(t)

			data, err := source.Marshal(format)
			require.NoError(t, err)

			doc, err := Unmarshal(data, format)
			require.NoError(t, err)

			target := New()
			require.NoError(t, target.Import(doc))

			assert.Equal(t, toolNames(source), toolNames(target))
			for _, name := range toolNames(source) {
				want, _ := source.GetMetadata(name)
				got, _ := target.GetMetadata(name)
				assert.Equal(t, want.Author, got.Author, name)
				assert.Equal(t, want.Tags, got.Tags, name)
				assert.Equal(t, want.UsageCount, got.UsageCount, name)
			}

			tool, ok := target.GetTool("read_file")
			require.True(t, ok)
			assert.Equal(t, api.CategorySystem, tool.Category)
			assert.Equal(t, []string{"value"}, tool.InputSchema.Required)
			assert.Equal(t, "string", tool.InputSchema.PropertyType("value"))
		})
	}
}

func TestExportDocumentShape(t *testing.T) {
	doc := populated(t).Export()

	assert.Len(t, doc.Tools, 3)
	assert.Equal(t, []string{"read_file"}, doc.Categories["system"])
	assert.Equal(t, []string{"read_file"}, doc.Tags["io"])
	assert.False(t, doc.ExportedAt.IsZero())
	assert.Nil(t, doc.Tools["read_file"].Tool.Handler)
}

func TestImportIsDestructive(t *testing.T) {
	doc := populated(t).Export()

	target := New()
	executor := api.HandlerFunc(func(ctx context.Context, params map[string]interface{}, callCtx *api.Context) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, target.RegisterTool(testTool("read_file", api.CategorySystem), executor, nil))
	require.NoError(t, target.RegisterTool(testTool("stale", api.CategoryCustom), nil, nil))

	require.NoError(t, target.Import(doc))

	_, ok := target.GetTool("stale")
	assert.False(t, ok)
	tool, ok := target.GetTool("read_file")
	require.True(t, ok)
	assert.Nil(t, tool.Handler)
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	target := populated(t)
	before := toolNames(target)

	doc := &Document{Tools: map[string]Entry{
		"good": {Tool: testTool("good", api.CategoryCustom)},
		"bad":  {Tool: api.Tool{Name: "bad"}},
	}}
	err := target.Import(doc)
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))
	assert.Equal(t, before, toolNames(target))

	assert.Error(t, target.Import(nil))
}

func TestUnmarshalErrors(t *testing.T) {
	_, err := Unmarshal([]byte("{not json"), FormatJSON)
	assert.Error(t, err)

	_, err = Unmarshal([]byte("{}"), Format("xml"))
	assert.Error(t, err)
}

func TestSaveAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	source := populated(t)

	for _, name := range []string{"tools.json", "tools.yaml", "nested/tools.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, source.SaveFile(path, ""))

			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			for _, e := range entries {
				assert.NotContains(t, e.Name(), ".tools", "temporary file left behind")
			}

			target := New()
			require.NoError(t, target.LoadFile(path, ""))
			assert.Equal(t, toolNames(source), toolNames(target))
		})
	}

	err := New().LoadFile(filepath.Join(dir, "missing.json"), "")
	assert.Error(t, err)
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.json")

	first := New()
	require.NoError(t, first.RegisterTool(testTool("one", api.CategoryCustom), nil, nil))
	require.NoError(t, first.SaveFile(path, FormatJSON))

	target := New()
	require.NoError(t, target.LoadFile(path, FormatJSON))

	reloaded := make(chan error, 10)
	w := NewWatcher(target, path, "", 20*time.Millisecond)
	w.OnReload(func(err error) { reloaded <- err })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	second := New()
	require.NoError(t, second.RegisterTool(testTool("one", api.CategoryCustom), nil, nil))
	require.NoError(t, second.RegisterTool(testTool("two", api.CategoryCustom), nil, nil))
	require.NoError(t, second.SaveFile(path, FormatJSON))

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("registry file change was not picked up")
	}
	assert.Equal(t, []string{"one", "two"}, toolNames(target))
}
