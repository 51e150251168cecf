package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolbelt/internal/api"
	"toolbelt/internal/registry"
)

func TestResolver(t *testing.T) {
	root := t.TempDir()
	r := Resolver{Root: root}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr string
	}{
		{name: "relative", path: "a/b.txt", want: filepath.Join(root, "a", "b.txt")},
		{name: "dot", path: ".", want: root},
		{name: "inner parent", path: "a/../b.txt", want: filepath.Join(root, "b.txt")},
		{name: "absolute inside", path: filepath.Join(root, "c.txt"), want: filepath.Join(root, "c.txt")},
		{name: "escape", path: "../outside.txt", wantErr: "escapes workspace"},
		{name: "absolute outside", path: "/etc/passwd", wantErr: "escapes workspace"},
		{name: "empty", path: "  ", wantErr: "path is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.path)
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

func TestFilesystemBuiltins(t *testing.T) {
	workspace := t.TempDir()
	c := NewClient(registry.New(), Config{Workspace: workspace})
	require.NoError(t, c.Connect(context.Background()))
	c.RegisterBuiltinTools()
	ctx := context.Background()

	call := func(name string, params map[string]interface{}) *api.Response {
		t.Helper()
		return c.CallTool(ctx, name, params, nil)
	}

	resp := call(OpWriteFile, map[string]interface{}{"path": "notes/todo.txt", "content": "one"})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, 3, resp.Data.(map[string]interface{})["bytes_written"])

	resp = call(OpWriteFile, map[string]interface{}{"path": "notes/todo.txt", "content": "+two", "append": true})
	require.True(t, resp.Success, resp.Error)

	resp = call(OpReadFile, map[string]interface{}{"path": "notes/todo.txt"})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "one+two", resp.Data.(map[string]interface{})["content"])

	resp = call(OpFileExists, map[string]interface{}{"path": "notes/todo.txt"})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, true, resp.Data.(map[string]interface{})["exists"])

	resp = call(OpListDirectory, map[string]interface{}{"path": "notes"})
	require.True(t, resp.Success, resp.Error)
	entries := resp.Data.(map[string]interface{})["entries"].([]map[string]interface{})
	require.Len(t, entries, 1)
	assert.Equal(t, "todo.txt", entries[0]["name"])
	assert.Equal(t, int64(7), entries[0]["size"])

	resp = call(OpDeleteFile, map[string]interface{}{"path": "notes/todo.txt"})
	require.True(t, resp.Success, resp.Error)
	_, err := os.Stat(filepath.Join(workspace, "notes", "todo.txt"))
	assert.True(t, os.IsNotExist(err))

	resp = call(OpFileExists, map[string]interface{}{"path": "notes/todo.txt"})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, false, resp.Data.(map[string]interface{})["exists"])

	resp = call(OpReadFile, map[string]interface{}{"path": "notes/todo.txt"})
	assert.False(t, resp.Success)
	assert.Equal(t, api.KindExecution, resp.ErrorKind)
}

func TestFilesystemRejectsEscapes(t *testing.T) {
	workspace := t.TempDir()
	c := NewClient(registry.New(), Config{Workspace: workspace})
	require.NoError(t, c.Connect(context.Background()))
	c.RegisterBuiltinTools()

	resp := c.CallTool(context.Background(), OpWriteFile,
		map[string]interface{}{"path": "../escape.txt", "content": "x"}, nil)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "escapes workspace")

	_, err := os.Stat(filepath.Join(filepath.Dir(workspace), "escape.txt"))
	assert.True(t, os.IsNotExist(err))

	resp = c.CallTool(context.Background(), OpDeleteFile, map[string]interface{}{"path": "."}, nil)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "workspace root")
}

func TestFilesystemRejectsLinksOutOfWorkspace(t *testing.T) {
	base := t.TempDir()
	workspace := filepath.Join(base, "ws")
	outside := filepath.Join(base, "outside")
	require.NoError(t, os.MkdirAll(workspace, 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("SECRET"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "inside.txt"), []byte("ok"), 0o600))

	require.NoError(t, os.Symlink(outside, filepath.Join(workspace, "link")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(workspace, "secret-link")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "new.txt"), filepath.Join(workspace, "dangling")))
	require.NoError(t, os.Symlink(filepath.Join(workspace, "inside.txt"), filepath.Join(workspace, "alias.txt")))

	c := NewClient(registry.New(), Config{Workspace: workspace})
	require.NoError(t, c.Connect(context.Background()))
	c.RegisterBuiltinTools()
	ctx := context.Background()

	tests := []struct {
		name    string
		tool    string
		params  map[string]interface{}
		wantErr string
	}{
		{name: "read through linked directory", tool: OpReadFile, params: map[string]interface{}{"path": "link/secret.txt"}, wantErr: "escapes workspace"},
		{name: "read linked file", tool: OpReadFile, params: map[string]interface{}{"path": "secret-link"}, wantErr: "escapes workspace"},
		{name: "list linked directory", tool: OpListDirectory, params: map[string]interface{}{"path": "link"}, wantErr: "escapes workspace"},
		{name: "write below linked directory", tool: OpWriteFile, params: map[string]interface{}{"path": "link/sub/x.txt", "content": "x"}, wantErr: "escapes workspace"},
		{name: "write through dangling link", tool: OpWriteFile, params: map[string]interface{}{"path": "dangling", "content": "x"}, wantErr: "dangling link"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := c.CallTool(ctx, tt.tool, tt.params, nil)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tt.wantErr)
		})
	}

	_, err := os.Stat(filepath.Join(outside, "new.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(outside, "sub"))
	assert.True(t, os.IsNotExist(err))

	resp := c.CallTool(ctx, OpReadFile, map[string]interface{}{"path": "alias.txt"}, nil)
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "ok", resp.Data.(map[string]interface{})["content"])
}

func TestFilesystemHandlerOperationParameter(t *testing.T) {
	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "a.txt"), []byte("hello"), 0o600))

	h := NewFilesystemHandler(workspace)
	out, err := h.Invoke(context.Background(), map[string]interface{}{"operation": OpReadFile, "path": "a.txt"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", out.(map[string]interface{})["content"])

	_, err = h.Invoke(context.Background(), map[string]interface{}{"operation": "chmod", "path": "a.txt"}, nil)
	assert.Error(t, err)

	_, err = h.Invoke(context.Background(), map[string]interface{}{"path": "a.txt"}, nil)
	assert.Error(t, err, "no operation and no tool name")
}

func TestFilesystemToolNameWinsOverOperation(t *testing.T) {
	workspace := t.TempDir()
	keep := filepath.Join(workspace, "keep.txt")
	require.NoError(t, os.WriteFile(keep, []byte("keep"), 0o600))

	c := NewClient(registry.New(), Config{Workspace: workspace})
	require.NoError(t, c.Connect(context.Background()))
	c.RegisterBuiltinTools()

	resp := c.CallTool(context.Background(), OpReadFile,
		map[string]interface{}{"path": "keep.txt", "operation": OpDeleteFile}, nil)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "operation")
	_, err := os.Stat(keep)
	require.NoError(t, err, "file must survive a read_file call")

	resp = c.CallTool(context.Background(), OpReadFile,
		map[string]interface{}{"path": "keep.txt", "operation": OpReadFile}, nil)
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "keep", resp.Data.(map[string]interface{})["content"])

	h := NewFilesystemHandler(workspace)
	ctx := api.WithToolName(context.Background(), OpFileExists)
	_, err = h.Invoke(ctx, map[string]interface{}{"path": "keep.txt", "operation": OpWriteFile, "content": "x"}, nil)
	assert.True(t, api.IsValidation(err))
	data, err := os.ReadFile(keep)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))

	// Tools not named after an operation still select one explicitly.
	ctx = api.WithToolName(context.Background(), "workspace_files")
	out, err := h.Invoke(ctx, map[string]interface{}{"path": "keep.txt", "operation": OpFileExists}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, out.(map[string]interface{})["exists"])
}
