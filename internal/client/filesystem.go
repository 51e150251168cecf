package client

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"toolbelt/internal/api"
)

// Filesystem operations understood by FilesystemHandler. A tool named after
// an operation always runs that operation; other tools select one with the
// "operation" parameter.
const (
	OpReadFile      = "read_file"
	OpWriteFile     = "write_file"
	OpListDirectory = "list_directory"
	OpDeleteFile    = "delete_file"
	OpFileExists    = "file_exists"
)

// maxReadBytes caps the size of a file returned by read_file.
const maxReadBytes = 1 << 20

// Resolver resolves and validates workspace-relative paths.
type Resolver struct {
	Root string
}

// Resolve returns an absolute, cleaned path within the workspace root.
func (r Resolver) Resolve(path string) (string, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", fmt.Errorf("path is required")
	}
	root := strings.TrimSpace(r.Root)
	if root == "" {
		root = "."
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}

	target := clean
	if !filepath.IsAbs(target) {
		target = filepath.Join(rootAbs, clean)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if !within(rootAbs, targetAbs) {
		return "", fmt.Errorf("path %s escapes workspace", path)
	}

	// Links inside the workspace must not lead out of it.
	rootReal, err := realPath(rootAbs)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}
	targetReal, err := realPath(targetAbs)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	if !within(rootReal, targetReal) {
		return "", fmt.Errorf("path %s escapes workspace", path)
	}
	return targetAbs, nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// realPath evaluates the links of the deepest existing ancestor of p and
// appends the part that does not exist yet. A dangling link is an error since
// creating through it would land wherever it points.
func realPath(p string) (string, error) {
	cur, rest := p, ""
	for {
		real, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(real, rest), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if _, lerr := os.Lstat(cur); lerr == nil {
			return "", fmt.Errorf("%s is a dangling link", cur)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

// FilesystemHandler is the default system category handler. It performs file
// operations confined to a workspace directory.
type FilesystemHandler struct {
	resolver Resolver
}

// NewFilesystemHandler creates a handler rooted at workspace ("" means the
// current directory).
func NewFilesystemHandler(workspace string) *FilesystemHandler {
	return &FilesystemHandler{resolver: Resolver{Root: workspace}}
}

// Invoke implements api.Handler.
func (h *FilesystemHandler) Invoke(ctx context.Context, params map[string]interface{}, callCtx *api.Context) (interface{}, error) {
	op, err := selectOperation(api.ToolNameFromContext(ctx), params)
	if err != nil {
		return nil, err
	}

	path, _ := params["path"].(string)
	resolved, err := h.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}

	switch op {
	case OpReadFile:
		return h.read(resolved)
	case OpWriteFile:
		content, _ := params["content"].(string)
		appendMode, _ := params["append"].(bool)
		return h.write(resolved, content, appendMode)
	case OpListDirectory:
		return h.list(resolved)
	case OpDeleteFile:
		return h.delete(resolved)
	case OpFileExists:
		return h.exists(resolved)
	default:
		return nil, fmt.Errorf("unsupported filesystem operation %q", op)
	}
}

func isOperation(name string) bool {
	switch name {
	case OpReadFile, OpWriteFile, OpListDirectory, OpDeleteFile, OpFileExists:
		return true
	}
	return false
}

// selectOperation picks the operation for a call. The tool name wins over the
// "operation" parameter so that a caller allowed to use read_file cannot
// turn it into delete_file.
func selectOperation(tool string, params map[string]interface{}) (string, error) {
	requested, _ := params["operation"].(string)
	if !isOperation(tool) {
		return requested, nil
	}
	if requested != "" && requested != tool {
		return "", api.ValidationError{
			Field:   "operation",
			Message: fmt.Sprintf("cannot be %q for tool %s", requested, tool),
			Value:   requested,
		}
	}
	return tool, nil
}

func (h *FilesystemHandler) read(path string) (interface{}, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxReadBytes {
		return nil, fmt.Errorf("%s is %d bytes, larger than the %d byte limit", path, info.Size(), maxReadBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"path":    path,
		"content": string(data),
		"size":    len(data),
	}, nil
}

func (h *FilesystemHandler) write(path, content string, appendMode bool) (interface{}, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	n, err := f.WriteString(content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"path":          path,
		"bytes_written": n,
		"appended":      appendMode,
	}, nil
}

func (h *FilesystemHandler) list(path string) (interface{}, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		item := map[string]interface{}{
			"name":   entry.Name(),
			"is_dir": entry.IsDir(),
		}
		if info, err := entry.Info(); err == nil && !entry.IsDir() {
			item["size"] = info.Size()
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i]["name"].(string) < items[j]["name"].(string)
	})
	return map[string]interface{}{
		"path":    path,
		"entries": items,
	}, nil
}

func (h *FilesystemHandler) delete(path string) (interface{}, error) {
	root, err := h.resolver.Resolve(".")
	if err != nil {
		return nil, err
	}
	if path == root {
		return nil, fmt.Errorf("refusing to delete the workspace root")
	}
	if err := os.Remove(path); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"path":    path,
		"deleted": true,
	}, nil
}

func (h *FilesystemHandler) exists(path string) (interface{}, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return map[string]interface{}{"path": path, "exists": true, "is_dir": info.IsDir()}, nil
	case errors.Is(err, fs.ErrNotExist):
		return map[string]interface{}{"path": path, "exists": false, "is_dir": false}, nil
	default:
		return nil, err
	}
}
