package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"sigs.k8s.io/yaml"

	"toolbelt/internal/api"
	"toolbelt/pkg/logging"
)

// Format is a serialization format for registry documents.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat converts a user supplied format name. The empty string selects
// JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", api.ValidationError{Field: "format", Value: s, Message: "must be one of: json, yaml, toml"}
	}
}

// FormatFromPath infers the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return FormatJSON
	}
	return f
}

// Entry is one tool in an exported document.
type Entry struct {
	Tool     api.Tool         `json:"tool" toml:"tool"`
	Metadata api.ToolMetadata `json:"metadata" toml:"metadata"`
}

// Document is the flat export form of a registry.
type Document struct {
	Tools      map[string]Entry    `json:"tools" toml:"tools"`
	Categories map[string][]string `json:"categories" toml:"categories"`
	Tags       map[string][]string `json:"tags" toml:"tags"`
	ExportedAt time.Time           `json:"exported_at" toml:"exported_at"`
}

// Export snapshots the registry into a Document.
func (r *Registry) Export() *Document {
	now := r.clock.Now()
	categories := r.Categories()
	tags := r.Tags()

	r.mu.RLock()
	defer r.mu.RUnlock()

	doc := &Document{
		Tools:      make(map[string]Entry, len(r.entries)),
		Categories: categories,
		Tags:       tags,
		ExportedAt: now.UTC(),
	}
	for name, e := range r.entries {
		tool := e.tool
		tool.Handler = nil
		doc.Tools[name] = Entry{Tool: tool, Metadata: e.metadata.Clone()}
	}
	return doc
}

// Marshal exports the registry and encodes it in format.
func (r *Registry) Marshal(format Format) ([]byte, error) {
	return r.Export().Encode(format)
}

// Encode serializes the document.
func (d *Document) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return json.MarshalIndent(d, "", "  ")
	case FormatYAML:
		return yaml.Marshal(d)
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(d); err != nil {
			return nil, fmt.Errorf("failed to encode registry as toml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported registry format %q", format)
	}
}

// Unmarshal decodes a document encoded in format.
func Unmarshal(data []byte, format Format) (*Document, error) {
	doc := &Document{}
	var err error
	switch format {
	case FormatJSON, "":
		err = json.Unmarshal(data, doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, doc)
	case FormatTOML:
		_, err = toml.Decode(string(data), doc)
	default:
		return nil, fmt.Errorf("unsupported registry format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s registry document: %w", format, err)
	}
	return doc, nil
}

// Import replaces the registry contents with the tools in doc. Every tool is
// validated before the registry is touched; if any is invalid nothing
// changes. Handlers bound to previously registered tools are dropped, and the
// document's index sections are rebuilt from its tools rather than trusted.
func (r *Registry) Import(doc *Document) error {
	if doc == nil {
		return api.ValidationError{Field: "document", Message: "is required"}
	}

	var errs api.ValidationErrors
	entries := make(map[string]*entry, len(doc.Tools))
	for key, item := range doc.Tools {
		tool := item.Tool
		if tool.Name == "" {
			tool.Name = key
		}
		tool.Handler = nil

		prepared, err := prepare(tool)
		if err != nil {
			errs.Add("tools."+key, err.Error())
			continue
		}
		md := item.Metadata.Clone()
		md.Tags = api.NormalizeTags(md.Tags)
		if md.Dependencies == nil {
			md.Dependencies = []string{}
		}
		entries[prepared.Name] = &entry{tool: prepared, metadata: md}
	}
	if errs.HasErrors() {
		return api.FormatValidationError("registry document", "", errs)
	}

	r.mu.Lock()
	r.entries = make(map[string]*entry, len(entries))
	r.byCategory = make(map[api.Category]map[string]struct{})
	r.byTag = make(map[string]map[string]struct{})
	for name, e := range entries {
		r.entries[name] = e
		r.index(e)
	}
	count := len(r.entries)
	r.mu.Unlock()

	logging.Info("Registry", "Imported %d tools", count)
	r.notify(count)
	return nil
}

// SaveFile writes the registry to path. The file is written to a temporary
// sibling first and renamed into place.
func (r *Registry) SaveFile(path string, format Format) error {
	if format == "" {
		format = FormatFromPath(path)
	}
	data, err := r.Marshal(format)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once renamed.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace registry file %s: %w", path, err)
	}

	logging.Debug("Registry", "Saved registry to %s (%s)", path, format)
	return nil
}

// LoadFile imports the registry document stored at path.
func (r *Registry) LoadFile(path string, format Format) error {
	if format == "" {
		format = FormatFromPath(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read registry file %s: %w", path, err)
	}
	doc, err := Unmarshal(data, format)
	if err != nil {
		return err
	}
	return r.Import(doc)
}
