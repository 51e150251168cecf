package api

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultToolVersion is assigned to tools registered without a version.
const DefaultToolVersion = "1.0.0"

// Category is the coarse grouping of a tool. It drives default dispatch and
// filtering. The set is closed; free-form labels belong in ToolMetadata.Tags.
type Category string

const (
	CategorySystem        Category = "system"
	CategoryData          Category = "data"
	CategoryNetwork       Category = "network"
	CategoryDevelopment   Category = "development"
	CategoryTesting       Category = "testing"
	CategoryQuality       Category = "quality"
	CategoryDeployment    Category = "deployment"
	CategoryDocumentation Category = "documentation"
	CategoryCustom        Category = "custom"
)

// Categories lists every valid category in declaration order.
var Categories = []Category{
	CategorySystem,
	CategoryData,
	CategoryNetwork,
	CategoryDevelopment,
	CategoryTesting,
	CategoryQuality,
	CategoryDeployment,
	CategoryDocumentation,
	CategoryCustom,
}

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory normalises s into a Category. The empty string maps to
// CategoryCustom; unknown values are rejected.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryCustom, nil
	}
	c := Category(s)
	if !c.IsValid() {
		return "", ValidationError{
			Field:   "category",
			Value:   s,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(CategoryNames(), ", ")),
		}
	}
	return c, nil
}

// CategoryNames returns the string form of every category.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}

// Schema is a JSON-Schema-like object describing tool input or output.
// Properties holds raw JSON Schema fragments keyed by property name.
type Schema struct {
	Type                 string                 `json:"type" toml:"type"`
	Description          string                 `json:"description,omitempty" toml:"description,omitempty"`
	Properties           map[string]interface{} `json:"properties,omitempty" toml:"properties,omitempty"`
	Required             []string               `json:"required,omitempty" toml:"required,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty" toml:"additionalProperties,omitempty"`
}

// IsZero reports whether the schema declares nothing at all.
func (s Schema) IsZero() bool {
	return s.Type == "" && s.Description == "" && len(s.Properties) == 0 &&
		len(s.Required) == 0 && s.AdditionalProperties == nil
}

// PropertyType returns the declared "type" of a property, or "" when the
// property is unknown or untyped.
func (s Schema) PropertyType(name string) string {
	prop, ok := s.Properties[name].(map[string]interface{})
	if !ok {
		return ""
	}
	t, _ := prop["type"].(string)
	return t
}

// ObjectSchema is a convenience constructor for the common object schema.
func ObjectSchema(properties map[string]interface{}, required ...string) Schema {
	return Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// Handler performs the work of a tool.
type Handler interface {
	Invoke(ctx context.Context, params map[string]interface{}, callCtx *Context) (interface{}, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, params map[string]interface{}, callCtx *Context) (interface{}, error)

// Invoke calls f.
func (f HandlerFunc) Invoke(ctx context.Context, params map[string]interface{}, callCtx *Context) (interface{}, error) {
	return f(ctx, params, callCtx)
}

// Tool describes a named capability with its input/output contract.
// Name is the sole identity of a tool within a registry.
type Tool struct {
	Name         string   `json:"name" toml:"name"`
	Description  string   `json:"description" toml:"description"`
	InputSchema  Schema   `json:"input_schema" toml:"input_schema"`
	OutputSchema Schema   `json:"output_schema" toml:"output_schema"`
	Category     Category `json:"category" toml:"category"`
	Version      string   `json:"version" toml:"version"`

	// Handler is bound at registration time and never serialized.
	Handler Handler `json:"-" toml:"-"`
}

// ToolMetadata is the bookkeeping attached to a registered tool.
type ToolMetadata struct {
	Author       string     `json:"author" toml:"author"`
	Tags         []string   `json:"tags" toml:"tags"`
	Dependencies []string   `json:"dependencies" toml:"dependencies"`
	CreatedAt    time.Time  `json:"created_at" toml:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" toml:"updated_at"`
	UsageCount   int        `json:"usage_count" toml:"usage_count"`
	SuccessCount int        `json:"success_count" toml:"success_count"`
	SuccessRate  float64    `json:"success_rate" toml:"success_rate"`
	LastUsed     *time.Time `json:"last_used,omitempty" toml:"last_used,omitempty"`
}

// NormalizeTags lower-cases, trims, de-duplicates and sorts tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy of the metadata.
func (m ToolMetadata) Clone() ToolMetadata {
	c := m
	c.Tags = append([]string(nil), m.Tags...)
	c.Dependencies = append([]string(nil), m.Dependencies...)
	if m.LastUsed != nil {
		t := *m.LastUsed
		c.LastUsed = &t
	}
	return c
}

// ServerInfo is produced by the client handshake.
type ServerInfo struct {
	Name             string    `json:"name"`
	Version          string    `json:"version"`
	Capabilities     []string  `json:"capabilities"`
	ProtocolVersions []string  `json:"protocol_versions"`
	ConnectedAt      time.Time `json:"connected_at"`
}

// PopularTool is one entry of a usage ranking.
type PopularTool struct {
	Name        string  `json:"name"`
	UsageCount  int     `json:"usage_count"`
	SuccessRate float64 `json:"success_rate"`
}
