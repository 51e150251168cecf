package api

import (
	"context"
	"time"
)

// ProtocolVersion is the context protocol version stamped on new contexts.
const ProtocolVersion = "2025-06-18"

// Context is the execution scope of a single invocation. It is a value
// object: nothing mutates a Context after construction.
type Context struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	UserID    string                 `json:"user_id,omitempty"`
	AgentID   string                 `json:"agent_id,omitempty"`
	ProjectID string                 `json:"project_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
}

// ContextOption customises a Context under construction.
type ContextOption func(*Context)

// WithUser sets the user id.
func WithUser(id string) ContextOption {
	return func(c *Context) { c.UserID = id }
}

// WithAgent sets the agent id.
func WithAgent(id string) ContextOption {
	return func(c *Context) { c.AgentID = id }
}

// WithProject sets the project id.
func WithProject(id string) ContextOption {
	return func(c *Context) { c.ProjectID = id }
}

// WithMetadata copies md into the context metadata bag. Later calls win on
// key conflicts.
func WithMetadata(md map[string]interface{}) ContextOption {
	return func(c *Context) {
		if len(md) == 0 {
			return
		}
		if c.Metadata == nil {
			c.Metadata = make(map[string]interface{}, len(md))
		}
		for k, v := range md {
			c.Metadata[k] = v
		}
	}
}

// MetadataValue returns a metadata entry without exposing the map.
func (c *Context) MetadataValue(key string) (interface{}, bool) {
	if c == nil || c.Metadata == nil {
		return nil, false
	}
	v, ok := c.Metadata[key]
	return v, ok
}

type toolNameKey struct{}

// WithToolName records the name of the tool being dispatched on ctx. Category
// handlers shared by several tools use it to tell them apart.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}

// ToolNameFromContext returns the tool name set by WithToolName.
func ToolNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(toolNameKey{}).(string)
	return name
}
