package client

import (
	"toolbelt/internal/api"
	"toolbelt/pkg/logging"
)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

// BuiltinTools returns the descriptors of the built-in tools. None of them
// carries a handler: they are served by the category dispatch table.
func BuiltinTools() []api.Tool {
	pathOnly := api.ObjectSchema(map[string]interface{}{
		"path": stringProp("Path relative to the workspace"),
	}, "path")

	return []api.Tool{
		{
			Name:        OpReadFile,
			Description: "Read the contents of a file in the workspace",
			InputSchema: pathOnly,
			Category:    api.CategorySystem,
		},
		{
			Name:        OpWriteFile,
			Description: "Write content to a file in the workspace, creating parent directories",
			InputSchema: api.ObjectSchema(map[string]interface{}{
				"path":    stringProp("Path relative to the workspace"),
				"content": stringProp("File contents to write"),
				"append": map[string]interface{}{
					"type":        "boolean",
					"description": "Append instead of overwrite (default: false)",
				},
			}, "path", "content"),
			Category: api.CategorySystem,
		},
		{
			Name:        OpListDirectory,
			Description: "List the entries of a directory in the workspace",
			InputSchema: pathOnly,
			Category:    api.CategorySystem,
		},
		{
			Name:        OpDeleteFile,
			Description: "Delete a file or empty directory in the workspace",
			InputSchema: pathOnly,
			Category:    api.CategorySystem,
		},
		{
			Name:        OpFileExists,
			Description: "Check whether a path exists in the workspace",
			InputSchema: pathOnly,
			Category:    api.CategorySystem,
		},
		{
			Name:        "http_request",
			Description: "Perform an HTTP request",
			InputSchema: api.ObjectSchema(map[string]interface{}{
				"url": stringProp("Target URL"),
				"method": map[string]interface{}{
					"type": "string",
					"enum": []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"},
				},
				"headers": map[string]interface{}{"type": "object"},
				"body":    stringProp("Request body"),
			}, "url"),
			Category: api.CategoryNetwork,
		},
		{
			Name:        "query_data",
			Description: "Run a query against a configured data source",
			InputSchema: api.ObjectSchema(map[string]interface{}{
				"source": stringProp("Data source name"),
				"query":  stringProp("Query text"),
				"limit":  map[string]interface{}{"type": "integer", "minimum": 1},
			}, "query"),
			Category: api.CategoryData,
		},
	}
}

// RegisterBuiltinTools registers every built-in tool and returns how many were
// accepted.
func (c *Client) RegisterBuiltinTools() int {
	n := 0
	for _, tool := range BuiltinTools() {
		if c.RegisterTool(tool) {
			n++
		}
	}
	logging.Debug("Client", "Registered %d built-in tools", n)
	return n
}
