// Package mcpserver exposes the tools of a client over the Model Context
// Protocol using github.com/mark3labs/mcp-go.
//
// Every tool known to the client is published as an MCP tool whose input
// schema is converted from the tool's api.Schema. Calls arriving over MCP are
// routed through client.CallTool, so parameter validation, usage statistics,
// metrics and timeouts apply exactly as they do for in-process callers.
//
// Successful results are JSON-encoded into a single text content block.
// Failed calls are reported as MCP tool errors (IsError set) rather than
// protocol errors, so that the calling model sees the failure message.
//
// # Transports
//
// ServeStdio serves the protocol over a reader/writer pair, normally the
// process stdin and stdout. ServeHTTP serves the streamable HTTP transport.
//
// # Tool set changes
//
// Sync reconciles the published tool set with the client. It is called once
// before serving and again whenever the registry is reloaded from disk.
package mcpserver
