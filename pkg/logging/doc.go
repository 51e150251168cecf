// Package logging provides subsystem-tagged structured logging for toolbelt.
//
// The package wraps Go's log/slog with a small, printf-style API so call sites
// stay short and every record carries a "subsystem" attribute:
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("Registry", "Registered tool %s (%s)", name, category)
//	logging.Debug("Client", "Dispatching %s to category handler", name)
//	logging.Warn("Integration", "Disabling capability %s after failure", name)
//	logging.Error("Dependency", err, "Required dependency %s missing", name)
//
// Output is either text (default) or JSON. Until Init is called only warnings
// and errors reach stderr, which keeps tests and library use quiet.
//
// # Subsystems
//
// The subsystems used across the codebase are:
//
//   - Bootstrap: composition root and configuration loading
//   - Registry: tool catalog mutations, import/export and file watching
//   - Client: connection lifecycle and tool dispatch
//   - Dependency: dependency probing and health
//   - Integration: per-agent façade and error policy decisions
//   - MCPServer: the MCP stdio surface
package logging
