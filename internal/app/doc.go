// Package app wires toolbelt together.
//
// NewApplication is the composition root: it loads config.yaml, configures
// logging and builds every component through InitializeServices. Nothing in
// toolbelt is a package-level singleton; the CLI commands receive their
// registry, client, dependency manager and façades from the Services value
// built here.
//
// # Lifecycle
//
//	application, err := app.NewApplication(ctx, app.NewConfig(debug, configPath, version))
//	if err != nil {
//	    return err
//	}
//	services := application.Services()
//	if err := services.Start(ctx); err != nil {
//	    return err
//	}
//	defer services.Stop()
//
// Serve runs the long-lived MCP server. It starts the services itself,
// publishes every tool through the mcpserver package, optionally exposes
// Prometheus metrics, and notifies systemd once it is ready.
//
// # Registry reloads
//
// When registry.watch is set the registry file is re-imported on every
// change. Import replaces the whole registry, so the built-in tools are
// registered again after each successful reload, followed by the hooks added
// with Services.OnReload.
package app
