package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"toolbelt/internal/config"
	"toolbelt/pkg/logging"
)

// Application bootstraps and runs toolbelt.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load configuration, initialize logging, build services
//  2. Execution phase: run a command against the services or serve them
//
// Example usage:
//
//	cfg := app.NewConfig(false, configPath, version)
//	application, err := app.NewApplication(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Serve(ctx, app.ServeOptions{})
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads the configuration, configures logging and builds all
// services.
//
// Configuration loading:
//   - cfg.ToolbeltConfig set: used as is
//   - cfg.ConfigPath set: config.yaml is loaded from that directory
//   - otherwise: config.yaml is loaded from ~/.config/toolbelt
//
// The --debug flag overrides the configured log level.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	// Log at warning level until the configured level is known.
	initLogging(cfg, logging.LevelWarn, logging.FormatText)

	var toolbeltCfg config.ToolbeltConfig
	if cfg.ToolbeltConfig != nil {
		toolbeltCfg = *cfg.ToolbeltConfig
		if err := config.Validate(toolbeltCfg); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	} else {
		configPath := cfg.ConfigPath
		if configPath == "" {
			configPath = config.GetDefaultConfigPathOrPanic()
		}
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from %s", configPath)
			return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
		}
		toolbeltCfg = loaded
	}
	cfg.ToolbeltConfig = &toolbeltCfg

	level, err := logging.ParseLevel(toolbeltCfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}
	initLogging(cfg, level, logging.Format(toolbeltCfg.Logging.Format))

	services, err := InitializeServices(ctx, toolbeltCfg, cfg.Version)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

func initLogging(cfg *Config, level logging.LogLevel, format logging.Format) {
	var out io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		out = cfg.LogOutput
	}
	if cfg.Silent {
		out = io.Discard
	}
	logging.Init(level, format, out)
}

// Services returns the application services.
func (a *Application) Services() *Services {
	return a.services
}

// Config returns the loaded configuration.
func (a *Application) Config() config.ToolbeltConfig {
	return *a.config.ToolbeltConfig
}
