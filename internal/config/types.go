package config

import "time"

// ToolbeltConfig is the top-level configuration structure.
type ToolbeltConfig struct {
	// Workspace roots the filesystem tools. Relative paths are resolved
	// against the working directory.
	Workspace    string             `yaml:"workspace,omitempty"`
	Logging      LoggingConfig      `yaml:"logging"`
	Client       ClientConfig       `yaml:"client"`
	Registry     RegistryConfig     `yaml:"registry"`
	Dependencies []DependencyConfig `yaml:"dependencies,omitempty"`
	Agents       []AgentConfig      `yaml:"agents,omitempty"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Server       ServerConfig       `yaml:"server"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn or error
	Format string `yaml:"format,omitempty"` // text or json
}

// ClientConfig configures the invocation client.
type ClientConfig struct {
	Name         string        `yaml:"name,omitempty"`
	Version      string        `yaml:"version,omitempty"`
	CallTimeout  time.Duration `yaml:"callTimeout,omitempty"`
	HistoryLimit int           `yaml:"historyLimit,omitempty"`
}

// RegistryConfig points at an optional registry document that is imported on
// start-up.
type RegistryConfig struct {
	File   string `yaml:"file,omitempty"`
	Format string `yaml:"format,omitempty"` // json, yaml or toml; empty infers from the extension
	Watch  bool   `yaml:"watch,omitempty"`
}

// Dependency probe kinds.
const (
	ProbeKindBinary = "binary"
	ProbeKindEnv    = "env"
	ProbeKindFile   = "file"
	ProbeKindTCP    = "tcp"
)

// ProbeKinds lists the supported dependency probe kinds.
var ProbeKinds = []string{ProbeKindBinary, ProbeKindEnv, ProbeKindFile, ProbeKindTCP}

// DependencyConfig declares an external dependency and how to probe for it.
type DependencyConfig struct {
	Name      string   `yaml:"name"`
	Purpose   string   `yaml:"purpose,omitempty"`
	Required  bool     `yaml:"required,omitempty"`
	Version   string   `yaml:"version,omitempty"` // semver constraint
	DependsOn []string `yaml:"dependsOn,omitempty"`
	Kind      string   `yaml:"kind,omitempty"`
	// Target is the binary name, environment variable, path or host:port to
	// probe. For binaries it defaults to Name.
	Target string `yaml:"target,omitempty"`
}

// AgentConfig configures the integration façade of one agent.
type AgentConfig struct {
	Name           string       `yaml:"name"`
	Enabled        *bool        `yaml:"enabled,omitempty"`
	AutoInitialize *bool        `yaml:"autoInitialize,omitempty"`
	Categories     []string     `yaml:"categories,omitempty"`
	CustomTools    []string     `yaml:"customTools,omitempty"`
	ErrorHandling  string       `yaml:"errorHandling,omitempty"`
	MaxSamples     int          `yaml:"maxSamples,omitempty"`
	Rules          []RuleConfig `yaml:"rules,omitempty"`
}

// IsEnabled reports whether the agent is enabled. Agents are enabled unless
// configured otherwise.
func (a AgentConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// IsAutoInitialize reports whether the agent connects on start-up. It
// defaults to true.
func (a AgentConfig) IsAutoInitialize() bool {
	return a.AutoInitialize == nil || *a.AutoInitialize
}

// RuleConfig maps operation keywords to a tool.
type RuleConfig struct {
	Name      string                 `yaml:"name,omitempty"`
	Keywords  []string               `yaml:"keywords"`
	Tool      string                 `yaml:"tool"`
	Arguments map[string]interface{} `yaml:"arguments,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint of the serve command.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Addr    string `yaml:"addr,omitempty"`
}

const (
	// TransportStdio serves MCP over stdin and stdout.
	TransportStdio = "stdio"
	// TransportStreamableHTTP serves MCP over streamable HTTP.
	TransportStreamableHTTP = "streamable-http"
)

// ServerConfig configures the MCP surface.
type ServerConfig struct {
	Transport string `yaml:"transport,omitempty"`
	Addr      string `yaml:"addr,omitempty"`
	// Agent is recorded as the caller of tools invoked over MCP.
	Agent string `yaml:"agent,omitempty"`
}

// Agent returns the configuration of the named agent.
func (c ToolbeltConfig) Agent(name string) (AgentConfig, bool) {
	for _, agent := range c.Agents {
		if agent.Name == name {
			return agent, true
		}
	}
	return AgentConfig{}, false
}
