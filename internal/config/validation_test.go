package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolbelt/internal/api"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ToolbeltConfig)
		fields []string
	}{
		{
			name:   "defaults are valid",
			modify: func(*ToolbeltConfig) {},
		},
		{
			name: "bad logging",
			modify: func(c *ToolbeltConfig) {
				c.Logging.Level = "chatty"
				c.Logging.Format = "xml"
			},
			fields: []string{"logging.level", "logging.format"},
		},
		{
			name: "negative client limits",
			modify: func(c *ToolbeltConfig) {
				c.Client.CallTimeout = -time.Second
				c.Client.HistoryLimit = -1
			},
			fields: []string{"client.callTimeout", "client.historyLimit"},
		},
		{
			name: "registry",
			modify: func(c *ToolbeltConfig) {
				c.Registry.Format = "xml"
				c.Registry.Watch = true
			},
			fields: []string{"registry.format", "registry.watch"},
		},
		{
			name:   "server transport",
			modify: func(c *ToolbeltConfig) { c.Server.Transport = "carrier-pigeon" },
			fields: []string{"server.transport"},
		},
		{
			name: "dependencies",
			modify: func(c *ToolbeltConfig) {
				c.Dependencies = []DependencyConfig{
					{Name: ""},
					{Name: "git", Version: "not a constraint"},
					{Name: "git"},
					{Name: "token", Kind: ProbeKindEnv},
					{Name: "db", Kind: "ldap", DependsOn: []string{"db", "missing"}},
				}
			},
			fields: []string{
				"dependencies[0].name",
				"dependencies.git.version",
				"dependencies.git",
				"dependencies.token.target",
				"dependencies.db.kind",
				"dependencies.db.target",
				"dependencies.db.dependsOn",
				"dependencies.db.dependsOn",
			},
		},
		{
			name: "agents",
			modify: func(c *ToolbeltConfig) {
				c.Agents = []AgentConfig{
					{Name: "has space"},
					{Name: "a", Categories: []string{"quality", "cooking", ""}, ErrorHandling: "loud", MaxSamples: -1},
					{Name: "a"},
					{Name: "b", Rules: []RuleConfig{{Name: "empty"}}},
				}
			},
			fields: []string{
				"agents[0].name",
				"agents.a.categories",
				"agents.a.categories",
				"agents.a.errorHandling",
				"agents.a.maxSamples",
				"agents.a",
				"agents.b.rules[0].tool",
				"agents.b.rules[0].keywords",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.modify(&cfg)

			err := Validate(cfg)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			errs, ok := err.(api.ValidationErrors)
			require.True(t, ok, "expected api.ValidationErrors, got %T", err)
			got := make([]string, 0, len(errs))
			for _, e := range errs {
				got = append(got, e.Field)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestAgentDefaults(t *testing.T) {
	on, off := true, false

	assert.True(t, AgentConfig{}.IsEnabled())
	assert.True(t, AgentConfig{Enabled: &on}.IsEnabled())
	assert.False(t, AgentConfig{Enabled: &off}.IsEnabled())

	assert.True(t, AgentConfig{}.IsAutoInitialize())
	assert.False(t, AgentConfig{AutoInitialize: &off}.IsAutoInitialize())
}
