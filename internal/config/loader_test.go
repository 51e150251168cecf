package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolbelt/internal/api"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoadConfig_Full(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
workspace: /srv/project
logging:
  level: debug
  format: json
client:
  name: reviewer-bot
  callTimeout: 5s
registry:
  file: tools.yaml
  watch: true
dependencies:
  - name: git
    required: true
    version: ">=2.0"
  - name: api-token
    kind: env
    target: API_TOKEN
  - name: cache
    kind: tcp
    target: localhost:6379
    dependsOn: [api-token]
agents:
  - name: reviewer
    categories: [quality, development]
    customTools: [deploy_preview]
    errorHandling: strict
    maxSamples: 20
    rules:
      - name: lint
        keywords: [lint, style]
        tool: check_quality
        arguments:
          path: "{{ .file }}"
  - name: writer
    enabled: false
metrics:
  enabled: true
server:
  transport: streamable-http
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "/srv/project", cfg.Workspace)
	assert.Equal(t, LoggingConfig{Level: "debug", Format: "json"}, cfg.Logging)
	assert.Equal(t, "reviewer-bot", cfg.Client.Name)
	assert.Equal(t, 5*time.Second, cfg.Client.CallTimeout)
	assert.Equal(t, DefaultHistoryLimit, cfg.Client.HistoryLimit, "unset keys keep defaults")

	assert.Equal(t, filepath.Join(dir, "tools.yaml"), cfg.Registry.File)
	assert.True(t, cfg.Registry.Watch)

	require.Len(t, cfg.Dependencies, 3)
	assert.True(t, cfg.Dependencies[0].Required)
	assert.Equal(t, ">=2.0", cfg.Dependencies[0].Version)
	assert.Equal(t, ProbeKindEnv, cfg.Dependencies[1].Kind)
	assert.Equal(t, []string{"api-token"}, cfg.Dependencies[2].DependsOn)

	reviewer, ok := cfg.Agent("reviewer")
	require.True(t, ok)
	assert.True(t, reviewer.IsEnabled())
	assert.True(t, reviewer.IsAutoInitialize())
	assert.Equal(t, []string{"quality", "development"}, reviewer.Categories)
	assert.Equal(t, "strict", reviewer.ErrorHandling)
	assert.Equal(t, 20, reviewer.MaxSamples)
	require.Len(t, reviewer.Rules, 1)
	assert.Equal(t, map[string]interface{}{"path": "{{ .file }}"}, reviewer.Rules[0].Arguments)

	writer, ok := cfg.Agent("writer")
	require.True(t, ok)
	assert.False(t, writer.IsEnabled())

	_, ok = cfg.Agent("nobody")
	assert.False(t, ok)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsAddr, cfg.Metrics.Addr)
	assert.Equal(t, TransportStreamableHTTP, cfg.Server.Transport)
}

func TestLoadConfig_AbsoluteRegistryFile(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "tools.json")
	writeConfig(t, dir, "registry:\n  file: "+abs+"\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, cfg.Registry.File)
}

func TestLoadConfig_ParseErrors(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		suggestion string
	}{
		{
			name:       "unknown key",
			content:    "logging:\n  level: info\n  colour: true\n",
			suggestion: "typos",
		},
		{
			name:       "wrong type",
			content:    "client:\n  historyLimit: lots\n",
			suggestion: "value type",
		},
		{
			name:       "broken yaml",
			content:    "logging: [\n",
			suggestion: "indentation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, err := LoadConfig(dir)
			require.Error(t, err)

			var ce *ConfigurationError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "parse", ce.ErrorType)
			assert.Equal(t, filepath.Join(dir, configFileName), ce.FilePath)
			require.NotEmpty(t, ce.Suggestions)
			assert.Contains(t, ce.Suggestions[0], tt.suggestion)
			assert.Contains(t, ce.DetailedError(), "Suggestions:")
		})
	}
}

func TestLoadConfig_LineNumber(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "logging:\n  level: info\n  colour: true\n")

	_, err := LoadConfig(dir)
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 3, ce.LineNumber)
	assert.Contains(t, ce.Error(), ":3:")
}

func TestLoadConfig_ValidationError(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "logging:\n  level: loud\n")

	_, err := LoadConfig(dir)
	require.Error(t, err)

	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "validation", ce.ErrorType)
	assert.True(t, api.IsValidation(err))
	assert.Contains(t, err.Error(), "logging.level")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	disabled := false

	cfg := GetDefaultConfig()
	cfg.Client.CallTimeout = 90 * time.Second
	cfg.Agents = []AgentConfig{{Name: "quiet", Enabled: &disabled, ErrorHandling: "silent"}}
	cfg.Dependencies = []DependencyConfig{{Name: "docker", Kind: ProbeKindBinary}}

	require.NoError(t, SaveConfig(dir, cfg))

	loaded, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestGetDefaultConfigPathOrPanic(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, filepath.Join("/home/tester", ".config", "toolbelt"), GetDefaultConfigPathOrPanic())
}
