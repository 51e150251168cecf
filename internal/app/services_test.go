package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolbelt/internal/api"
	"toolbelt/internal/client"
	"toolbelt/internal/config"
	"toolbelt/internal/integration"
	"toolbelt/internal/registry"
)

func TestInitializeServices_Defaults(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Workspace = t.TempDir()

	s, err := InitializeServices(context.Background(), cfg, "1.2.3")
	require.NoError(t, err)

	assert.Equal(t, len(client.BuiltinTools()), s.Registry.Count())
	assert.Empty(t, s.Facades)
	assert.Nil(t, s.Watcher)
	assert.Equal(t, 0, s.Dependencies.HealthReport().Total)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.True(t, s.Client.IsConnected())
	info, ok := s.Client.ServerInfo()
	require.True(t, ok)
	assert.Equal(t, "1.2.3", info.Version)
}

func TestInitializeServices_AgentsAndDependencies(t *testing.T) {
	t.Setenv("TOOLBELT_TEST_TOKEN", "secret")

	cfg := config.GetDefaultConfig()
	cfg.Workspace = t.TempDir()
	cfg.Dependencies = []config.DependencyConfig{
		{Name: "token", Kind: config.ProbeKindEnv, Target: "TOOLBELT_TEST_TOKEN", Required: true},
		{Name: "missing-tool", Kind: config.ProbeKindBinary, Target: "definitely-not-installed-toolbelt-binary"},
	}
	cfg.Agents = []config.AgentConfig{
		{Name: "reviewer", Categories: []string{"system"}, ErrorHandling: "strict"},
		{Name: "writer"},
	}

	s, err := InitializeServices(context.Background(), cfg, "dev")
	require.NoError(t, err)

	assert.Equal(t, []string{"reviewer", "writer"}, s.AgentNames())
	reviewer, ok := s.Facade("reviewer")
	require.True(t, ok)
	assert.Equal(t, integration.PolicyStrict, reviewer.Policy())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	for _, tool := range reviewer.AvailableTools(context.Background()) {
		assert.Equal(t, api.CategorySystem, tool.Category)
	}
	assert.True(t, s.Dependencies.IsAvailable(context.Background(), "token"))
	assert.False(t, s.Dependencies.IsAvailable(context.Background(), "missing-tool"))
}

func TestInitializeServices_RequiredDependencyMissing(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Dependencies = []config.DependencyConfig{
		{Name: "ghost", Kind: config.ProbeKindFile, Target: filepath.Join(t.TempDir(), "absent"), Required: true},
	}

	_, err := InitializeServices(context.Background(), cfg, "dev")
	require.Error(t, err)
	assert.True(t, api.IsRequiredDependencyMissing(err))
}

func TestInitializeServices_RegistryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.yaml")

	seed := registry.New()
	require.NoError(t, seed.RegisterTool(api.Tool{
		Name:        "lint",
		Description: "Lint sources",
		Category:    api.CategoryQuality,
		InputSchema: api.ObjectSchema(nil),
	}, nil, &api.ToolMetadata{Author: "qa", Tags: []string{"ci"}}))
	require.NoError(t, seed.SaveFile(path, ""))

	cfg := config.GetDefaultConfig()
	cfg.Workspace = dir
	cfg.Registry.File = path

	s, err := InitializeServices(context.Background(), cfg, "dev")
	require.NoError(t, err)

	md, ok := s.Registry.GetMetadata("lint")
	require.True(t, ok)
	assert.Equal(t, "qa", md.Author)
	_, ok = s.Registry.GetTool("read_file")
	assert.True(t, ok, "built-in tools are registered after the import")
}

func TestInitializeServices_MissingRegistryFile(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Registry.File = filepath.Join(t.TempDir(), "later.json")
	cfg.Registry.Watch = true

	s, err := InitializeServices(context.Background(), cfg, "dev")
	require.NoError(t, err)
	assert.NotNil(t, s.Watcher)
}

func TestInitializeServices_BrokenRegistryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	cfg := config.GetDefaultConfig()
	cfg.Registry.File = path

	_, err := InitializeServices(context.Background(), cfg, "dev")
	assert.Error(t, err)
}

func TestAfterReloadRestoresBuiltins(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Workspace = t.TempDir()
	s, err := InitializeServices(context.Background(), cfg, "dev")
	require.NoError(t, err)

	called := 0
	s.OnReload(func() { called++ })

	require.NoError(t, s.Registry.Import(&registry.Document{}))
	assert.Equal(t, 0, s.Registry.Count())

	s.afterReload(assert.AnError)
	assert.Equal(t, 0, called, "failed reloads do not run hooks")

	s.afterReload(nil)
	assert.Equal(t, 1, called)
	assert.Equal(t, len(client.BuiltinTools()), s.Registry.Count())
}

func TestDescriptors(t *testing.T) {
	descs, err := Descriptors([]config.DependencyConfig{
		{Name: "git", Required: true, Version: ">=2.0"},
		{Name: "db", Kind: "tcp", Target: "localhost:5432", DependsOn: []string{"git"}},
	})
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, "git", descs[0].Name)
	assert.True(t, descs[0].Required)
	assert.Equal(t, []string{"git"}, descs[1].DependsOn)
	assert.NotNil(t, descs[1].Probe)

	_, err = Descriptors([]config.DependencyConfig{{Name: "x", Kind: "ldap", Target: "t"}})
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))
}

func TestFacadeConfig(t *testing.T) {
	off := false
	got, err := FacadeConfig(config.AgentConfig{
		Name:           "reviewer",
		AutoInitialize: &off,
		Categories:     []string{"Quality", "development"},
		CustomTools:    []string{"deploy"},
		ErrorHandling:  "silent",
		MaxSamples:     10,
		Rules: []config.RuleConfig{
			{Keywords: []string{"lint"}, Tool: "check_quality"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "reviewer", got.Agent)
	assert.True(t, got.Enabled)
	assert.False(t, got.AutoInitialize)
	assert.Equal(t, []api.Category{api.CategoryQuality, api.CategoryDevelopment}, got.Categories)
	assert.Equal(t, integration.PolicySilent, got.ErrorPolicy)
	require.Len(t, got.Rules, 1)
	assert.Equal(t, "check_quality", got.Rules[0].Name, "rule name defaults to the tool")
	assert.Nil(t, got.Rules[0].Arguments)

	noRules, err := FacadeConfig(config.AgentConfig{Name: "plain"})
	require.NoError(t, err)
	assert.Nil(t, noRules.Rules, "nil rules select the defaults")

	_, err = FacadeConfig(config.AgentConfig{Name: "bad", ErrorHandling: "loud"})
	assert.True(t, api.IsValidation(err))

	_, err = FacadeConfig(config.AgentConfig{Name: "bad", Categories: []string{"cooking"}})
	assert.True(t, api.IsValidation(err))
}
