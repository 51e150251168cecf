package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolbelt/internal/registry"
)

func TestExport_Stdout(t *testing.T) {
	dir, _ := writeConfig(t, "")

	stdout, _, err := executeCommand(t, "export", "--config-path", dir, "--format", "yaml")
	require.NoError(t, err)

	doc, err := registry.Unmarshal([]byte(stdout), registry.FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, doc.Tools, "read_file")
	assert.Contains(t, doc.Tools, "query_data")
}

func TestExport_File(t *testing.T) {
	dir, _ := writeConfig(t, "")
	target := filepath.Join(t.TempDir(), "tools.toml")

	_, stderr, err := executeCommand(t, "export", "--config-path", dir, "--output", target)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Exported")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	doc, err := registry.Unmarshal(data, registry.FormatTOML)
	require.NoError(t, err)
	assert.Contains(t, doc.Tools, "file_exists")
}

func TestExport_InvalidFormat(t *testing.T) {
	dir, _ := writeConfig(t, "")

	_, _, err := executeCommand(t, "export", "--config-path", dir, "--format", "csv")
	assert.Error(t, err)
}

func TestImport(t *testing.T) {
	dir, _ := writeConfig(t, "registry:\n  file: registry.json\n")
	source := filepath.Join(t.TempDir(), "lint.yaml")
	writeRegistryFile(t, source)

	stdout, _, err := executeCommand(t, "import", source, "--config-path", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Imported 1 tools")

	reg := registry.New()
	require.NoError(t, reg.LoadFile(filepath.Join(dir, "registry.json"), ""))
	assert.Equal(t, 1, reg.Count())
	_, ok := reg.GetTool("lint")
	assert.True(t, ok)

	// The imported tool is served next to the built-in tools.
	stdout, _, err = executeCommand(t, "tools", "list", "--config-path", dir, "-o", "json")
	require.NoError(t, err)
	names := toolNames(t, stdout)
	assert.Contains(t, names, "lint")
	assert.Contains(t, names, "read_file")
}

func TestImport_NoRegistryFile(t *testing.T) {
	dir, _ := writeConfig(t, "")
	source := filepath.Join(t.TempDir(), "lint.json")
	writeRegistryFile(t, source)

	_, _, err := executeCommand(t, "import", source, "--config-path", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry.file is not configured")
}

func TestImport_MissingSource(t *testing.T) {
	dir, _ := writeConfig(t, "registry:\n  file: registry.json\n")

	_, _, err := executeCommand(t, "import", filepath.Join(dir, "absent.json"), "--config-path", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSelectFormat(t *testing.T) {
	f, err := selectFormat("", "")
	require.NoError(t, err)
	assert.Equal(t, registry.FormatJSON, f)

	f, err = selectFormat("", "tools.yml")
	require.NoError(t, err)
	assert.Equal(t, registry.FormatYAML, f)

	f, err = selectFormat("toml", "tools.json")
	require.NoError(t, err)
	assert.Equal(t, registry.FormatTOML, f)

	_, err = selectFormat("ini", "")
	assert.Error(t, err)
}
