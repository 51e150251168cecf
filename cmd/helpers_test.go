package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag variable to its default. Cobra keeps parsed
// values between Execute calls on the shared command tree.
func resetFlags() {
	configPath = ""
	debug = false
	outputFormat = "table"

	toolsCategory = ""
	toolsPattern = ""
	toolsTag = ""
	callArgs = ""
	callAgent = ""
	callUser = ""
	statsTop = 5
	healthWarmup = false
	exportFormat = ""
	exportOutput = ""
	importFormat = ""
	serveTransport = ""
	serveAddr = ""
	serveMetricsAddr = ""
}

// executeCommand runs the root command with args and returns stdout and
// stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags()
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeConfig creates a configuration directory holding config.yaml. The
// workspace is a separate temporary directory that is returned as well.
func writeConfig(t *testing.T, body string) (dir, workspace string) {
	t.Helper()
	dir = t.TempDir()
	workspace = t.TempDir()
	content := "workspace: " + workspace + "\nlogging:\n  level: error\n" + body
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir, workspace
}
