package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCmd(t *testing.T) {
	versionCmd := newVersionCmd()

	assert.Equal(t, "version", versionCmd.Use)
	assert.NotEmpty(t, versionCmd.Short)
	assert.NotEmpty(t, versionCmd.Long)
	assert.NotNil(t, versionCmd.Run)
}

func TestVersionCommandOutput(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	tests := []struct {
		name    string
		version string
		want    string
	}{
		{name: "release", version: "1.2.3-test", want: "toolbelt version 1.2.3-test\n"},
		{name: "empty", version: "", want: "toolbelt version \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.Version = tt.version

			versionCmd := newVersionCmd()
			var buf bytes.Buffer
			versionCmd.SetOut(&buf)
			versionCmd.Run(versionCmd, nil)

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestVersionCommandThroughRoot(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()
	SetVersion("9.9.9")

	stdout, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "toolbelt version 9.9.9\n", stdout)
}
