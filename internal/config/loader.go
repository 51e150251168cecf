package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"toolbelt/pkg/logging"
)

const (
	userConfigDir  = ".config/toolbelt"
	configFileName = "config.yaml"
)

// GetDefaultConfigPathOrPanic returns ~/.config/toolbelt.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// ConfigurationError describes a config.yaml that could not be read or
// parsed.
type ConfigurationError struct {
	FilePath    string   `json:"filePath"`
	ErrorType   string   `json:"errorType"` // io, parse or validation
	Message     string   `json:"message"`
	LineNumber  int      `json:"lineNumber,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`

	Err error `json:"-"`
}

func (ce *ConfigurationError) Error() string {
	if ce.LineNumber > 0 {
		return fmt.Sprintf("%s:%d: %s", ce.FilePath, ce.LineNumber, ce.Message)
	}
	return fmt.Sprintf("%s: %s", ce.FilePath, ce.Message)
}

func (ce *ConfigurationError) Unwrap() error {
	return ce.Err
}

// DetailedError returns a multi-line description including suggestions.
func (ce *ConfigurationError) DetailedError() string {
	parts := []string{
		fmt.Sprintf("Configuration error in %s", ce.FilePath),
		fmt.Sprintf("  Type: %s", ce.ErrorType),
	}
	if ce.LineNumber > 0 {
		parts = append(parts, fmt.Sprintf("  Line: %d", ce.LineNumber))
	}
	parts = append(parts, fmt.Sprintf("  Error: %s", ce.Message))
	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}
	return strings.Join(parts, "\n")
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// LoadConfig loads config.yaml from configPath. Values that are not set in
// the file keep their defaults. A relative registry file is resolved against
// configPath.
func LoadConfig(configPath string) (ToolbeltConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return ToolbeltConfig{}, &ConfigurationError{
			FilePath:  configFilePath,
			ErrorType: "io",
			Message:   err.Error(),
			Err:       err,
		}
	}

	if err := decode(data, &config); err != nil {
		return ToolbeltConfig{}, parseError(configFilePath, err)
	}

	if config.Registry.File != "" && !filepath.IsAbs(config.Registry.File) {
		config.Registry.File = filepath.Join(configPath, config.Registry.File)
	}

	if err := Validate(config); err != nil {
		return ToolbeltConfig{}, &ConfigurationError{
			FilePath:  configFilePath,
			ErrorType: "validation",
			Message:   err.Error(),
			Err:       err,
		}
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// decode rejects unknown keys so that typos do not silently fall back to
// defaults.
func decode(data []byte, config *ToolbeltConfig) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(config)
}

func parseError(path string, err error) *ConfigurationError {
	ce := &ConfigurationError{
		FilePath:  path,
		ErrorType: "parse",
		Message:   err.Error(),
		Err:       err,
	}
	if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
		ce.LineNumber, _ = strconv.Atoi(m[1])
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found in type"):
		ce.Suggestions = append(ce.Suggestions, "Check the key for typos; keys are camelCase, e.g. callTimeout")
	case strings.Contains(msg, "cannot unmarshal"):
		ce.Suggestions = append(ce.Suggestions, "Check the value type; durations are written as 30s or 1m")
	default:
		ce.Suggestions = append(ce.Suggestions, "Check YAML indentation and quoting")
	}
	return ce
}

// SaveConfig writes config to configPath/config.yaml.
func SaveConfig(configPath string, config ToolbeltConfig) error {
	if err := os.MkdirAll(configPath, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	path := filepath.Join(configPath, configFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
