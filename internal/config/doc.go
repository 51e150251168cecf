// Package config loads the toolbelt configuration.
//
// Configuration lives in a single directory, by default ~/.config/toolbelt,
// which can be overridden with the --config-path flag. The directory holds
// config.yaml and, optionally, the registry document referenced by
// registry.file.
//
// A missing config.yaml is not an error: LoadConfig then returns the result
// of GetDefaultConfig. A present but malformed file is reported as a
// ConfigurationError carrying the file path, the line number when the YAML
// decoder reports one, and suggestions for fixing it.
//
// # Example
//
//	workspace: ~/src/project
//	logging:
//	  level: debug
//	client:
//	  callTimeout: 10s
//	registry:
//	  file: tools.yaml
//	  watch: true
//	dependencies:
//	  - name: git
//	    kind: binary
//	    required: true
//	    version: ">=2.30"
//	agents:
//	  - name: reviewer
//	    categories: [quality, development]
//	    errorHandling: strict
//
// Validate checks a loaded configuration and reports every problem at once
// as api.ValidationErrors.
package config
