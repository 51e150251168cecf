package config

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"toolbelt/internal/api"
	"toolbelt/pkg/logging"
)

var (
	logFormats       = []string{"text", "json"}
	registryFormats  = []string{"", "json", "yaml", "toml"}
	errorPolicies    = []string{"", "graceful", "strict", "silent"}
	serverTransports = []string{TransportStdio, TransportStreamableHTTP}
)

// Validate checks config and returns every problem found as
// api.ValidationErrors, or nil.
func Validate(config ToolbeltConfig) error {
	var errs api.ValidationErrors

	if _, err := logging.ParseLevel(config.Logging.Level); err != nil {
		errs.Add("logging.level", err.Error(), config.Logging.Level)
	}
	if config.Logging.Format != "" {
		addErr(&errs, api.ValidateOneOf("logging.format", config.Logging.Format, logFormats))
	}

	if config.Client.CallTimeout < 0 {
		errs.Add("client.callTimeout", "must not be negative", config.Client.CallTimeout.String())
	} else if config.Client.CallTimeout > 0 && config.Client.CallTimeout < time.Millisecond {
		errs.Add("client.callTimeout", "must be at least 1ms", config.Client.CallTimeout.String())
	}
	if config.Client.HistoryLimit < 0 {
		errs.Add("client.historyLimit", "must not be negative", config.Client.HistoryLimit)
	}

	addErr(&errs, api.ValidateOneOf("registry.format", config.Registry.Format, registryFormats))
	if config.Registry.Watch && config.Registry.File == "" {
		errs.Add("registry.watch", "requires registry.file")
	}

	if config.Server.Transport != "" {
		addErr(&errs, api.ValidateOneOf("server.transport", config.Server.Transport, serverTransports))
	}

	validateDependencies(&errs, config.Dependencies)
	validateAgents(&errs, config.Agents)

	return errs.Err()
}

func addErr(errs *api.ValidationErrors, err error) {
	if err == nil {
		return
	}
	if ve, ok := err.(api.ValidationError); ok {
		*errs = append(*errs, ve)
		return
	}
	errs.Add("", err.Error())
}

func validateDependencies(errs *api.ValidationErrors, deps []DependencyConfig) {
	declared := make(map[string]bool, len(deps))
	for _, dep := range deps {
		declared[dep.Name] = true
	}

	seen := make(map[string]bool, len(deps))
	for i, dep := range deps {
		field := fmt.Sprintf("dependencies[%d]", i)
		if err := api.ValidateEntityName(dep.Name, "dependency"); err != nil {
			errs.Add(field+".name", err.Error(), dep.Name)
			continue
		}
		field = "dependencies." + dep.Name
		if seen[dep.Name] {
			errs.Add(field, "is declared more than once")
			continue
		}
		seen[dep.Name] = true

		kind := dep.Kind
		if kind == "" {
			kind = ProbeKindBinary
		}
		addErr(errs, api.ValidateOneOf(field+".kind", kind, ProbeKinds))
		if kind != ProbeKindBinary && dep.Target == "" {
			errs.Add(field+".target", fmt.Sprintf("is required for %s probes", kind))
		}

		if dep.Version != "" {
			if _, err := semver.NewConstraint(dep.Version); err != nil {
				errs.Add(field+".version", fmt.Sprintf("invalid constraint: %v", err), dep.Version)
			}
		}
		for _, upstream := range dep.DependsOn {
			if upstream == dep.Name {
				errs.Add(field+".dependsOn", "cannot depend on itself")
			} else if !declared[upstream] {
				errs.Add(field+".dependsOn", fmt.Sprintf("references undeclared dependency %s", upstream), upstream)
			}
		}
	}
}

func validateAgents(errs *api.ValidationErrors, agents []AgentConfig) {
	seen := make(map[string]bool, len(agents))
	for i, agent := range agents {
		field := fmt.Sprintf("agents[%d]", i)
		if err := api.ValidateEntityName(agent.Name, "agent"); err != nil {
			errs.Add(field+".name", err.Error(), agent.Name)
			continue
		}
		field = "agents." + agent.Name
		if seen[agent.Name] {
			errs.Add(field, "is declared more than once")
			continue
		}
		seen[agent.Name] = true

		for _, category := range agent.Categories {
			if category == "" {
				errs.Add(field+".categories", "must not contain empty entries")
				continue
			}
			if _, err := api.ParseCategory(category); err != nil {
				errs.Add(field+".categories", err.Error(), category)
			}
		}
		addErr(errs, api.ValidateOneOf(field+".errorHandling", agent.ErrorHandling, errorPolicies))
		if agent.MaxSamples < 0 {
			errs.Add(field+".maxSamples", "must not be negative", agent.MaxSamples)
		}

		for j, rule := range agent.Rules {
			ruleField := fmt.Sprintf("%s.rules[%d]", field, j)
			if rule.Tool == "" {
				errs.Add(ruleField+".tool", "is required")
			}
			if len(rule.Keywords) == 0 {
				errs.Add(ruleField+".keywords", "must have at least one keyword")
			}
		}
	}
}
