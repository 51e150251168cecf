package integration

import (
	"errors"
	"fmt"
	"strings"

	"toolbelt/internal/api"
)

// ErrorPolicy decides how tool call failures are surfaced.
type ErrorPolicy int

const (
	PolicyGraceful ErrorPolicy = iota
	PolicyStrict
	PolicySilent
)

func (p ErrorPolicy) String() string {
	switch p {
	case PolicyGraceful:
		return "graceful"
	case PolicyStrict:
		return "strict"
	case PolicySilent:
		return "silent"
	default:
		return fmt.Sprintf("ErrorPolicy(%d)", int(p))
	}
}

// ParseErrorPolicy converts a configuration string. The empty string selects
// PolicyGraceful.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "graceful":
		return PolicyGraceful, nil
	case "strict":
		return PolicyStrict, nil
	case "silent":
		return PolicySilent, nil
	default:
		return PolicyGraceful, api.ValidationError{
			Field:   "errorHandling",
			Value:   s,
			Message: "must be one of: graceful, strict, silent",
		}
	}
}

var (
	// ErrDisabled is the cause reported when the façade is switched off.
	ErrDisabled = errors.New("integration is disabled")

	// ErrToolNotAllowed is the cause reported for tools outside the agent's
	// categories and allowlist.
	ErrToolNotAllowed = errors.New("tool is not available to this agent")

	// ErrCapabilityDisabled is the cause reported for capabilities disabled
	// by graceful degradation.
	ErrCapabilityDisabled = errors.New("capability disabled after an earlier failure")
)

// ToolCallError is returned under PolicyStrict.
type ToolCallError struct {
	Agent string
	Tool  string
	Err   error
}

func (e *ToolCallError) Error() string {
	return fmt.Sprintf("agent %s: call to %s failed: %v", e.Agent, e.Tool, e.Err)
}

func (e *ToolCallError) Unwrap() error {
	return e.Err
}
