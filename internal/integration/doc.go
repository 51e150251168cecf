// Package integration implements the per-agent integration façade.
//
// A Facade composes the invocation client, the registry and optionally the
// dependency manager for one agent. It restricts the agent to the tools of
// its allowed categories plus an explicit allowlist, applies the agent's
// error policy to every failed call, samples call latency and keeps a log of
// inter-agent communication.
//
// # Error Policy
//
// Failures are surfaced according to ErrorPolicy:
//
//   - PolicyGraceful (default): the failure is logged, the failing capability
//     is disabled for this agent and the call returns (nil, nil). Disabled
//     capabilities are re-enabled with EnableCapability.
//   - PolicyStrict: the failure is returned as a *ToolCallError.
//   - PolicySilent: the failure is ignored and the call returns (nil, nil).
//
// # Enhanced Operations
//
// EnhancedOperation maps a free-form operation onto tools using keyword
// rules, calls every matching tool available to the agent and folds their
// results. Rule arguments may be templates rendered with the operation data.
package integration
