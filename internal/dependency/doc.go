// Package dependency tracks whether the external tools and services that
// capabilities rely on are usable.
//
// Each dependency is declared with a Descriptor naming a Probe. Required
// dependencies are probed when the Manager is constructed, in dependency
// order, and any failure aborts construction with an
// api.RequiredDependencyMissingError. Optional dependencies are probed lazily
// on first access and never cause a panic or a hard failure: callers use
// GetOptional, IsAvailable or a FeatureChecker to degrade gracefully.
//
// # Dependency Graph
//
// Descriptors may depend on each other through DependsOn. The Graph type
// answers dependency and dependent queries and produces a topological order;
// cycles and references to undeclared dependencies are rejected.
//
//	m, err := dependency.NewManager(ctx, []dependency.Descriptor{
//	    {Name: "git", Required: true, Probe: dependency.BinaryProbe{Name: "git"}},
//	    {Name: "docker", Probe: dependency.DialProbe{Address: "localhost:2375"}},
//	})
//	if err != nil {
//	    return err // a required dependency is missing
//	}
//	if m.IsAvailable(ctx, "docker") {
//	    // enable container tools
//	}
//
// # Thread Safety
//
// The Manager is safe for concurrent use. Concurrent resolutions of the same
// dependency share a single probe.
package dependency
