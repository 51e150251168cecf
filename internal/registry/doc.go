// Package registry implements the capability registry: the single store of
// tool descriptors, their metadata and usage statistics.
//
// The registry keeps a category index and a tag index alongside the tool map,
// so that filtering does not need to scan every entry. All state is guarded
// by one sync.RWMutex per instance; independent registries never share state.
//
// Registration is last-write-wins. Registering a tool under a name that is
// already present replaces the descriptor and keeps the previous entry's
// creation time and usage statistics, unless metadata is supplied explicitly.
// This supports reloading a tool catalog without losing its history.
//
// The registry can be exported to and imported from a flat document in JSON,
// YAML or TOML form. Import is destructive: the registry is cleared first and
// handlers bound to the previous tools are not carried over. A Watcher can
// re-import a registry file whenever it changes on disk.
package registry
