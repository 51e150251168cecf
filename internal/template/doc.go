// Package template renders templated tool arguments.
//
// Operation rules in the integration façade can carry argument maps whose
// string values are Go templates, for example
//
//	path: "{{ index . \"file\" | default \"README.md\" }}"
//	title: "{{ .operation | title }}"
//
// The sprig function library is available. Referencing a key that is not in
// the data map with a field expression is an error rather than rendering
// "<no value>"; use index with default for optional keys.
package template
