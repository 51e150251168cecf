// Package api holds the data model shared by every toolbelt package: tool
// descriptors and their metadata, invocation contexts, request/response
// records, the Handler interface and the error taxonomy.
//
// The package has no dependencies on other internal packages, so the
// registry, client, dependency manager and integration façade can all speak
// the same types without importing each other.
//
// # Tools
//
// A Tool is identified by its Name. Its InputSchema and OutputSchema are
// JSON-Schema-like objects that must declare type "object"; every name in
// Required must appear in Properties. Category is a closed enum used for
// default dispatch; free-form labels go into ToolMetadata.Tags.
//
//	echo := api.Tool{
//	    Name:        "echo",
//	    Description: "Return the input unchanged",
//	    Category:    api.CategoryTesting,
//	    InputSchema: api.ObjectSchema(map[string]interface{}{
//	        "value": map[string]interface{}{"type": "string"},
//	    }, "value"),
//	    Handler: api.HandlerFunc(func(ctx context.Context, p map[string]interface{}, _ *api.Context) (interface{}, error) {
//	        return p, nil
//	    }),
//	}
//
// # Errors
//
// Failures are classified into kinds (see ErrorKind): NotFound, Validation,
// Execution, Connection, RequiredDependencyMissing and DependencyUnavailable.
// Use Kind or the Is* helpers rather than comparing error strings.
package api
