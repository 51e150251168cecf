// Package client implements the invocation client: it creates execution
// contexts, validates parameters and dispatches tool calls to handlers.
//
// The client does not keep its own tool map. Tools are stored in the shared
// registry.Registry, which is also where usage statistics are recorded.
//
// # Dispatch
//
// A call is dispatched to the handler bound to the tool when there is one.
// Otherwise the handler registered for the tool's category is used. The
// system category defaults to a filesystem handler rooted at the workspace;
// every other category defaults to a handler that fails with
// api.ErrNotImplemented until a real integration is bound with
// SetCategoryHandler.
//
// # Failures
//
// CallTool never returns an error. Unknown tools, invalid parameters, handler
// errors, panics and timeouts are all reported as a failed api.Response whose
// ErrorKind tells them apart.
package client
