// Package kit holds transport-agnostic service plumbing: the Endpoint
// abstraction with its middleware chain, request-scoped context keys,
// and the MCP tool adapter.
package kit

import "context"

// Endpoint is one service operation in transport-neutral form: a typed
// request in, a typed response out. HTTP handlers and MCP tools both
// decode into an Endpoint.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint, adding cross-cutting behaviour
// (logging, timeout, recovery) without changing the signature.
type Middleware func(next Endpoint) Endpoint

// Chain composes middlewares left-to-right: the first middleware in the
// slice is the outermost wrapper (executed first on the request path).
//
//	chain := Chain(logging, timeout, recovery)
//	wrapped := chain(baseEndpoint)
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
