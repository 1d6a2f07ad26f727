// Package middleware implements the onion model middleware chain for the
// RPC runtime's processor stage.
//
// Middleware wraps a transport.Processor to add cross-cutting concerns
// (logging, rate limiting) without modifying the processor itself.
//
// Onion model execution order:
//
//	Chain(A, B, C)(processor)  →  A(B(C(processor)))
//
//	Request:   A.before → B.before → C.before → processor
//	Response:  processor → C.after → B.after → A.after
//
// Each middleware can:
//   - Do pre-processing (before calling next)
//   - Call next(req) to pass to the next layer
//   - Do post-processing (after next returns)
//   - Short-circuit by returning early without calling next (e.g., rate limiting)
package middleware

import "tinyrpc/transport"

// Middleware wraps a processor and returns a new processor layering
// additional behavior around it.
type Middleware[Req, Rep any] func(next transport.Processor[Req, Rep]) transport.Processor[Req, Rep]

// Chain composes multiple middlewares into a single middleware. It builds
// the chain from right to left so the first middleware in the list is the
// outermost layer (executed first on request, last on response).
//
// Example:
//
//	chain := Chain(Logging[Req, Rep](), RateLimit[Req, Rep](10, 20))
//	processor := chain(businessProcessor)
//	// Execution: Logging → RateLimit → businessProcessor → RateLimit → Logging
func Chain[Req, Rep any](middlewares ...Middleware[Req, Rep]) Middleware[Req, Rep] {
	return func(next transport.Processor[Req, Rep]) transport.Processor[Req, Rep] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
