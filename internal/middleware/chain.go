// Package middleware provides the outer HTTP middleware wrapped
// around the whole server: request ids, panic recovery, metrics, and
// request logging. Policy enforcement happens inside the pipeline
// package; this layer only observes.
package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware in the order given. The first middleware
// in the list is the outermost (runs first on request, last on response).
//
//	chain(handler, requestid, recover, logging)
//	// Request order:  requestid → recover → logging → handler
//	// Response order: handler → logging → recover → requestid
func Chain(h http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
