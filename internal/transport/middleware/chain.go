package middleware

import "net/http"

// Middleware wraps an http.Handler with cross-cutting behavior.
type Middleware func(http.Handler) http.Handler

// Chain folds several middleware into one, outermost first: the first
// argument sees the request before any of the others. The router is wrapped
// once at startup with Chain(RequestID(), Logger(...), Recovery(...), ...).
func Chain(mws ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
