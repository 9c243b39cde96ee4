// Package middleware composes the per-request, base, and plugin middleware
// chain around the terminal dispatch call, in the net/http RoundTripper
// wrapping idiom.
package middleware

import "net/http"

// RoundTripFunc is a single dispatch step: take a request, produce a
// response or an error.
type RoundTripFunc func(*http.Request) (*http.Response, error)

// Middleware wraps a RoundTripFunc with additional before/after behavior. A
// middleware that returns a Response without invoking next short-circuits
// the chain: everything inward of it, including the terminal dispatch, is
// skipped.
type Middleware func(next RoundTripFunc) RoundTripFunc

// Chain composes mws around terminal, outermost-first: mws[0] is the
// outermost wrapper (runs first on the way in, last on the way out),
// mws[len-1] is innermost, wrapping terminal directly. This is exactly
// "per-request → base → plugins[0] → … → plugins[n-1] → terminal".
func Chain(terminal RoundTripFunc, mws ...Middleware) RoundTripFunc {
	rt := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}
