// Package callapi is a typed HTTP client core: URL resolution, header and
// body building, combined abort signals, Standard-Schema-shaped validation,
// request dedupe, a plugin runtime, a middleware chain, lifecycle hooks,
// retry with backoff, and shaped results over the standard library's
// net/http.
//
// The engine itself lives in internal/ packages, one per concern; this
// package wires them together behind Client and Call, and re-exports the
// types callers need (Auth, Plugin, HookSet, Result, the error taxonomy) so
// a caller never imports an internal package directly.
package callapi
