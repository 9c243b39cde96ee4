// Package urlresolve is deliberately permissive about parameter encoding:
// values substituted into ":name"/"{name}" placeholders are inserted
// literally, never passed through url.PathEscape. This is a documented
// compatibility policy, not an oversight — callers that need an encoded
// segment must pre-encode the value themselves. A future version may add an
// opt-in encode-on-substitute mode; this package does not implement one.
package urlresolve
