package schema

import (
	"strings"
)

// RouteEntry is the set of optional validators attached to one route key.
type RouteEntry struct {
	Data      Validator
	ErrorData Validator
	Body      Validator
	Headers   Validator
	Query     Validator
	Params    Validator
	Method    Validator
}

// DefaultRouteKey is the pseudo-key matching any unmatched route.
const DefaultRouteKey = "@default"

// Config is a schema configuration: a route table plus matching options.
type Config struct {
	Routes map[string]RouteEntry

	// Prefix is stripped from the front of normalizedInitURL before key
	// matching, when present.
	Prefix string
	// BaseURL, when set, is also stripped from the front of
	// normalizedInitURL before matching, for schemas authored against a
	// different base than the active client.
	BaseURL string
	// Strict requires an exact or @default match; otherwise a ValidationError
	// with IssueCause "unknown" is raised.
	Strict bool

	// DisableRuntimeValidationTransform still runs body/headers/params/
	// query/method validators for their throw-behavior, but does not
	// substitute a validator's transformed Value back into the outgoing
	// request.
	DisableRuntimeValidationTransform bool
	// DisableValidationOutputApplication is DisableRuntimeValidationTransform's
	// response-side counterpart: data/errorData validators still run, but
	// their transformed Value is not applied to the result the caller
	// observes.
	DisableValidationOutputApplication bool
}

// RouteKey builds the "[@method]path" key for a method + normalized path,
// applying this config's prefix/baseURL stripping.
func (c *Config) RouteKey(method, normalizedInitURL string) string {
	path := normalizedInitURL
	if c.BaseURL != "" {
		path = strings.TrimPrefix(path, c.BaseURL)
	}
	if c.Prefix != "" {
		path = strings.TrimPrefix(path, c.Prefix)
	}
	if method == "" {
		return path
	}
	return "@" + strings.ToLower(method) + "/" + strings.TrimPrefix(path, "/")
}

// Resolve finds the RouteEntry for method + normalizedInitURL: exact match
// first, then @default. ok is false when neither matched (the caller raises
// a strict-mode ValidationError with IssueCause "unknown" in that case, if
// Strict is set; a non-strict miss is not an error, just "no entry").
func (c *Config) Resolve(method, normalizedInitURL string) (entry RouteEntry, matchedKey string, ok bool) {
	if c == nil || len(c.Routes) == 0 {
		return RouteEntry{}, "", false
	}
	key := c.RouteKey(method, normalizedInitURL)
	if e, found := c.Routes[key]; found {
		return e, key, true
	}
	if e, found := c.Routes[DefaultRouteKey]; found {
		return e, DefaultRouteKey, true
	}
	return RouteEntry{}, "", false
}
