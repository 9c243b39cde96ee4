package callapi

import (
	"github.com/callapi-go/callapi/internal/middleware"
	"github.com/callapi-go/callapi/internal/pluginrt"
	"github.com/callapi-go/callapi/internal/schema"
)

// Plugin is one registered plugin: a name/version, an optional Setup hook
// that may rewrite the init URL, request, or the call's effective options
// before the rest of the pipeline runs, and the hooks/middleware/schema it
// contributes. Its Defaults value is carried but Call does not apply it.
type Plugin = pluginrt.Plugin

// PluginSetupContext is what a plugin's Setup function observes.
type PluginSetupContext = pluginrt.SetupContext

// PluginSetupResult is the partial override a plugin's Setup function may
// return.
type PluginSetupResult = pluginrt.SetupResult

// DuplicatePluginError is returned when two plugins in the same composition
// share an ID.
type DuplicatePluginError = pluginrt.DuplicatePluginError

// SchemaConfig is a route-keyed table of Standard-Schema-shaped validators.
type SchemaConfig = schema.Config

// SchemaRouteEntry is the set of optional validators attached to one route
// key.
type SchemaRouteEntry = schema.RouteEntry

// Validator is the Go rendition of the Standard Schema vendor contract.
type Validator = schema.Validator

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc = schema.ValidatorFunc

// ValidationResult is what a Validator produces for one value.
type ValidationResult = schema.ValidationResult

// ValidationIssue is a single reported validation problem.
type ValidationIssue = schema.ValidationIssue

// DefaultRouteKey is the pseudo-key matching any unmatched route.
const DefaultRouteKey = schema.DefaultRouteKey

// RoundTripFunc is a single dispatch step: take a request, produce a
// response or an error.
type RoundTripFunc = middleware.RoundTripFunc

// Middleware wraps a RoundTripFunc with additional before/after behavior.
type Middleware = middleware.Middleware

// composePlugins builds the final plugin list and assigns IDs to any
// plugin missing one, rejecting duplicates.
func composePlugins(base []Plugin, override func([]Plugin) []Plugin) ([]Plugin, error) {
	return pluginrt.Compose(base, override)
}
