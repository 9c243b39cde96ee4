// Package pluginrt discovers plugins, runs their setup hooks, and collects
// the hooks, middlewares, schemas, and defaults they contribute.
package pluginrt

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/callapi-go/callapi/internal/hooks"
	"github.com/callapi-go/callapi/internal/middleware"
	"github.com/callapi-go/callapi/internal/schema"
)

// Plugin is one registered plugin. Defaults and Options/Request fields that
// belong to the root package's Config/Request types are carried as `any` so
// this package has no import-cycle dependency on the root package; the
// orchestrator type-asserts Options back to its own concrete type. Defaults
// is returned by CollectDefaults but is not merged into a call's Config by
// the orchestrator.
type Plugin struct {
	ID          string
	Name        string
	Version     string
	Setup       func(ctx context.Context, sc *SetupContext) (*SetupResult, error)
	Hooks       hooks.Set
	Middlewares []middleware.Middleware
	Schema      *schema.Config
	Defaults    any
}

// SetupContext is what a plugin's Setup function observes.
type SetupContext struct {
	InitURL string
	Request *http.Request
	Options any
}

// SetupResult is the partial override a plugin's Setup function may return.
// Nil fields leave the current value unchanged.
type SetupResult struct {
	InitURL *string
	Request *http.Request
	Options any
}

// DuplicatePluginError is returned when two plugins in the same composition
// share an ID.
type DuplicatePluginError struct {
	ID string
}

func (e *DuplicatePluginError) Error() string {
	return fmt.Sprintf("callapi: duplicate plugin id %q", e.ID)
}

// Compose builds the final plugin list: basePlugins, optionally overridden
// wholesale by override(basePlugins) when override is non-nil (the spec's
// "config.plugins is a function" form), then validates there are no
// duplicate IDs. Plugins missing an ID are assigned one via uuid.
func Compose(basePlugins []Plugin, override func(basePlugins []Plugin) []Plugin) ([]Plugin, error) {
	final := basePlugins
	if override != nil {
		final = override(basePlugins)
	}

	seen := make(map[string]bool, len(final))
	out := make([]Plugin, len(final))
	for i, p := range final {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if seen[p.ID] {
			return nil, &DuplicatePluginError{ID: p.ID}
		}
		seen[p.ID] = true
		out[i] = p
	}
	return out, nil
}

// RunSetup invokes each plugin's Setup in registration order, folding each
// returned partial override into the running (initURL, request, options)
// tuple before the next plugin runs.
func RunSetup(ctx context.Context, plugins []Plugin, initURL string, req *http.Request, options any) (string, *http.Request, any, error) {
	for _, p := range plugins {
		if p.Setup == nil {
			continue
		}
		res, err := p.Setup(ctx, &SetupContext{InitURL: initURL, Request: req, Options: options})
		if err != nil {
			return initURL, req, options, err
		}
		if res == nil {
			continue
		}
		if res.InitURL != nil {
			initURL = *res.InitURL
		}
		if res.Request != nil {
			req = res.Request
		}
		if res.Options != nil {
			options = res.Options
		}
	}
	return initURL, req, options, nil
}

// CollectHooks merges every plugin's Hooks in registration order, matching
// the spec's "plugin hooks first, in plugin registration order" rule at the
// hook-dispatcher boundary (this package only concatenates; ordering with
// base/per-request hooks is the hooks package's job).
func CollectHooks(plugins []Plugin) hooks.Set {
	merged := hooks.Set{}
	for _, p := range plugins {
		merged = merged.Append(p.Hooks)
	}
	return merged
}

// CollectMiddlewares returns each plugin's middleware in registration order.
func CollectMiddlewares(plugins []Plugin) []middleware.Middleware {
	var out []middleware.Middleware
	for _, p := range plugins {
		out = append(out, p.Middlewares...)
	}
	return out
}

// CollectSchemas returns each plugin's schema config, lowest-registered
// first, for lowest-priority merging by the caller.
func CollectSchemas(plugins []Plugin) []*schema.Config {
	var out []*schema.Config
	for _, p := range plugins {
		if p.Schema != nil {
			out = append(out, p.Schema)
		}
	}
	return out
}

// CollectDefaults returns each plugin's opaque Defaults value, lowest
// registered first, for the caller to merge at lowest priority.
func CollectDefaults(plugins []Plugin) []any {
	var out []any
	for _, p := range plugins {
		if p.Defaults != nil {
			out = append(out, p.Defaults)
		}
	}
	return out
}
