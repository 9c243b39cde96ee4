package callapi

import (
	"net/http"

	"github.com/callapi-go/callapi/internal/dedupe"
	"github.com/callapi-go/callapi/internal/logging"
)

// Doer is the interface Client dispatches requests through. *http.Client
// satisfies it; tests substitute a fake.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// BaseConfigFunc builds a client's base Config from the first request's
// raw inputs, the Go rendition of the spec's "base config... possibly a
// function of the first request context".
type BaseConfigFunc func(ctx *InitContext) Config

// Client is a configured entry point for Call. The zero Client is not
// usable — construct one with NewClient.
type Client struct {
	doer            Doer
	baseConfig      Config
	baseConfigFunc  BaseConfigFunc
	logger          logging.Logger
	localRegistry   *dedupe.Registry
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithDoer overrides the Doer used to dispatch requests. Defaults to
// http.DefaultClient.
func WithDoer(d Doer) ClientOption {
	return func(c *Client) { c.doer = d }
}

// WithBaseConfig sets the client's fixed base Config.
func WithBaseConfig(cfg Config) ClientOption {
	return func(c *Client) { c.baseConfig = cfg }
}

// WithBaseConfigFunc sets a function that derives the base Config from the
// first call's InitContext instead of a fixed value.
func WithBaseConfigFunc(fn BaseConfigFunc) ClientOption {
	return func(c *Client) { c.baseConfigFunc = fn }
}

// WithLogger overrides the client's diagnostic logger. Defaults to a
// discarding logger.
func WithLogger(l logging.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a Client from the given options.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		doer:          http.DefaultClient,
		baseConfig:    Config{ExtraOptions: defaultExtraOptions()},
		logger:        logging.Noop(),
		localRegistry: dedupe.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resolveBaseConfig returns the client's base Config for initURL, invoking
// baseConfigFunc (once per call, matching the spec's "possibly a function
// of the first request context" — nothing here caches across calls, since
// each call's InitContext can differ) when set.
func (c *Client) resolveBaseConfig(initURL string, firstCallConfig Config) Config {
	if c.baseConfigFunc == nil {
		return c.baseConfig
	}
	return c.baseConfigFunc(&InitContext{InitURL: initURL, Config: firstCallConfig})
}

func (c *Client) registryFor(scope DedupeCacheScope) *dedupe.Registry {
	if scope == DedupeScopeGlobal {
		return dedupe.Global()
	}
	return c.localRegistry
}

// Close drains the client's local dedupe registry, aborting any in-flight
// cancel-strategy controllers with the stable abort message so callers can
// shut down without leaking pending requests.
func (c *Client) Close() {
	c.localRegistry.Abort(AbortErrorMessage)
}
