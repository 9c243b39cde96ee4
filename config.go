package callapi

import (
	"context"
	"net/http"
	"time"

	"github.com/callapi-go/callapi/internal/dedupe"
	"github.com/callapi-go/callapi/internal/retry"
)

// RetryPolicy decides retry eligibility and computes backoff delay.
type RetryPolicy = retry.Policy

// RetryStrategy selects how delay grows across attempts.
type RetryStrategy = retry.Strategy

const (
	RetryLinear      = retry.Linear
	RetryExponential = retry.Exponential
)

// RetryDelayFunc computes the delay before a given (1-based) attempt,
// overriding RetryStrategy entirely when set.
type RetryDelayFunc = retry.DelayFunc

// DefaultRetryMethods lists the idempotent verbs. It is not applied
// automatically: a RetryPolicy with no Methods lets any method retry.
var DefaultRetryMethods = retry.DefaultMethods

// DedupeStrategy selects how a fingerprint collision is handled.
type DedupeStrategy = dedupe.Strategy

const (
	DedupeNone   = dedupe.StrategyNone
	DedupeCancel = dedupe.StrategyCancel
	DedupeDefer  = dedupe.StrategyDefer
)

// DedupeCacheScope selects which registry a call's dedupe key is tracked in.
type DedupeCacheScope = dedupe.Scope

const (
	DedupeScopeGlobal = dedupe.ScopeGlobal
	DedupeScopeLocal  = dedupe.ScopeLocal
)

// ThrowOnError decides, from the call's HookContext, whether a caught error
// should be returned as a Go error (propagated) rather than folded into a
// shaped Result. A nil ThrowOnError never throws.
type ThrowOnError func(*HookContext) bool

// AlwaysThrow returns a ThrowOnError that always evaluates to b.
func AlwaysThrow(b bool) ThrowOnError { return func(*HookContext) bool { return b } }

func (t ThrowOnError) evaluate(hc *HookContext) bool {
	if t == nil {
		return false
	}
	return t(hc)
}

// SkipAutoMerge selects which of a Config's two option slices is taken
// wholesale from the per-call Config instead of shallow-merged onto the
// base Config.
type SkipAutoMerge string

const (
	SkipAutoMergeNone    SkipAutoMerge = "none"
	SkipAutoMergeRequest SkipAutoMerge = "request"
	SkipAutoMergeOptions SkipAutoMerge = "options"
	SkipAutoMergeAll     SkipAutoMerge = "all"
)

func (s SkipAutoMerge) skipsRequest() bool {
	return s == SkipAutoMergeRequest || s == SkipAutoMergeAll
}

func (s SkipAutoMerge) skipsOptions() bool {
	return s == SkipAutoMergeOptions || s == SkipAutoMergeAll
}

// RequestOptions is the per-request slice of Config: the verb, headers,
// body, abort signal, and credentials policy — fields a caller typically
// overrides wholesale per call.
type RequestOptions struct {
	Method      string
	Headers     http.Header
	Body        any // []byte, io.Reader, url.Values, reqbuild.FormData/Blob/ArrayBuffer, struct, or any JSON-marshalable value
	Signal      context.Context
	Credentials string
}

// ExtraOptions is the extra-options slice of Config: everything governing
// how a request is built, dispatched, retried, deduped, and shaped, which a
// caller typically sets once at the client's base config.
type ExtraOptions struct {
	BaseURL          string
	Auth             Auth
	Retry            RetryPolicy
	Hooks            HookSet
	HookDispatchMode HookDispatchMode
	Plugins          []Plugin
	Schema           *SchemaConfig
	ResultMode       ResultMode
	Timeout          time.Duration
	ResponseType     ResponseType
	ResponseParser   func([]byte) (any, error)
	BodySerializer   func(any) ([]byte, string, error)
	DedupeStrategy   DedupeStrategy
	DedupeKey        string
	DedupeCacheScope DedupeCacheScope
	// DedupeHeaderKeys names the headers folded into the default dedupe
	// fingerprint when DedupeKey is empty — an expansion of the spec's
	// "selected headers" language, which leaves the selection caller-defined.
	DedupeHeaderKeys []string
	CloneResponse    bool
	ThrowOnError     ThrowOnError
	Meta             map[string]any
	SkipAutoMergeFor SkipAutoMerge
	Params           any // map[string]string | map[string]any | []string | []any
	Query            map[string]any
	// Middlewares are this layer's middleware chain contribution: the
	// per-call Config's Middlewares and the client's base Config's
	// Middlewares compose as "per-request → base → plugins[0] → … →
	// plugins[n-1] → terminal" (§4.7's three composition layers).
	Middlewares []Middleware
	// DefaultHTTPErrorMessage computes the HTTPError message when the
	// response body carries no "message" field of its own, evaluated
	// before falling back to the response's status text.
	DefaultHTTPErrorMessage func(*http.Response, any) string
	// ForceFullDrainRequest pre-reads the request body so its OnRequestStream
	// progress events can report an exact total upfront instead of tracking
	// a running max, when BaseURL's caller knows the body fits in memory.
	ForceFullDrainRequest bool
}

// Config is one overlay layer: a client's base config, or a per-call
// config. The two slices above merge shallowly unless SkipAutoMergeFor
// opts a slice out.
type Config struct {
	RequestOptions
	ExtraOptions
}

// InitContext is what a BaseConfigFunc observes: the first request's raw
// inputs, before any merge or plugin setup has run.
type InitContext struct {
	InitURL string
	Config  Config
}

// mergeConfigs builds the effective Config for one call from the client's
// base Config and the per-call override, honoring per-call
// SkipAutoMergeFor. This is the single point SkipAutoMergeFor is consulted
// — see DESIGN.md's Open Question (a) resolution.
func mergeConfigs(base, override Config) Config {
	skip := override.SkipAutoMergeFor

	effective := base
	if skip.skipsRequest() {
		effective.RequestOptions = override.RequestOptions
	} else {
		effective.RequestOptions = mergeRequestOptions(base.RequestOptions, override.RequestOptions)
	}
	if skip.skipsOptions() {
		effective.ExtraOptions = override.ExtraOptions
	} else {
		effective.ExtraOptions = mergeExtraOptions(base.ExtraOptions, override.ExtraOptions)
	}
	return effective
}

func mergeRequestOptions(base, o RequestOptions) RequestOptions {
	out := base
	if o.Method != "" {
		out.Method = o.Method
	}
	if o.Headers != nil {
		out.Headers = mergeHTTPHeaders(base.Headers, o.Headers)
	}
	if o.Body != nil {
		out.Body = o.Body
	}
	if o.Signal != nil {
		out.Signal = o.Signal
	}
	if o.Credentials != "" {
		out.Credentials = o.Credentials
	}
	return out
}

func mergeHTTPHeaders(base, overlay http.Header) http.Header {
	out := make(http.Header, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func mergeExtraOptions(base, o ExtraOptions) ExtraOptions {
	out := base
	if o.BaseURL != "" {
		out.BaseURL = o.BaseURL
	}
	if o.Auth != nil {
		out.Auth = o.Auth
	}
	if !isZeroRetryPolicy(o.Retry) {
		out.Retry = o.Retry
	}
	out.Hooks = base.Hooks.Append(o.Hooks)
	if o.HookDispatchMode != "" {
		out.HookDispatchMode = o.HookDispatchMode
	}
	if o.Plugins != nil {
		out.Plugins = append(append([]Plugin{}, base.Plugins...), o.Plugins...)
	}
	if o.Schema != nil {
		out.Schema = o.Schema
	}
	if o.ResultMode != "" {
		out.ResultMode = o.ResultMode
	}
	if o.Timeout != 0 {
		out.Timeout = o.Timeout
	}
	if o.ResponseType != "" {
		out.ResponseType = o.ResponseType
	}
	if o.ResponseParser != nil {
		out.ResponseParser = o.ResponseParser
	}
	if o.BodySerializer != nil {
		out.BodySerializer = o.BodySerializer
	}
	if o.DefaultHTTPErrorMessage != nil {
		out.DefaultHTTPErrorMessage = o.DefaultHTTPErrorMessage
	}
	if o.DedupeStrategy != "" {
		out.DedupeStrategy = o.DedupeStrategy
	}
	if o.DedupeKey != "" {
		out.DedupeKey = o.DedupeKey
	}
	if o.DedupeCacheScope != "" {
		out.DedupeCacheScope = o.DedupeCacheScope
	}
	if o.DedupeHeaderKeys != nil {
		out.DedupeHeaderKeys = o.DedupeHeaderKeys
	}
	if o.CloneResponse {
		out.CloneResponse = o.CloneResponse
	}
	if o.ThrowOnError != nil {
		out.ThrowOnError = o.ThrowOnError
	}
	if o.Meta != nil {
		merged := make(map[string]any, len(base.Meta)+len(o.Meta))
		for k, v := range base.Meta {
			merged[k] = v
		}
		for k, v := range o.Meta {
			merged[k] = v
		}
		out.Meta = merged
	}
	if o.Params != nil {
		out.Params = o.Params
	}
	if o.Query != nil {
		merged := make(map[string]any, len(base.Query)+len(o.Query))
		for k, v := range base.Query {
			merged[k] = v
		}
		for k, v := range o.Query {
			merged[k] = v
		}
		out.Query = merged
	}
	out.ForceFullDrainRequest = base.ForceFullDrainRequest || o.ForceFullDrainRequest
	// o is the per-call override ("per-request"); base is the client's base
	// Config. Putting o's middlewares first here is what makes the single
	// merged slice already read "per-request → base" outermost-first for
	// middleware.Chain — see Call's Chain call site for the rest of the
	// ordering (plugins innermost of those two).
	if o.Middlewares != nil {
		out.Middlewares = append(append([]Middleware{}, o.Middlewares...), base.Middlewares...)
	}
	// SkipAutoMergeFor itself is never propagated onto the effective config
	// — it only governs this one merge call.
	out.SkipAutoMergeFor = SkipAutoMergeNone
	return out
}

// isZeroRetryPolicy reports whether p carries no override-worthy fields.
// RetryPolicy holds slices and funcs, so it is not comparable with == —
// this checks each field a caller could plausibly set instead.
func isZeroRetryPolicy(p RetryPolicy) bool {
	return p.Attempts == 0 &&
		len(p.StatusCodes) == 0 &&
		len(p.Methods) == 0 &&
		p.Delay == 0 &&
		p.DelayFunc == nil &&
		p.MaxDelay == 0 &&
		p.Strategy == "" &&
		p.Condition == nil
}

func defaultExtraOptions() ExtraOptions {
	return ExtraOptions{
		ResultMode:       ResultAll,
		DedupeStrategy:   DedupeNone,
		DedupeCacheScope: DedupeScopeLocal,
		HookDispatchMode: HookSequential,
		ResponseType:     ResponseJSON,
	}
}
