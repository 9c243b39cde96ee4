package callapi

import "github.com/callapi-go/callapi/internal/hooks"

// HookEvent names one of the fixed lifecycle hook points.
type HookEvent = hooks.Event

const (
	OnRequest         = hooks.OnRequest
	OnRequestReady    = hooks.OnRequestReady
	OnRequestError    = hooks.OnRequestError
	OnRequestStream   = hooks.OnRequestStream
	OnResponse        = hooks.OnResponse
	OnResponseStream  = hooks.OnResponseStream
	OnResponseError   = hooks.OnResponseError
	OnSuccess         = hooks.OnSuccess
	OnError           = hooks.OnError
	OnValidationError = hooks.OnValidationError
	OnRetry           = hooks.OnRetry
)

// HookFunc is a single hook callback.
type HookFunc = hooks.Func

// HookContext is what every hook invocation observes. BaseConfig, Config,
// and Options carry `any` at the internal-package boundary; Call always
// populates them with the effective Config value (not a pointer) for this
// request, so a type assertion to Config recovers the concrete value.
type HookContext = hooks.Context

// HookSet holds the ordered hook list for every named event.
type HookSet = hooks.Set

// HookOption mutates a HookSet under construction.
type HookOption = hooks.Option

var (
	WithOnRequest         = hooks.WithOnRequest
	WithOnRequestReady    = hooks.WithOnRequestReady
	WithOnRequestError    = hooks.WithOnRequestError
	WithOnRequestStream   = hooks.WithOnRequestStream
	WithOnResponse        = hooks.WithOnResponse
	WithOnResponseStream  = hooks.WithOnResponseStream
	WithOnResponseError   = hooks.WithOnResponseError
	WithOnSuccess         = hooks.WithOnSuccess
	WithOnError           = hooks.WithOnError
	WithOnValidationError = hooks.WithOnValidationError
	WithOnRetry           = hooks.WithOnRetry
	NewHookSet            = hooks.New
)

// HookDispatchMode selects sequential or parallel dispatch.
type HookDispatchMode = hooks.Mode

const (
	HookSequential = hooks.Sequential
	HookParallel   = hooks.Parallel
)
