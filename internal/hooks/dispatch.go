// Package hooks implements the lifecycle hook registry and its two dispatch
// modes, following the ordered-slice-per-named-event shape used throughout
// the wider ecosystem's event-dispatch libraries.
package hooks

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Event names the fixed set of lifecycle hooks.
type Event string

const (
	OnRequest          Event = "onRequest"
	OnRequestReady     Event = "onRequestReady"
	OnRequestError     Event = "onRequestError"
	OnRequestStream    Event = "onRequestStream"
	OnResponse         Event = "onResponse"
	OnResponseStream   Event = "onResponseStream"
	OnResponseError    Event = "onResponseError"
	OnSuccess          Event = "onSuccess"
	OnError            Event = "onError"
	OnValidationError  Event = "onValidationError"
	OnRetry            Event = "onRetry"
)

// Context is what every hook invocation observes. BaseConfig/Config/Options
// are carried as `any` so this package has no dependency on the root
// package's Config type (which itself depends on this package's Set type).
type Context struct {
	BaseConfig        any
	Config            any
	Options           any
	Request           *http.Request
	Response          *http.Response
	Data              any
	Error             error
	Event             Event
	RetryAttemptCount int
}

// Func is a single hook callback.
type Func func(ctx context.Context, hc *Context) error

// Set holds the ordered hook list for every named event. The zero value is
// an empty, usable Set.
type Set struct {
	OnRequest         []Func
	OnRequestReady    []Func
	OnRequestError    []Func
	OnRequestStream   []Func
	OnResponse        []Func
	OnResponseStream  []Func
	OnResponseError   []Func
	OnSuccess         []Func
	OnError           []Func
	OnValidationError []Func
	OnRetry           []Func
}

// Option mutates a Set under construction, the functional-options shape
// used to register one hook per named event.
type Option func(*Set)

func WithOnRequest(fn Func) Option { return func(s *Set) { s.OnRequest = append(s.OnRequest, fn) } }
func WithOnRequestReady(fn Func) Option {
	return func(s *Set) { s.OnRequestReady = append(s.OnRequestReady, fn) }
}
func WithOnRequestError(fn Func) Option {
	return func(s *Set) { s.OnRequestError = append(s.OnRequestError, fn) }
}
func WithOnRequestStream(fn Func) Option {
	return func(s *Set) { s.OnRequestStream = append(s.OnRequestStream, fn) }
}
func WithOnResponse(fn Func) Option {
	return func(s *Set) { s.OnResponse = append(s.OnResponse, fn) }
}
func WithOnResponseStream(fn Func) Option {
	return func(s *Set) { s.OnResponseStream = append(s.OnResponseStream, fn) }
}
func WithOnResponseError(fn Func) Option {
	return func(s *Set) { s.OnResponseError = append(s.OnResponseError, fn) }
}
func WithOnSuccess(fn Func) Option { return func(s *Set) { s.OnSuccess = append(s.OnSuccess, fn) } }
func WithOnError(fn Func) Option   { return func(s *Set) { s.OnError = append(s.OnError, fn) } }
func WithOnValidationError(fn Func) Option {
	return func(s *Set) { s.OnValidationError = append(s.OnValidationError, fn) }
}
func WithOnRetry(fn Func) Option { return func(s *Set) { s.OnRetry = append(s.OnRetry, fn) } }

// New builds a Set from functional options, in the order given.
func New(opts ...Option) Set {
	var s Set
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Append returns a new Set with other's hooks appended after s's, per
// event — used to fold plugin hooks (registered first) with base/
// per-request hooks (registered after) while preserving registration order.
func (s Set) Append(other Set) Set {
	return Set{
		OnRequest:         append(append([]Func{}, s.OnRequest...), other.OnRequest...),
		OnRequestReady:    append(append([]Func{}, s.OnRequestReady...), other.OnRequestReady...),
		OnRequestError:    append(append([]Func{}, s.OnRequestError...), other.OnRequestError...),
		OnRequestStream:   append(append([]Func{}, s.OnRequestStream...), other.OnRequestStream...),
		OnResponse:        append(append([]Func{}, s.OnResponse...), other.OnResponse...),
		OnResponseStream:  append(append([]Func{}, s.OnResponseStream...), other.OnResponseStream...),
		OnResponseError:   append(append([]Func{}, s.OnResponseError...), other.OnResponseError...),
		OnSuccess:         append(append([]Func{}, s.OnSuccess...), other.OnSuccess...),
		OnError:           append(append([]Func{}, s.OnError...), other.OnError...),
		OnValidationError: append(append([]Func{}, s.OnValidationError...), other.OnValidationError...),
		OnRetry:           append(append([]Func{}, s.OnRetry...), other.OnRetry...),
	}
}

// ForEvent returns the ordered hook list for a named event.
func (s Set) ForEvent(event Event) []Func {
	switch event {
	case OnRequest:
		return s.OnRequest
	case OnRequestReady:
		return s.OnRequestReady
	case OnRequestError:
		return s.OnRequestError
	case OnRequestStream:
		return s.OnRequestStream
	case OnResponse:
		return s.OnResponse
	case OnResponseStream:
		return s.OnResponseStream
	case OnResponseError:
		return s.OnResponseError
	case OnSuccess:
		return s.OnSuccess
	case OnError:
		return s.OnError
	case OnValidationError:
		return s.OnValidationError
	case OnRetry:
		return s.OnRetry
	default:
		return nil
	}
}

// Ordered combines plugin, base, and per-request hooks for one event in the
// spec's fixed order: plugin hooks first (registration order), then the
// base-config hook, then the per-request hook.
func Ordered(plugin, base, perRequest Set, event Event) []Func {
	out := append([]Func{}, plugin.ForEvent(event)...)
	out = append(out, base.ForEvent(event)...)
	out = append(out, perRequest.ForEvent(event)...)
	return out
}

// Mode selects sequential or parallel dispatch.
type Mode string

const (
	Sequential Mode = "sequential"
	Parallel   Mode = "parallel"
)

// Dispatch runs fns against hc under mode. Sequential mode awaits each hook
// in order and halts at the first error. Parallel mode launches every hook
// concurrently under an errgroup (so no hook can stall the others) but
// still reports the error from the lowest-registration-index hook that
// failed, not whichever happened to finish first — deterministic ordering
// of simultaneous rejections, per the open design question this resolves.
func Dispatch(ctx context.Context, mode Mode, fns []Func, hc *Context) error {
	if len(fns) == 0 {
		return nil
	}
	switch mode {
	case Parallel:
		return dispatchParallel(ctx, fns, hc)
	default:
		for _, fn := range fns {
			if err := fn(ctx, hc); err != nil {
				return err
			}
		}
		return nil
	}
}

func dispatchParallel(ctx context.Context, fns []Func, hc *Context) error {
	errs := make([]error, len(fns))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			err := fn(gctx, hc)
			if err != nil {
				mu.Lock()
				errs[i] = err
				mu.Unlock()
			}
			return err
		})
	}
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
