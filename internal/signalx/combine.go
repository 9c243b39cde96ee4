// Package signalx composes the effective abort signal for one call from the
// user-supplied context, an optional timeout context, and the internal
// dedupe controller's context — the Go rendition of the spec's
// AbortSignal/AbortController combinator.
package signalx

import (
	"context"
	"fmt"
	"time"

	"github.com/callapi-go/callapi/internal/resultshape"
)

// CombineContexts returns a context that is canceled as soon as any
// non-nil input is canceled, with the cancellation cause taken from
// whichever input triggered first. Each input is watched by one bounded
// goroutine that exits the moment its input or the combined context is
// done, so no goroutine outlives the call.
func CombineContexts(ctxs ...context.Context) (context.Context, context.CancelFunc) {
	live := make([]context.Context, 0, len(ctxs))
	for _, c := range ctxs {
		if c != nil {
			live = append(live, c)
		}
	}
	if len(live) == 0 {
		return context.WithCancel(context.Background())
	}

	combined, cancel := context.WithCancelCause(context.Background())

	for _, c := range live {
		if err := c.Err(); err != nil {
			cancel(causeOf(c, err))
			return combined, func() { cancel(nil) }
		}
	}

	for _, c := range live {
		go func(c context.Context) {
			select {
			case <-c.Done():
				cancel(causeOf(c, c.Err()))
			case <-combined.Done():
			}
		}(c)
	}

	return combined, func() { cancel(nil) }
}

func causeOf(c context.Context, err error) error {
	if cause := context.Cause(c); cause != nil && cause != context.Canceled && cause != context.DeadlineExceeded {
		return cause
	}
	if err == context.DeadlineExceeded {
		return &resultshape.TimeoutError{Msg: "Request timed out"}
	}
	return &resultshape.AbortError{Msg: resultshape.AbortErrorMessage}
}

// NewTimeoutContext derives a context.WithCancelCause context that a timer
// cancels after d with a TimeoutError cause, so it classifies
// deterministically as a TimeoutError. If d is zero or negative, no timeout
// is applied and the parent is returned as-is.
func NewTimeoutContext(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return parent, func() {}
	}
	ctx, cancel := context.WithCancelCause(parent)
	timer := time.AfterFunc(d, func() {
		cancel(&resultshape.TimeoutError{Msg: fmt.Sprintf("Request timed out after %dms", d.Milliseconds())})
	})
	return ctx, func() {
		timer.Stop()
		cancel(nil)
	}
}
