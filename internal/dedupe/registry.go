package dedupe

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/callapi-go/callapi/internal/resultshape"
)

// Strategy selects how a registry handles a key collision.
type Strategy string

const (
	StrategyNone   Strategy = "none"
	StrategyCancel Strategy = "cancel"
	StrategyDefer  Strategy = "defer"
)

// Scope selects which registry a call uses.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeLocal  Scope = "local"
)

// Registry holds one in-flight map for the cancel strategy and one
// singleflight.Group for the defer strategy. The zero value is ready to use.
type Registry struct {
	mu      sync.Mutex
	pending map[string]context.CancelCauseFunc

	group singleflight.Group
}

// New returns a fresh, empty Registry — used for each *Client's local scope.
func New() *Registry {
	return &Registry{pending: make(map[string]context.CancelCauseFunc)}
}

// globalRegistry is the single process-wide registry required for
// cross-client cancellation; it is initialized once at module load and is
// never cleared implicitly.
var globalRegistry = New()

// Global returns the process-wide registry shared by every client.
func Global() *Registry { return globalRegistry }

// Cancel registers cancel under key for the "cancel" strategy. If an entry
// is already registered under key, its cancel func is invoked with a stable
// AbortError before it is replaced. Returns true if a prior entry was
// aborted.
func (r *Registry) Cancel(key string, cancel context.CancelCauseFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		r.pending = make(map[string]context.CancelCauseFunc)
	}
	prev, had := r.pending[key]
	if had && prev != nil {
		prev(&resultshape.AbortError{Msg: resultshape.AbortErrorMessage})
	}
	r.pending[key] = cancel
	return had
}

// Release removes key's entry unconditionally, matching the spec's
// unconditional-finally-block removal semantics.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	delete(r.pending, key)
	r.mu.Unlock()
}

// Abort cancels every currently pending cancel-strategy controller with msg
// and empties the registry, for graceful client shutdown.
func (r *Registry) Abort(msg string) {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[string]context.CancelCauseFunc)
	r.mu.Unlock()
	for _, cancel := range pending {
		if cancel != nil {
			cancel(&resultshape.AbortError{Msg: msg})
		}
	}
}

// Defer runs fn under the defer strategy: concurrent callers sharing key
// collapse onto one execution of fn. That execution reads the body once,
// and every caller receives its own Response copy with an independent body
// over the buffered bytes, so each may read the body independently,
// matching the spec's ".clone() the response on resolution" rule.
func (r *Registry) Defer(key string, fn func() (*http.Response, error)) (*http.Response, error, bool) {
	type buffered struct {
		resp *http.Response
		data []byte
	}
	v, err, shared := r.group.Do(key, func() (any, error) {
		resp, err := fn()
		if err != nil || resp == nil || resp.Body == nil {
			return buffered{resp: resp}, err
		}
		data, rerr := io.ReadAll(resp.Body)
		resp.Body.Close()
		return buffered{resp: resp, data: data}, rerr
	})
	if err != nil {
		return nil, err, shared
	}
	b, _ := v.(buffered)
	if b.resp == nil || b.resp.Body == nil {
		return b.resp, nil, shared
	}
	clone := new(http.Response)
	*clone = *b.resp
	clone.Body = io.NopCloser(bytes.NewReader(b.data))
	return clone, nil, shared
}

// CloneResponse buffers resp's body and returns a new *http.Response with
// an independent io.ReadCloser over the same bytes, leaving resp's own body
// readable exactly once more by the caller that owns it.
func CloneResponse(resp *http.Response) (*http.Response, error) {
	if resp == nil || resp.Body == nil {
		return resp, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))

	clone := new(http.Response)
	*clone = *resp
	clone.Body = io.NopCloser(bytes.NewReader(data))
	return clone, nil
}
