package callapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type echoPayload struct {
	Value string `json:"value"`
}

func newEchoServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// S1: a simple GET round-trips through the full pipeline and decodes JSON.
func TestCallSimpleGET(t *testing.T) {
	srv := newEchoServer(t, http.StatusOK, `{"value":"ok"}`)
	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{BaseURL: srv.URL}}))

	res, err := Call[echoPayload, any](context.Background(), client, "/anything", Config{})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if res.Error != nil {
		t.Fatalf("Result.Error = %v, want nil", res.Error)
	}
	if res.Data == nil || res.Data.Value != "ok" {
		t.Fatalf("Result.Data = %+v, want {Value: ok}", res.Data)
	}
}

// S2: a POST with a JSON body reaches the server with the expected payload
// and Content-Type, and the decoded response is returned.
func TestCallPOSTWithJSONBody(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"value":"created"}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{BaseURL: srv.URL}}))
	res, err := Call[echoPayload, any](context.Background(), client, "/items", Config{
		RequestOptions: RequestOptions{Method: http.MethodPost, Body: map[string]any{"value": "created"}},
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if res.Data == nil || res.Data.Value != "created" {
		t.Fatalf("Result.Data = %+v, want {Value: created}", res.Data)
	}
	if gotContentType != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", gotContentType)
	}
	var sent map[string]any
	if err := json.Unmarshal(gotBody, &sent); err != nil {
		t.Fatalf("server received invalid JSON body: %v", err)
	}
	if sent["value"] != "created" {
		t.Fatalf("server received body %v, want value=created", sent)
	}
}

// S3: ResultMode "all" folds an HTTP error into Result.Error/ErrorData
// rather than returning a Go error, and exactly one of Data/Error is set.
func TestCallHTTPErrorFoldsIntoResultAll(t *testing.T) {
	srv := newEchoServer(t, http.StatusBadRequest, `{"value":"bad"}`)
	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{BaseURL: srv.URL}}))

	res, err := Call[echoPayload, echoPayload](context.Background(), client, "/anything", Config{})
	if err != nil {
		t.Fatalf("Call() error = %v, want nil under ResultAll", err)
	}
	if res.Error == nil {
		t.Fatalf("Result.Error = nil, want a classified HTTP error")
	}
	if res.Data != nil {
		t.Fatalf("Result.Data = %+v, want nil alongside a non-nil Error", res.Data)
	}
	httpErr, ok := res.Error.(*HTTPError)
	if !ok {
		t.Fatalf("Result.Error type = %T, want *HTTPError", res.Error)
	}
	if httpErr.StatusCode() != http.StatusBadRequest {
		t.Fatalf("StatusCode() = %d, want %d", httpErr.StatusCode(), http.StatusBadRequest)
	}
	if res.ErrorData == nil || res.ErrorData.Value != "bad" {
		t.Fatalf("Result.ErrorData = %+v, want {Value: bad}", res.ErrorData)
	}
}

// S4: ResultAllWithException returns the classified error as a real Go
// error instead of folding it into the Result.
func TestCallThrowsUnderAllWithException(t *testing.T) {
	srv := newEchoServer(t, http.StatusInternalServerError, `{"value":"boom"}`)
	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{
		BaseURL:    srv.URL,
		ResultMode: ResultAllWithException,
	}}))

	_, err := Call[echoPayload, echoPayload](context.Background(), client, "/anything", Config{})
	if err == nil {
		t.Fatalf("Call() error = nil, want a thrown HTTPError under AllWithException")
	}
	if _, ok := err.(*HTTPError); !ok {
		t.Fatalf("error type = %T, want *HTTPError", err)
	}
}

// S5: per-call ThrowOnError overrides a non-throwing ResultMode.
func TestCallThrowOnErrorOverride(t *testing.T) {
	srv := newEchoServer(t, http.StatusTooManyRequests, `{"value":"throttled"}`)
	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{
		BaseURL:      srv.URL,
		ResultMode:   ResultAll,
		ThrowOnError: AlwaysThrow(true),
	}}))

	_, err := Call[echoPayload, echoPayload](context.Background(), client, "/anything", Config{})
	if err == nil {
		t.Fatalf("Call() error = nil, want ThrowOnError to force propagation")
	}
}

// S6: request headers merge, with a per-call header overriding a base one,
// and auth applying an Authorization header.
func TestCallHeaderMergeAndAuth(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(WithBaseConfig(Config{
		RequestOptions: RequestOptions{Headers: http.Header{"X-Base": {"base"}, "X-Shared": {"base-value"}}},
		ExtraOptions:   ExtraOptions{BaseURL: srv.URL, Auth: ShorthandBearer("tok")},
	}))

	_, err := Call[echoPayload, any](context.Background(), client, "/anything", Config{
		RequestOptions: RequestOptions{Headers: http.Header{"X-Shared": {"override"}}},
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if gotHeaders.Get("X-Base") != "base" {
		t.Fatalf("X-Base = %q, want base", gotHeaders.Get("X-Base"))
	}
	if gotHeaders.Get("X-Shared") != "override" {
		t.Fatalf("X-Shared = %q, want override", gotHeaders.Get("X-Shared"))
	}
	if gotHeaders.Get("Authorization") != "Bearer tok" {
		t.Fatalf("Authorization = %q, want Bearer tok", gotHeaders.Get("Authorization"))
	}
}

// S7: a schema Validator rejecting the request body surfaces as a
// ValidationError without the server ever being hit, and the same
// onValidationError/onError hooks a post-dispatch failure would get still
// fire for this pre-dispatch one.
func TestCallValidationRejectsBeforeDispatch(t *testing.T) {
	var serverHit int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&serverHit, 1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	rejectBody := ValidatorFunc(func(v any) (any, error) {
		return nil, errors.New("body required")
	})
	schemaCfg := &SchemaConfig{Routes: map[string]SchemaRouteEntry{
		DefaultRouteKey: {Body: rejectBody},
	}}

	var sawValidationError, sawError int32
	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{
		BaseURL: srv.URL,
		Schema:  schemaCfg,
		Hooks: NewHookSet(
			WithOnValidationError(func(ctx context.Context, hc *HookContext) error {
				atomic.AddInt32(&sawValidationError, 1)
				return nil
			}),
			WithOnError(func(ctx context.Context, hc *HookContext) error {
				atomic.AddInt32(&sawError, 1)
				return nil
			}),
		),
	}}))
	res, err := Call[echoPayload, any](context.Background(), client, "/anything", Config{
		RequestOptions: RequestOptions{Method: http.MethodPost, Body: map[string]any{"value": "x"}},
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if res.Error == nil {
		t.Fatalf("Result.Error = nil, want a ValidationError")
	}
	if _, ok := res.Error.(*ValidationError); !ok {
		t.Fatalf("Result.Error type = %T, want *ValidationError", res.Error)
	}
	if atomic.LoadInt32(&serverHit) != 0 {
		t.Fatalf("server was hit %d times, want 0 (validation should short-circuit dispatch)", serverHit)
	}
	if atomic.LoadInt32(&sawValidationError) != 1 {
		t.Fatalf("onValidationError fired %d times, want 1", sawValidationError)
	}
	if atomic.LoadInt32(&sawError) != 1 {
		t.Fatalf("onError fired %d times, want 1", sawError)
	}
}

// Strict schema mode rejects a request whose route matches neither an exact
// key nor @default, even though no validator was ever configured for it.
func TestCallStrictSchemaRejectsUnknownRoute(t *testing.T) {
	var serverHit int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&serverHit, 1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	schemaCfg := &SchemaConfig{
		Strict: true,
		Routes: map[string]SchemaRouteEntry{
			"@get/known": {},
		},
	}
	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{BaseURL: srv.URL, Schema: schemaCfg}}))

	res, err := Call[echoPayload, any](context.Background(), client, "/unknown", Config{})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	valErr, ok := res.Error.(*ValidationError)
	if !ok {
		t.Fatalf("Result.Error type = %T, want *ValidationError", res.Error)
	}
	if valErr.IssueCause != "unknown" {
		t.Fatalf("IssueCause = %q, want %q", valErr.IssueCause, "unknown")
	}
	if atomic.LoadInt32(&serverHit) != 0 {
		t.Fatalf("server was hit %d times, want 0 (strict miss should short-circuit dispatch)", serverHit)
	}
}

// A request-side validator's transformed Value reaches the outgoing body by
// default, and is withheld when DisableRuntimeValidationTransform is set.
func TestCallBodyValidatorTransformAppliesToOutgoingRequest(t *testing.T) {
	uppercase := ValidatorFunc(func(v any) (any, error) {
		return map[string]any{"value": "TRANSFORMED"}, nil
	})

	run := func(t *testing.T, disableTransform bool) string {
		t.Helper()
		var gotBody []byte
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotBody, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"value":"ok"}`))
		}))
		t.Cleanup(srv.Close)

		schemaCfg := &SchemaConfig{
			DisableRuntimeValidationTransform: disableTransform,
			Routes: map[string]SchemaRouteEntry{
				DefaultRouteKey: {Body: uppercase},
			},
		}
		client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{BaseURL: srv.URL, Schema: schemaCfg}}))
		_, err := Call[echoPayload, any](context.Background(), client, "/anything", Config{
			RequestOptions: RequestOptions{Method: http.MethodPost, Body: map[string]any{"value": "original"}},
		})
		if err != nil {
			t.Fatalf("Call() error = %v", err)
		}
		return string(gotBody)
	}

	if got := run(t, false); got != `{"value":"TRANSFORMED"}` {
		t.Fatalf("body = %s, want transformed value applied", got)
	}
	if got := run(t, true); got != `{"value":"original"}` {
		t.Fatalf("body = %s, want original value preserved under DisableRuntimeValidationTransform", got)
	}
}

// A response-side data validator's transformed Value reaches Result.Data by
// default, and is withheld when DisableValidationOutputApplication is set.
func TestCallDataValidatorTransformAppliesToResult(t *testing.T) {
	uppercase := ValidatorFunc(func(v any) (any, error) {
		return echoPayload{Value: "TRANSFORMED"}, nil
	})

	run := func(t *testing.T, disableOutput bool) string {
		t.Helper()
		srv := newEchoServer(t, http.StatusOK, `{"value":"original"}`)
		schemaCfg := &SchemaConfig{
			DisableValidationOutputApplication: disableOutput,
			Routes: map[string]SchemaRouteEntry{
				DefaultRouteKey: {Data: uppercase},
			},
		}
		client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{BaseURL: srv.URL, Schema: schemaCfg}}))
		res, err := Call[echoPayload, any](context.Background(), client, "/anything", Config{})
		if err != nil {
			t.Fatalf("Call() error = %v", err)
		}
		if res.Data == nil {
			t.Fatalf("Result.Data = nil")
		}
		return res.Data.Value
	}

	if got := run(t, false); got != "TRANSFORMED" {
		t.Fatalf("Data.Value = %q, want TRANSFORMED", got)
	}
	if got := run(t, true); got != "original" {
		t.Fatalf("Data.Value = %q, want original under DisableValidationOutputApplication", got)
	}
}

// ResultFetchAPI bypasses data parsing entirely and invokes no data-schema
// validator, returning just the raw response.
func TestCallFetchAPIBypassesDataValidation(t *testing.T) {
	srv := newEchoServer(t, http.StatusOK, `{"value":"ok"}`)
	var validatorCalls int32
	dataValidator := ValidatorFunc(func(v any) (any, error) {
		atomic.AddInt32(&validatorCalls, 1)
		return v, nil
	})
	schemaCfg := &SchemaConfig{Routes: map[string]SchemaRouteEntry{
		DefaultRouteKey: {Data: dataValidator},
	}}

	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{
		BaseURL:    srv.URL,
		Schema:     schemaCfg,
		ResultMode: ResultFetchAPI,
	}}))
	res, err := Call[echoPayload, any](context.Background(), client, "/anything", Config{})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if res.Data != nil {
		t.Fatalf("Result.Data = %+v, want nil under fetchApi", res.Data)
	}
	if res.Response == nil {
		t.Fatalf("Result.Response = nil, want the raw response under fetchApi")
	}
	if atomic.LoadInt32(&validatorCalls) != 0 {
		t.Fatalf("data validator invoked %d times, want 0 under fetchApi", validatorCalls)
	}
}

// Middleware composes per-request, then base, then plugin, outermost-first.
func TestCallMiddlewareLayerOrdering(t *testing.T) {
	srv := newEchoServer(t, http.StatusOK, `{"value":"ok"}`)
	var order []string
	var mu sync.Mutex
	record := func(name string) Middleware {
		return func(next RoundTripFunc) RoundTripFunc {
			return func(req *http.Request) (*http.Response, error) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return next(req)
			}
		}
	}

	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{
		BaseURL:     srv.URL,
		Middlewares: []Middleware{record("base")},
		Plugins: []Plugin{{
			ID:          "order-plugin",
			Middlewares: []Middleware{record("plugin")},
		}},
	}}))

	_, err := Call[echoPayload, any](context.Background(), client, "/anything", Config{
		ExtraOptions: ExtraOptions{Middlewares: []Middleware{record("per-request")}},
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	want := []string{"per-request", "base", "plugin"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

// Testable property: dedupe strategy "cancel" aborts the in-flight call when
// a second call with the same key starts; the newer call succeeds and the
// superseded caller observes a stable abort message in its Result.
func TestDedupeCancelAbortsSuperseded(t *testing.T) {
	release := make(chan struct{})
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path == "/first" {
			<-release
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{
		BaseURL:        srv.URL,
		DedupeStrategy: DedupeCancel,
		DedupeKey:      "shared-key",
	}}))

	firstDone := make(chan error, 1)
	go func() {
		res, err := Call[echoPayload, any](context.Background(), client, "/first", Config{})
		if err != nil {
			t.Errorf("first Call() error = %v, want nil under ResultAll", err)
		}
		firstDone <- res.Error
	}()

	time.Sleep(50 * time.Millisecond)

	secondRes, secondErr := Call[echoPayload, any](context.Background(), client, "/second", Config{})
	if secondErr != nil {
		t.Fatalf("second Call() error = %v", secondErr)
	}
	if secondRes.Error != nil {
		t.Fatalf("second Result.Error = %v, want nil", secondRes.Error)
	}

	firstErr := <-firstDone
	if firstErr == nil {
		t.Fatalf("first Result.Error = nil, want an abort error")
	}
	abortErr, ok := firstErr.(*AbortError)
	if !ok {
		t.Fatalf("first Result.Error type = %T, want *AbortError", firstErr)
	}
	if abortErr.Msg != AbortErrorMessage {
		t.Fatalf("AbortError.Msg = %q, want %q", abortErr.Msg, AbortErrorMessage)
	}
}

// Testable property: dedupe strategy "defer" collapses concurrent identical
// calls onto one dispatch; every caller observes equivalent decoded data.
func TestDedupeDeferSharesOneDispatch(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"value":"shared"}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{
		BaseURL:        srv.URL,
		DedupeStrategy: DedupeDefer,
		DedupeKey:      "same-key",
	}}))

	const n = 5
	var wg sync.WaitGroup
	results := make([]Result[echoPayload, any], n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Call[echoPayload, any](context.Background(), client, "/shared", Config{})
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("server hits = %d, want 1", got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("results[%d] error = %v", i, errs[i])
		}
		if results[i].Data == nil || results[i].Data.Value != "shared" {
			t.Fatalf("results[%d].Data = %+v, want {Value: shared}", i, results[i].Data)
		}
	}
}

// Retry: a transient 503 followed by a 200 succeeds after exactly one retry.
func TestCallRetriesOnEligibleStatus(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"value":"retry-me"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{
		BaseURL: srv.URL,
		Retry: RetryPolicy{
			Attempts:    1,
			StatusCodes: []int{http.StatusServiceUnavailable},
			Delay:       1 * time.Millisecond,
		},
	}}))

	res, err := Call[echoPayload, any](context.Background(), client, "/flaky", Config{})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if res.Error != nil {
		t.Fatalf("Result.Error = %v, want nil after retry succeeds", res.Error)
	}
	if res.Data == nil || res.Data.Value != "ok" {
		t.Fatalf("Result.Data = %+v, want {Value: ok}", res.Data)
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Fatalf("server saw %d attempts, want 2", got)
	}
}

// Hooks: onRequest/onSuccess fire exactly once in order for a successful call.
func TestCallHooksFireInOrder(t *testing.T) {
	srv := newEchoServer(t, http.StatusOK, `{"value":"ok"}`)
	var order []string
	var mu sync.Mutex
	record := func(name string) HookFunc {
		return func(ctx context.Context, hc *HookContext) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{
		BaseURL: srv.URL,
		Hooks: NewHookSet(
			WithOnRequest(record("onRequest")),
			WithOnSuccess(record("onSuccess")),
		),
	}}))

	_, err := Call[echoPayload, any](context.Background(), client, "/anything", Config{})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(order) != 2 || order[0] != "onRequest" || order[1] != "onSuccess" {
		t.Fatalf("hook order = %v, want [onRequest onSuccess]", order)
	}
}

// Client.Close aborts a pending local-scope cancel-strategy request.
func TestClientCloseAbortsPending(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client := NewClient(WithBaseConfig(Config{ExtraOptions: ExtraOptions{
		BaseURL:        srv.URL,
		DedupeStrategy: DedupeCancel,
		DedupeKey:      "closing-key",
	}}))

	done := make(chan error, 1)
	go func() {
		res, err := Call[echoPayload, any](context.Background(), client, "/pending", Config{})
		if err != nil {
			t.Errorf("Call() error = %v, want nil under ResultAll", err)
		}
		done <- res.Error
	}()

	time.Sleep(50 * time.Millisecond)
	client.Close()

	err := <-done
	abortErr, ok := err.(*AbortError)
	if !ok {
		t.Fatalf("error type = %T, want *AbortError", err)
	}
	if abortErr.Msg != AbortErrorMessage {
		t.Fatalf("AbortError.Msg = %q, want %q", abortErr.Msg, AbortErrorMessage)
	}
}
