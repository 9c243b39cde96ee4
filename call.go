package callapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/callapi-go/callapi/internal/dedupe"
	"github.com/callapi-go/callapi/internal/hooks"
	"github.com/callapi-go/callapi/internal/logging"
	"github.com/callapi-go/callapi/internal/middleware"
	"github.com/callapi-go/callapi/internal/pluginrt"
	"github.com/callapi-go/callapi/internal/reqbuild"
	"github.com/callapi-go/callapi/internal/resultshape"
	"github.com/callapi-go/callapi/internal/retry"
	"github.com/callapi-go/callapi/internal/schema"
	"github.com/callapi-go/callapi/internal/signalx"
	"github.com/callapi-go/callapi/internal/streamprogress"
	"github.com/callapi-go/callapi/internal/urlresolve"
)

// Call executes one request through c's pipeline: merge config, run plugin
// setup, resolve the URL, build headers/body, validate per the matched
// schema route, dedupe, dispatch through the middleware chain, parse and
// validate the response, and shape the result per cfg.ResultMode. TData and
// TErrorData are the success and error payload types; use `any` for either
// when the shape is not known statically.
//
// A non-nil error return means the effective ResultMode (or ThrowOnError)
// demanded the error propagate directly rather than fold into the returned
// Result — callers using "all"-family modes should check Result.Error
// instead and treat a non-nil function error as unreachable for those modes.
func Call[TData, TErrorData any](ctx context.Context, c *Client, initURL string, cfg Config) (Result[TData, TErrorData], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	base := c.resolveBaseConfig(initURL, cfg)
	effective := mergeConfigs(base, cfg)

	plugins, err := composePlugins(effective.Plugins, nil)
	if err != nil {
		return shapeError[TData, TErrorData](effective, nil, err)
	}
	pluginHookSet := pluginrt.CollectHooks(plugins)
	pluginMiddlewares := pluginrt.CollectMiddlewares(plugins)
	pluginSchemas := pluginrt.CollectSchemas(plugins)
	c.logger.Debugf("composed %d plugin(s) for %s", len(plugins), initURL)

	prelimReq := preliminaryRequest(ctx, initURL, effective.Method)
	resolvedInitURL, setupReq, setupOptions, err := pluginrt.RunSetup(ctx, plugins, initURL, prelimReq, &effective)
	if err != nil {
		return shapeError[TData, TErrorData](effective, nil, err)
	}
	if withOptions, ok := setupOptions.(*Config); ok && withOptions != nil {
		effective = *withOptions
	}
	if setupReq != nil && setupReq != prelimReq {
		// A plugin's Setup replaced the request wholesale: fold its
		// method/URL/headers back onto the config the rest of the pipeline
		// builds from, rather than silently discarding the override.
		if setupReq.Method != "" {
			effective.Method = setupReq.Method
		}
		if setupReq.URL != nil {
			resolvedInitURL = setupReq.URL.String()
		}
		if setupReq.Header != nil {
			effective.Headers = mergeHTTPHeaders(effective.Headers, setupReq.Header)
		}
	}

	for attempt := 0; ; attempt++ {
		res, thrownErr, retryDelay, shouldRetry := attemptOnce[TData, TErrorData](
			ctx, c, resolvedInitURL, effective, pluginHookSet, pluginMiddlewares, pluginSchemas, attempt,
		)
		if !shouldRetry {
			return res, thrownErr
		}
		timer := time.NewTimer(retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return shapeError[TData, TErrorData](effective, nil, resultshape.Classify(ctx.Err()))
		case <-timer.C:
		}
	}
}

// preliminaryRequest builds the *http.Request a plugin's Setup observes
// before the pipeline's own URL resolution runs. A plugin wanting to inspect
// or replace it works against this best-effort draft; failure to construct
// one (e.g. an initURL that isn't parseable on its own, before param
// substitution) just means plugins see a nil request, same as before this
// was wired in.
func preliminaryRequest(ctx context.Context, initURL, configuredMethod string) *http.Request {
	method := configuredMethod
	if method == "" {
		if prefixed, _ := urlresolve.StripMethodPrefix(initURL); prefixed != "" {
			method = prefixed
		}
	}
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, initURL, nil)
	if err != nil {
		return nil
	}
	return req
}

// attemptOnce runs exactly one request attempt: build, dedupe-guard,
// dispatch, parse, and shape. When shouldRetry is true, Call sleeps
// retryDelay and calls attemptOnce again with attempt+1; result and
// thrownErr are meaningless in that case.
func attemptOnce[TData, TErrorData any](
	ctx context.Context,
	c *Client,
	initURL string,
	effective Config,
	pluginHookSet hooks.Set,
	pluginMiddlewares []middleware.Middleware,
	pluginSchemas []*schema.Config,
	attempt int,
) (result Result[TData, TErrorData], thrownErr error, retryDelay time.Duration, shouldRetry bool) {
	hc := &hooks.Context{
		BaseConfig: effective,
		Config:     effective,
		Options:    effective,
	}

	var method string
	fail := func(err error) {
		result, thrownErr, retryDelay, shouldRetry = handleClassifiedError[TData, TErrorData](
			ctx, effective, pluginHookSet, hc, attempt, method, err, c.logger,
		)
	}

	resolved, err := urlresolve.Resolve(effective.BaseURL, initURL, effective.Params, effective.Query)
	if err != nil {
		fail(err)
		return
	}

	method = resolved.Method
	if method == "" {
		method = effective.Method
	}
	if method == "" {
		method = http.MethodGet
	}

	route, _, matchedCfg, rerr := resolveSchemaRoute(effective.Schema, pluginSchemas, method, resolved.NormalizedInitURL)
	if rerr != nil {
		fail(rerr)
		return
	}
	reqTransformDisabled := requestTransformDisabled(matchedCfg)

	if methodVal, verr := validateAgainst(ctx, route.Method, method, "method", nil, reqTransformDisabled); verr != nil {
		fail(verr)
		return
	} else if s, ok := methodVal.(string); ok && s != "" {
		method = s
	}

	paramsVal, verr := validateAgainst(ctx, route.Params, effective.Params, "params", nil, reqTransformDisabled)
	if verr != nil {
		fail(verr)
		return
	}
	queryVal, verr := validateAgainst(ctx, route.Query, effective.Query, "query", nil, reqTransformDisabled)
	if verr != nil {
		fail(verr)
		return
	}
	if route.Params != nil || route.Query != nil {
		effective.Params = paramsVal
		if m, ok := queryVal.(map[string]any); ok {
			effective.Query = m
		}
		resolved, err = urlresolve.Resolve(effective.BaseURL, initURL, effective.Params, effective.Query)
		if err != nil {
			fail(err)
			return
		}
	}

	bodyForBuild, verr := validateAgainst(ctx, route.Body, effective.Body, "body", nil, reqTransformDisabled)
	if verr != nil {
		fail(verr)
		return
	}

	built, err := reqbuild.Build(bodyForBuild, serializerOf(effective))
	if err != nil {
		fail(err)
		return
	}

	headers := reqbuild.MergeHeaders(make(http.Header), effective.Headers)
	if err := reqbuild.ApplyAuth(ctx, headers, effective.Auth); err != nil {
		fail(err)
		return
	}
	reqbuild.ApplyContentType(headers, built)

	if headersVal, verr := validateAgainst(ctx, route.Headers, headers, "headers", nil, reqTransformDisabled); verr != nil {
		fail(verr)
		return
	} else if h, ok := headersVal.(http.Header); ok {
		headers = h
	}

	bodyBytes := peekBody(built.Reader)

	timeoutCtx, cancelTimeout := signalx.NewTimeoutContext(ctx, effective.Timeout)
	defer cancelTimeout()
	combined, cancelCombined := signalx.CombineContexts(timeoutCtx, effective.Signal)
	defer cancelCombined()

	dedupeKey := effective.DedupeKey
	if dedupeKey == "" && effective.DedupeStrategy != DedupeNone {
		dedupeKey = dedupe.Fingerprint(resolved.FullURL, method, bodyBytes, headers, effective.DedupeHeaderKeys)
	}
	registry := c.registryFor(effective.DedupeCacheScope)
	if dedupeKey != "" {
		c.logger.Debugf("dedupe key=%s strategy=%s", dedupeKey, effective.DedupeStrategy)
	}

	reqCtx := combined
	releaseDedupe := func() {}
	if effective.DedupeStrategy == DedupeCancel {
		cancelCtx, cancelFn := context.WithCancelCause(combined)
		registry.Cancel(dedupeKey, cancelFn)
		reqCtx = cancelCtx
		releaseDedupe = func() { registry.Release(dedupeKey) }
	}

	failDispatched := func(err error) {
		result, thrownErr, retryDelay, shouldRetry = handleClassifiedError[TData, TErrorData](
			reqCtx, effective, pluginHookSet, hc, attempt, method, err, c.logger,
		)
	}

	dispatch := func() (*http.Response, error) {
		bodyReader := built.Reader
		if bodyReader != nil {
			progressReader, perr := streamprogress.NewRequestReader(
				bodyReader, int64(len(bodyBytes)), effective.ForceFullDrainRequest,
				requestProgressHook(effective, reqCtx, hc),
			)
			if perr != nil {
				return nil, perr
			}
			bodyReader = progressReader
		}

		req, rerr := http.NewRequestWithContext(reqCtx, method, resolved.FullURL, bodyReader)
		if rerr != nil {
			return nil, rerr
		}
		req.Header = headers
		hc.Request = req

		if err := dispatchHooks(reqCtx, effective, pluginHookSet, hooks.OnRequest, hc); err != nil {
			return nil, err
		}

		terminal := func(r *http.Request) (*http.Response, error) { return c.doer.Do(r) }
		allMiddlewares := append(append([]middleware.Middleware{}, effective.Middlewares...), pluginMiddlewares...)
		resp, derr := middleware.Chain(terminal, allMiddlewares...)(req)
		if derr != nil {
			return nil, derr
		}

		hc.Response = resp
		if err := dispatchHooks(reqCtx, effective, pluginHookSet, hooks.OnRequestReady, hc); err != nil {
			resp.Body.Close()
			return nil, err
		}
		return resp, nil
	}

	var resp *http.Response
	var dispatchErr error
	var sharedClone bool
	if effective.DedupeStrategy == DedupeDefer {
		resp, dispatchErr, sharedClone = registry.Defer(dedupeKey, dispatch)
	} else {
		resp, dispatchErr = dispatch()
	}
	releaseDedupe()

	if dispatchErr != nil {
		failDispatched(classifyDispatchErr(reqCtx, dispatchErr))
		return
	}

	if effective.CloneResponse && !sharedClone {
		cloned, cerr := dedupe.CloneResponse(resp)
		if cerr != nil {
			failDispatched(cerr)
			return
		}
		resp = cloned
	}

	if resp.Body != nil {
		resp.Body = streamprogress.WrapResponseBody(resp.Body, resp.ContentLength, responseProgressHook(effective, reqCtx, hc))
	}

	if err := resultshape.DecompressIfNeeded(resp); err != nil {
		failDispatched(err)
		return
	}

	hc.Response = resp
	if err := dispatchHooks(reqCtx, effective, pluginHookSet, hooks.OnResponse, hc); err != nil {
		failDispatched(err)
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleHTTPError[TData, TErrorData](reqCtx, effective, resp, route, matchedCfg, pluginHookSet, hc, attempt, method, c.logger)
	}

	if effective.ResultMode == ResultFetchAPI {
		// Testable Property #4: fetchApi invokes no data-/errorData-schema
		// validator. Body/header validators above already ran; this mode
		// just skips parsing and the data validator below.
		if err := dispatchHooks(reqCtx, effective, pluginHookSet, hooks.OnSuccess, hc); err != nil {
			failDispatched(err)
			return
		}
		result = Result[TData, TErrorData]{Response: resp}
		return
	}

	data, perr := parseResponseBody[TData](resp, effective)
	if perr != nil {
		failDispatched(perr)
		return
	}

	outTransformDisabled := outputTransformDisabled(matchedCfg)
	dataVal, verr := validateAgainst(ctx, route.Data, data, "data", resp, outTransformDisabled)
	if verr != nil {
		failDispatched(verr)
		return
	}
	if typed, ok := dataVal.(TData); ok {
		data = typed
	}

	hc.Data = data
	if err := dispatchHooks(reqCtx, effective, pluginHookSet, hooks.OnSuccess, hc); err != nil {
		failDispatched(err)
		return
	}

	result = shapeSuccess[TData, TErrorData](data, resp)
	return
}

// handleHTTPError runs the non-2xx branch: parse and validate errorData
// (skipped entirely under ResultFetchAPI), build the HTTPError, and route it
// through handleClassifiedError for hook dispatch and retry consultation.
func handleHTTPError[TData, TErrorData any](
	ctx context.Context,
	effective Config,
	resp *http.Response,
	route schema.RouteEntry,
	matchedCfg *schema.Config,
	pluginHookSet hooks.Set,
	hc *hooks.Context,
	attempt int,
	method string,
	logger logging.Logger,
) (result Result[TData, TErrorData], thrownErr error, retryDelay time.Duration, shouldRetry bool) {
	var errorDataAny any
	if effective.ResultMode != ResultFetchAPI {
		errData, perr := parseResponseBody[TErrorData](resp, effective)
		if perr == nil {
			errorDataAny = errData
		}

		errorDataVal, verr := validateAgainst(ctx, route.ErrorData, errorDataAny, "errorData", resp, outputTransformDisabled(matchedCfg))
		if verr != nil {
			result, thrownErr, retryDelay, shouldRetry = handleClassifiedError[TData, TErrorData](ctx, effective, pluginHookSet, hc, attempt, method, verr, logger)
			return
		}
		errorDataAny = errorDataVal
	}

	httpErr := resultshape.BuildHTTPError(resp, errorDataAny, effective.DefaultHTTPErrorMessage)
	result, thrownErr, retryDelay, shouldRetry = handleClassifiedError[TData, TErrorData](ctx, effective, pluginHookSet, hc, attempt, method, httpErr, logger)
	return
}

// handleClassifiedError is the single catch path every pre- and
// post-dispatch error in attemptOnce/handleHTTPError funnels through:
// classify, dispatch the event-appropriate error hook, always dispatch
// onError, then consult retry eligibility before falling back to shaping the
// final Result. Unifying this path is what makes pre-dispatch validation
// failures (params/query/body/headers/method, schema-strict misses) behave
// identically to post-dispatch data/errorData failures.
func handleClassifiedError[TData, TErrorData any](
	ctx context.Context,
	effective Config,
	pluginHookSet hooks.Set,
	hc *hooks.Context,
	attempt int,
	method string,
	err error,
	logger logging.Logger,
) (result Result[TData, TErrorData], thrownErr error, retryDelay time.Duration, shouldRetry bool) {
	classified := resultshape.Classify(err)
	hc.Error = classified

	switch classified.(type) {
	case *resultshape.ValidationError:
		_ = dispatchHooks(ctx, effective, pluginHookSet, hooks.OnValidationError, hc)
	case *resultshape.HTTPError:
		hc.Data = nil
		_ = dispatchHooks(ctx, effective, pluginHookSet, hooks.OnResponseError, hc)
	default:
		_ = dispatchHooks(ctx, effective, pluginHookSet, hooks.OnRequestError, hc)
	}
	_ = dispatchHooks(ctx, effective, pluginHookSet, hooks.OnError, hc)

	in := retryInputFromErr(ctx, attempt, method, classified)
	if eligible, rerr := effective.Retry.Eligible(ctx, in); rerr == nil && eligible {
		hc.RetryAttemptCount = attempt + 1
		_ = dispatchHooks(ctx, effective, pluginHookSet, hooks.OnRetry, hc)
		logger.Debugf("retrying attempt=%d method=%s after %v", attempt+1, method, classified)
		retryDelay, shouldRetry = effective.Retry.DelayFor(attempt+1), true
		return
	}

	logger.Warnf("request failed method=%s: %v", method, classified)
	result, thrownErr = shapeError[TData, TErrorData](effective, hc, classified)
	if thrownErr == nil {
		if httpErr, ok := classified.(*resultshape.HTTPError); ok {
			typedErrData, _ := httpErr.ErrorData.(TErrorData)
			result.ErrorData = &typedErrData
			result.Response = httpErr.Response
		}
	}
	return
}

// classifyDispatchErr classifies a dispatch failure, preferring reqCtx's
// cancellation cause over the raw error when reqCtx is already done: the
// stdlib http client surfaces only a generic "context canceled"/"context
// deadline exceeded" wrapper, which would otherwise bury the real cause — a
// dedupe-cancel AbortError, or a TimeoutError from signalx's timeout
// context — behind a GenericError.
func classifyDispatchErr(reqCtx context.Context, err error) error {
	if cause := context.Cause(reqCtx); cause != nil && cause != context.Canceled && cause != context.DeadlineExceeded {
		return resultshape.Classify(cause)
	}
	return resultshape.Classify(err)
}

func retryInputFromErr(ctx context.Context, attempt int, method string, err error) retry.EligibilityInput {
	in := retry.EligibilityInput{
		SignalAborted: ctx.Err() != nil,
		AttemptCount:  attempt,
		Method:        method,
	}
	if httpErr, ok := err.(*resultshape.HTTPError); ok {
		in.IsHTTPError = true
		in.HTTPStatus = httpErr.StatusCode()
	}
	return in
}

// resolveSchemaRoute resolves method+normalizedInitURL against the primary
// schema first, then each plugin schema in registration order. A miss
// against every schema is only an error when the schema that should have
// matched (primary if configured, else the first registered plugin schema)
// has Strict set — matching route.go's documented contract.
func resolveSchemaRoute(primary *SchemaConfig, pluginSchemas []*schema.Config, method, normalizedInitURL string) (schema.RouteEntry, string, *schema.Config, error) {
	if primary != nil {
		if entry, key, ok := primary.Resolve(method, normalizedInitURL); ok {
			return entry, key, primary, nil
		}
	}
	for _, s := range pluginSchemas {
		if s == nil {
			continue
		}
		if entry, key, ok := s.Resolve(method, normalizedInitURL); ok {
			return entry, key, s, nil
		}
	}

	strictCfg := primary
	if strictCfg == nil {
		for _, s := range pluginSchemas {
			if s != nil {
				strictCfg = s
				break
			}
		}
	}
	if strictCfg != nil && strictCfg.Strict {
		return schema.RouteEntry{}, "", strictCfg, &resultshape.ValidationError{
			IssueCause: "unknown",
			Msg:        "no schema route matched @" + strings.ToLower(method) + "/" + strings.TrimPrefix(normalizedInitURL, "/"),
		}
	}
	return schema.RouteEntry{}, "", nil, nil
}

func requestTransformDisabled(cfg *schema.Config) bool {
	return cfg != nil && cfg.DisableRuntimeValidationTransform
}

func outputTransformDisabled(cfg *schema.Config) bool {
	return cfg != nil && cfg.DisableValidationOutputApplication
}

// validateAgainst runs v against value when v is non-nil, returning a
// *resultshape.ValidationError on failure. On success it returns the
// validator's transformed Value, unless disableTransform is set or the
// validator left Value unset, in which case the original value passes
// through untouched.
func validateAgainst(ctx context.Context, v schema.Validator, value any, cause string, resp *http.Response, disableTransform bool) (any, error) {
	if v == nil {
		return value, nil
	}
	result, err := v.Validate(ctx, value)
	if err != nil {
		return value, &resultshape.ValidationError{IssueCause: cause, Response: resp, Msg: err.Error()}
	}
	if result.Failed() {
		issues := make([]resultshape.Issue, len(result.Issues))
		for i, issue := range result.Issues {
			issues[i] = resultshape.Issue{Message: issue.Message, Path: issue.Path}
		}
		return value, &resultshape.ValidationError{
			IssueCause: cause,
			Issues:     issues,
			Response:   resp,
			Msg:        schema.FormatIssues(result.Issues),
		}
	}
	if disableTransform || result.Value == nil {
		return value, nil
	}
	return result.Value, nil
}

// dispatchHooks combines plugin, base, and per-request hooks for event in
// the fixed order (plugin first) and runs them under the effective hook
// dispatch mode.
func dispatchHooks(ctx context.Context, effective Config, pluginHookSet hooks.Set, event hooks.Event, hc *hooks.Context) error {
	hc.Event = event
	fns := hooks.Ordered(pluginHookSet, hooks.Set{}, effective.Hooks, event)
	return hooks.Dispatch(ctx, effective.HookDispatchMode, fns, hc)
}

func serializerOf(effective Config) reqbuild.Serializer {
	if effective.BodySerializer == nil {
		return nil
	}
	return reqbuild.Serializer(effective.BodySerializer)
}

// peekBody returns the already-buffered bytes behind r when r is one of the
// seekable reader types reqbuild.Build produces for in-memory bodies (JSON,
// string, Blob, ArrayBuffer, form-urlencoded). Multipart and caller-supplied
// io.Reader bodies return nil — their bytes fold out of the dedupe
// fingerprint rather than consuming the stream to read them.
func peekBody(r io.Reader) []byte {
	switch v := r.(type) {
	case *bytes.Reader:
		data := make([]byte, v.Len())
		_, _ = v.ReadAt(data, 0)
		return data
	case *strings.Reader:
		data := make([]byte, v.Len())
		_, _ = v.ReadAt(data, 0)
		return data
	default:
		return nil
	}
}

func requestProgressHook(effective Config, ctx context.Context, hc *hooks.Context) streamprogress.OnProgress {
	fns := effective.Hooks.ForEvent(hooks.OnRequestStream)
	if len(fns) == 0 {
		return nil
	}
	return func(ev streamprogress.ProgressEvent) {
		hc.Event = hooks.OnRequestStream
		hc.Data = ev
		_ = hooks.Dispatch(ctx, effective.HookDispatchMode, fns, hc)
	}
}

func responseProgressHook(effective Config, ctx context.Context, hc *hooks.Context) streamprogress.OnProgress {
	fns := effective.Hooks.ForEvent(hooks.OnResponseStream)
	if len(fns) == 0 {
		return nil
	}
	return func(ev streamprogress.ProgressEvent) {
		hc.Event = hooks.OnResponseStream
		hc.Data = ev
		_ = hooks.Dispatch(ctx, effective.HookDispatchMode, fns, hc)
	}
}

func parseResponseBody[T any](resp *http.Response, effective Config) (T, error) {
	var zero T
	data, err := resultshape.ReadBody(resp)
	if err != nil {
		return zero, err
	}
	if effective.ResponseParser != nil {
		v, perr := resultshape.DecodeCustom(data, effective.ResponseParser)
		if perr != nil {
			return zero, perr
		}
		typed, _ := v.(T)
		return typed, nil
	}
	switch effective.ResponseType {
	case ResponseText:
		typed, _ := any(resultshape.AsText(data)).(T)
		return typed, nil
	case ResponseBlob:
		typed, _ := any(resultshape.AsBlob(data)).(T)
		return typed, nil
	case ResponseArrayBuffer:
		typed, _ := any(resultshape.AsArrayBuffer(data)).(T)
		return typed, nil
	case ResponseStream:
		typed, _ := any(resultshape.AsStream(data)).(T)
		return typed, nil
	default:
		return resultshape.DecodeJSON[T](data)
	}
}

func shapeSuccess[TData, TErrorData any](data TData, resp *http.Response) Result[TData, TErrorData] {
	return Result[TData, TErrorData]{Data: &data, Response: resp}
}

// shapeError classifies err and either returns it as a Go error directly
// (when effective.ResultMode is a …WithException mode, or ThrowOnError
// evaluates true against hc) or folds it into a Result's Error/Response
// fields for the caller to inspect.
func shapeError[TData, TErrorData any](effective Config, hc *hooks.Context, err error) (Result[TData, TErrorData], error) {
	classified := resultshape.Classify(err)

	throws := resultshape.ShouldThrow(effective.ResultMode)
	if !throws {
		throws = effective.ThrowOnError.evaluate(hc)
	}
	if throws {
		return Result[TData, TErrorData]{}, classified
	}

	res := Result[TData, TErrorData]{Error: classified}
	switch e := classified.(type) {
	case *resultshape.HTTPError:
		res.Response = e.Response
	case *resultshape.ValidationError:
		res.Response = e.Response
	}
	return res, nil
}
