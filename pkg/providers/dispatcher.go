package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"aicentral-hq/gateway/pkg/classify"
	"aicentral-hq/gateway/pkg/limits/ratelimit"
	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy"
	"aicentral-hq/gateway/pkg/proxy/types"
	"aicentral-hq/gateway/pkg/telemetry"
	"aicentral-hq/gateway/pkg/telemetry/logging"
	"aicentral-hq/gateway/pkg/telemetry/tracing"
)

const tracerName = "aicentral-hq/gateway/pkg/providers"

// maxErrorBody bounds how much of a failed downstream body is buffered.
const maxErrorBody = 1 << 20

// Options describes a Dispatcher.
type Options struct {
	// Name uniquely identifies the endpoint.
	Name string

	// Target builds outbound URLs and bodies for the endpoint kind.
	Target Target

	// Auth injects the endpoint's credentials. Required.
	Auth Authenticator

	// ModelMappings maps requested model names to downstream model or
	// deployment names. Requests for unmapped models are declined.
	ModelMappings map[string]string

	// Policy is the resiliency policy. The zero value uses DefaultPolicy.
	Policy *Policy

	// MaxConcurrency caps in-flight calls. Zero means unlimited.
	MaxConcurrency int64

	// QueueTimeout is how long a call may wait for a concurrency slot.
	// Zero rejects immediately when the cap is reached.
	QueueTimeout time.Duration

	// Client performs HTTP requests. Nil uses a default pooled client.
	Client *http.Client

	// Sink receives one AttemptEvent per downstream attempt.
	Sink telemetry.Sink

	// Now and Sleep are injected by tests. Nil uses the real clock.
	Now   ratelimit.Clock
	Sleep SleepFunc
}

// Dispatcher performs the outbound call to one downstream endpoint with
// model mapping, credential injection and the resiliency policy.
type Dispatcher struct {
	name         string
	target       Target
	auth         Authenticator
	models       map[string]string
	policy       Policy
	breaker      *CircuitBreaker
	sem          *semaphore.Weighted
	queueTimeout time.Duration
	client       *http.Client
	sink         telemetry.Sink
	sleep        SleepFunc
	health       *healthTracker
	tracer       trace.Tracer
}

// New validates opts and creates a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Name == "" {
		return nil, &ConfigError{Field: "name", Message: "endpoint name is required"}
	}
	if opts.Target == nil {
		return nil, &ConfigError{Endpoint: opts.Name, Field: "target", Message: "endpoint kind is required"}
	}
	if opts.Auth == nil {
		return nil, &ConfigError{Endpoint: opts.Name, Field: "auth", Message: "authenticator is required"}
	}
	if opts.MaxConcurrency < 0 || opts.QueueTimeout < 0 {
		return nil, &ConfigError{Endpoint: opts.Name, Field: "max_concurrency", Message: "concurrency limits must not be negative"}
	}

	policy := DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	if err := policy.Validate(); err != nil {
		return nil, &ConfigError{Endpoint: opts.Name, Field: "policy", Message: err.Error()}
	}

	models := make(map[string]string, len(opts.ModelMappings))
	for from, to := range opts.ModelMappings {
		if from == "" || to == "" {
			return nil, &ConfigError{Endpoint: opts.Name, Field: "model_mappings", Message: "model names must not be empty"}
		}
		models[from] = to
	}

	d := &Dispatcher{
		name:         opts.Name,
		target:       opts.Target,
		auth:         opts.Auth,
		models:       models,
		policy:       policy,
		breaker:      NewCircuitBreaker(opts.Name, policy.Breaker, opts.Now),
		queueTimeout: opts.QueueTimeout,
		client:       opts.Client,
		sink:         opts.Sink,
		sleep:        opts.Sleep,
		health:       newHealthTracker(opts.Name),
		tracer:       otel.Tracer(tracerName),
	}
	if opts.MaxConcurrency > 0 {
		d.sem = semaphore.NewWeighted(opts.MaxConcurrency)
	}
	if d.client == nil {
		d.client = NewHTTPClient(DefaultTransportConfig())
	}
	if d.sink == nil {
		d.sink = telemetry.NopSink{}
	}
	if d.sleep == nil {
		d.sleep = sleepContext
	}
	return d, nil
}

// Name returns the endpoint name.
func (d *Dispatcher) Name() string { return d.name }

// Kind returns the endpoint kind.
func (d *Dispatcher) Kind() string { return d.target.Kind() }

// Models returns the requested model names this endpoint serves.
func (d *Dispatcher) Models() []string {
	names := make([]string, 0, len(d.models))
	for name := range d.models {
		names = append(names, name)
	}
	return names
}

// Circuit returns the circuit breaker state.
func (d *Dispatcher) Circuit() CircuitState { return d.breaker.State() }

// Health returns a snapshot of recent dispatch outcomes.
func (d *Dispatcher) Health() Health {
	h := d.health.snapshot()
	h.Circuit = d.breaker.State().String()
	if d.breaker.State() != CircuitClosed {
		h.Healthy = false
	}
	return h
}

// Dispatch sends call to the endpoint.
//
// Algorithm:
//  1. Map the requested model; decline unmapped models without a network call
//  2. Take a concurrency slot, failing fast or waiting up to QueueTimeout
//  3. Ask the circuit breaker for admission
//  4. Send with retries, each attempt bounded by the attempt timeout
//  5. Report the final outcome to the breaker and health tracker
func (d *Dispatcher) Dispatch(ctx context.Context, call *pipeline.Call) (*types.Response, error) {
	start := time.Now()

	model, err := d.mapModel(call.Details)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithEndpoint(ctx, d.name)
	ctx, span := d.tracer.Start(ctx, "endpoint.dispatch", trace.WithAttributes(
		attribute.String(tracing.AttrEndpoint, d.name),
		attribute.String(tracing.AttrEndpointKind, d.target.Kind()),
		attribute.String(tracing.AttrModel, model),
	))
	defer span.End()

	release, err := d.acquire(ctx, call)
	if err != nil {
		tracing.SetError(span, err)
		return nil, err
	}
	defer release()

	if err := d.breaker.Allow(); err != nil {
		tracing.SetError(span, err)
		return nil, err
	}

	resp, err := d.send(ctx, call, model)
	d.recordOutcome(ctx, err)

	if resp != nil {
		resp.Duration = time.Since(start)
	}
	var dsErr *DownstreamError
	if errors.As(err, &dsErr) {
		dsErr.Response.Duration = time.Since(start)
	}

	if err != nil {
		tracing.SetError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int(tracing.AttrHTTPStatusCode, resp.StatusCode),
		attribute.Bool(tracing.AttrStreamed, resp.Streamed),
	)
	tracing.SetUsageAttributes(span, resp.Usage)
	return resp, nil
}

// mapModel resolves the downstream model for a call. A parsed call must
// name a mapped model; an unparsed call without a model is forwarded as is.
func (d *Dispatcher) mapModel(details classify.CallDetails) (string, error) {
	if details.Model == "" {
		if details.BodyParsed() {
			return "", &ModelNotServedError{Endpoint: d.name}
		}
		return "", nil
	}
	mapped, ok := d.models[details.Model]
	if !ok {
		return "", &ModelNotServedError{Endpoint: d.name, Model: details.Model}
	}
	return mapped, nil
}

// acquire takes a concurrency slot and returns its release function. The
// wait for a slot never outlasts the request deadline.
func (d *Dispatcher) acquire(ctx context.Context, call *pipeline.Call) (func(), error) {
	if d.sem == nil {
		return func() {}, nil
	}

	if d.queueTimeout <= 0 {
		if !d.sem.TryAcquire(1) {
			return nil, d.busy()
		}
		return func() { d.sem.Release(1) }, nil
	}

	wait := d.queueTimeout
	remaining, bounded := call.Remaining()
	byDeadline := bounded && remaining < wait
	if byDeadline {
		wait = remaining
	}

	queueCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := d.sem.Acquire(queueCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("endpoint %q: %w", d.name, ctxErr)
		}
		if byDeadline {
			return nil, pipeline.DeadlineError(call)
		}
		return nil, d.busy()
	}
	return func() { d.sem.Release(1) }, nil
}

func (d *Dispatcher) busy() error {
	return types.NewCapacityError(http.StatusServiceUnavailable, types.CodeBulkheadFull,
		fmt.Sprintf("endpoint %q is at its concurrency limit", d.name))
}

// recordOutcome reports a finished dispatch to the breaker and health
// tracker. A dispatch abandoned by the caller has no outcome, and neither
// has one that failed before anything was sent to the endpoint.
func (d *Dispatcher) recordOutcome(ctx context.Context, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil && errors.Is(err, ctxErr) {
		d.breaker.Cancel()
		return
	}
	if !reachedEndpoint(err) {
		d.breaker.Cancel()
		return
	}
	failure := countsAgainstEndpoint(err)
	d.breaker.Record(failure)
	d.health.record(!failure, err)
}

// reachedEndpoint reports whether a dispatch got as far as the endpoint.
// Credential and request-building failures never did.
func reachedEndpoint(err error) bool {
	if err == nil {
		return true
	}
	var dsErr *DownstreamError
	var transportErr *TransportError
	var timeoutErr *TimeoutError
	return errors.As(err, &dsErr) || errors.As(err, &transportErr) || errors.As(err, &timeoutErr)
}

// countsAgainstEndpoint reports whether err reflects on the endpoint's
// health, as opposed to the caller or the gateway.
func countsAgainstEndpoint(err error) bool {
	if err == nil {
		return false
	}
	var dsErr *DownstreamError
	if errors.As(err, &dsErr) {
		return breakerFailure(dsErr.Response.StatusCode)
	}
	var transportErr *TransportError
	var timeoutErr *TimeoutError
	return errors.As(err, &transportErr) || errors.As(err, &timeoutErr)
}

// send runs the retry loop.
func (d *Dispatcher) send(ctx context.Context, call *pipeline.Call, model string) (*types.Response, error) {
	target, body, err := d.target.Outbound(call, model)
	if err != nil {
		return nil, fmt.Errorf("endpoint %q: failed to build request: %w", d.name, err)
	}

	var lastErr error
	for attempt := 0; attempt <= d.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := d.policy.backoff(attempt, retryAfterOf(lastErr))
			if remaining, ok := call.Remaining(); ok && delay >= remaining {
				slog.WarnContext(ctx, "not retrying, backoff exceeds request deadline",
					"endpoint", d.name,
					"attempt", attempt,
					"backoff", delay,
				)
				break
			}

			slog.WarnContext(ctx, "retrying endpoint request",
				"endpoint", d.name,
				"attempt", attempt,
				"max_retries", d.policy.MaxRetries,
				"backoff", delay,
				"error", lastErr,
			)
			if err := d.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("endpoint %q: %w", d.name, err)
			}
		}

		started := time.Now()
		resp, err := d.attempt(ctx, call, target, body, model)
		d.recordAttempt(ctx, call, attempt+1, started, resp, err)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if ctx.Err() != nil || !d.retryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// retryable reports whether a failed attempt may be retried locally.
func (d *Dispatcher) retryable(err error) bool {
	var dsErr *DownstreamError
	if errors.As(err, &dsErr) {
		return dsErr.Retryable
	}
	var transportErr *TransportError
	var timeoutErr *TimeoutError
	return errors.As(err, &transportErr) || errors.As(err, &timeoutErr)
}

func retryAfterOf(err error) time.Duration {
	var dsErr *DownstreamError
	if errors.As(err, &dsErr) {
		return dsErr.RetryAfter
	}
	return 0
}

// attempt performs one HTTP exchange. The attempt timeout covers the whole
// exchange for buffered responses and only the wait for headers when the
// response is streamed.
func (d *Dispatcher) attempt(ctx context.Context, call *pipeline.Call, target string, body []byte, model string) (*types.Response, error) {
	timeout := d.policy.Timeout
	if remaining, ok := call.Remaining(); ok && remaining < timeout {
		timeout = remaining
	}
	if timeout <= 0 {
		return nil, pipeline.DeadlineError(call)
	}

	ctx, span := d.tracer.Start(ctx, "endpoint.attempt", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var timedOut atomic.Bool
	timer := time.AfterFunc(timeout, func() {
		timedOut.Store(true)
		cancel()
	})
	defer timer.Stop()

	req, err := http.NewRequestWithContext(attemptCtx, call.Request.Method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("endpoint %q: failed to create request: %w", d.name, err)
	}
	proxy.CopyRequestHeaders(req.Header, call.Request.Header)
	req.ContentLength = int64(len(body))

	if err := d.auth.Apply(attemptCtx, call, req); err != nil {
		return nil, d.authFailure(ctx, call, err, timedOut.Load())
	}
	tracing.Inject(attemptCtx, req.Header)

	span.SetAttributes(
		attribute.String(tracing.AttrHTTPMethod, req.Method),
		attribute.String(tracing.AttrServerAddress, req.URL.Host),
	)

	slog.DebugContext(ctx, "sending request to endpoint",
		"endpoint", d.name,
		"method", req.Method,
		"url", req.URL.Redacted(),
	)

	httpResp, err := d.client.Do(req)
	if err != nil {
		return nil, d.transportFailure(ctx, err, timedOut.Load(), timeout)
	}
	defer httpResp.Body.Close()
	span.SetAttributes(attribute.Int(tracing.AttrHTTPStatusCode, httpResp.StatusCode))

	resp := &types.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		EndpointID: d.name,
		Model:      model,
	}

	if resp.Success() && call.Details.Stream && isEventStream(httpResp.Header) {
		timer.Stop()
		d.stream(ctx, call, resp, httpResp.Body)
		return resp, nil
	}

	var reader io.Reader = httpResp.Body
	if !resp.Success() {
		reader = io.LimitReader(httpResp.Body, maxErrorBody)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, d.transportFailure(ctx, err, timedOut.Load(), timeout)
	}
	resp.Body = data

	if !resp.Success() {
		return nil, &DownstreamError{
			Endpoint:   d.name,
			Response:   resp,
			Retryable:  d.policy.retryableStatus(resp.StatusCode),
			RetryAfter: parseRetryAfter(httpResp.Header.Get("Retry-After")),
		}
	}

	resp.Usage = parseUsage(data)
	return resp, nil
}

// stream copies a server-sent event response to the caller as it arrives.
// Once the first byte is written the call can no longer fail over, so a
// broken stream is logged and the response is still reported as served.
func (d *Dispatcher) stream(ctx context.Context, call *pipeline.Call, resp *types.Response, body io.Reader) {
	resp.Streamed = true
	proxy.BeginStream(call.Writer, call, resp)

	n, err := io.Copy(proxy.FlushWriter{W: call.Writer}, body)
	if err != nil {
		slog.WarnContext(ctx, "streamed response interrupted",
			"endpoint", d.name,
			"bytes", n,
			"error", err,
		)
		return
	}
	slog.DebugContext(ctx, "streamed response completed",
		"endpoint", d.name,
		"bytes", n,
	)
}

// transportFailure classifies a failed exchange.
func (d *Dispatcher) transportFailure(ctx context.Context, err error, timedOut bool, timeout time.Duration) error {
	if timedOut {
		return &TimeoutError{Endpoint: d.name, Timeout: timeout}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("endpoint %q: %w", d.name, ctxErr)
	}
	return &TransportError{Endpoint: d.name, Cause: err}
}

// authFailure classifies a credential injection failure. Gateway errors,
// such as a missing caller token for pass-through, are returned as is.
func (d *Dispatcher) authFailure(ctx context.Context, call *pipeline.Call, err error, timedOut bool) error {
	var gwErr *types.GatewayError
	if errors.As(err, &gwErr) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("endpoint %q: %w", d.name, ctxErr)
	}
	if timedOut && call.Expired() {
		return pipeline.DeadlineError(call)
	}
	return &AuthError{Endpoint: d.name, Cause: err}
}

func (d *Dispatcher) recordAttempt(ctx context.Context, call *pipeline.Call, attempt int, started time.Time, resp *types.Response, err error) {
	ev := telemetry.AttemptEvent{
		Pipeline: call.Pipeline,
		Endpoint: d.name,
		Attempt:  attempt,
		Duration: time.Since(started),
		Err:      err,
	}
	if err == nil {
		ev.Status = resp.StatusCode
		ev.Outcome = telemetry.OutcomeSuccess
	} else {
		ev.Status = types.StatusOf(err)
		ev.Outcome = types.ClassOf(err).String()
		ev.Code = types.CodeOf(err)
	}
	d.sink.RecordAttempt(ctx, ev)
}

func isEventStream(h http.Header) bool {
	mediaType, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && mediaType == "text/event-stream"
}

// parseUsage reads OpenAI-style token usage from a JSON response body.
func parseUsage(body []byte) *types.Usage {
	if !gjson.ValidBytes(body) {
		return nil
	}
	usage := gjson.GetBytes(body, "usage")
	if !usage.Exists() {
		return nil
	}
	return &types.Usage{
		PromptTokens:     int(usage.Get("prompt_tokens").Int()),
		CompletionTokens: int(usage.Get("completion_tokens").Int()),
		TotalTokens:      int(usage.Get("total_tokens").Int()),
	}
}
