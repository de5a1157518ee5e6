// Package pipeline implements the per-host request chain of the gateway.
//
// A Pipeline runs a fixed sequence for each request: its auth gate, each
// configured step in order, then its endpoint selector. Every step receives
// the Call and a continuation; it may reject, or call the continuation and
// return whatever the rest of the chain produced. Pipelines are immutable once
// built and are shared by all requests; reconfiguration builds a new Router
// and swaps it into a Set.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"aicentral-hq/gateway/pkg/proxy/types"
	"aicentral-hq/gateway/pkg/telemetry"
	"aicentral-hq/gateway/pkg/telemetry/logging"
	"aicentral-hq/gateway/pkg/telemetry/tracing"
)

const tracerName = "aicentral-hq/gateway/pkg/pipeline"

// Next is the continuation handed to each step.
type Next func(ctx context.Context, call *Call) (*types.Response, error)

// Step is one element of a pipeline chain. Auth gates and throttling steps
// are both Steps.
type Step interface {
	// Name identifies the step in logs and diagnostics.
	Name() string

	// Handle processes the call and either returns early or invokes next.
	Handle(ctx context.Context, call *Call, next Next) (*types.Response, error)
}

// Selector is the terminal element of a chain. It chooses the endpoint that
// serves the call.
type Selector interface {
	Name() string
	Handle(ctx context.Context, call *Call) (*types.Response, error)
}

// StepFunc adapts a function to the Step interface.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context, call *Call, next Next) (*types.Response, error)
}

// Name implements Step.
func (s StepFunc) Name() string { return s.StepName }

// Handle implements Step.
func (s StepFunc) Handle(ctx context.Context, call *Call, next Next) (*types.Response, error) {
	return s.Fn(ctx, call, next)
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(ctx context.Context, call *Call) (*types.Response, error)

// Name implements Selector.
func (f SelectorFunc) Name() string { return "func" }

// Handle implements Selector.
func (f SelectorFunc) Handle(ctx context.Context, call *Call) (*types.Response, error) {
	return f(ctx, call)
}

// Options describes a Pipeline.
type Options struct {
	// Name uniquely identifies the pipeline.
	Name string

	// Host is the inbound Host header value bound to this pipeline.
	Host string

	// Auth is the caller authentication gate. Required.
	Auth Step

	// Steps run after Auth in the given order.
	Steps []Step

	// Selector chooses the endpoint. Required.
	Selector Selector

	// RequestTimeout bounds the whole request including failover across
	// endpoints. Zero disables the overall deadline.
	RequestTimeout time.Duration

	// Sink receives one RequestEvent per request. Nil discards events.
	Sink telemetry.Sink
}

// Pipeline is an immutable, host-bound processing chain.
type Pipeline struct {
	name           string
	host           string
	chain          []Step
	selector       Selector
	requestTimeout time.Duration
	sink           telemetry.Sink
	tracer         trace.Tracer
}

// New validates opts and builds a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Name == "" {
		return nil, errors.New("pipeline name is required")
	}
	if opts.Host == "" {
		return nil, fmt.Errorf("pipeline %q: host is required", opts.Name)
	}
	if opts.Auth == nil {
		return nil, fmt.Errorf("pipeline %q: auth gate is required", opts.Name)
	}
	if opts.Selector == nil {
		return nil, fmt.Errorf("pipeline %q: endpoint selector is required", opts.Name)
	}
	if opts.RequestTimeout < 0 {
		return nil, fmt.Errorf("pipeline %q: request timeout must not be negative", opts.Name)
	}

	chain := make([]Step, 0, len(opts.Steps)+1)
	chain = append(chain, opts.Auth)
	for i, step := range opts.Steps {
		if step == nil {
			return nil, fmt.Errorf("pipeline %q: step %d is nil", opts.Name, i)
		}
		chain = append(chain, step)
	}

	sink := opts.Sink
	if sink == nil {
		sink = telemetry.NopSink{}
	}

	return &Pipeline{
		name:           opts.Name,
		host:           opts.Host,
		chain:          chain,
		selector:       opts.Selector,
		requestTimeout: opts.RequestTimeout,
		sink:           sink,
		tracer:         otel.Tracer(tracerName),
	}, nil
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Host returns the bound host.
func (p *Pipeline) Host() string { return p.host }

// Selector returns the endpoint selector.
func (p *Pipeline) Selector() Selector { return p.selector }

// StepNames returns the chain's step names in execution order, auth first.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.chain))
	for i, s := range p.chain {
		names[i] = s.Name()
	}
	return names
}

// Execute runs the chain for one call and returns its terminal outcome
// unchanged.
func (p *Pipeline) Execute(ctx context.Context, call *Call) (*types.Response, error) {
	call.Pipeline = p.name
	if p.requestTimeout > 0 {
		call.deadline = call.Started.Add(p.requestTimeout)
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.execute", trace.WithAttributes(
		attribute.String(tracing.AttrPipeline, p.name),
		attribute.String(tracing.AttrCallType, call.Details.CallType.String()),
		attribute.String(tracing.AttrModel, call.Details.Model),
	))
	defer span.End()

	resp, err := p.next(0)(ctx, call)

	p.record(ctx, call, resp, err)
	if err != nil {
		tracing.SetError(span, err)
	} else {
		span.SetAttributes(
			attribute.String(tracing.AttrEndpoint, resp.EndpointID),
			attribute.Int(tracing.AttrHTTPStatusCode, resp.StatusCode),
		)
		tracing.SetUsageAttributes(span, resp.Usage)
	}
	return resp, err
}

// next returns the continuation that runs the chain from index i.
func (p *Pipeline) next(i int) Next {
	if i == len(p.chain) {
		return p.selector.Handle
	}
	step := p.chain[i]
	return func(ctx context.Context, call *Call) (*types.Response, error) {
		return step.Handle(ctx, call, p.next(i+1))
	}
}

func (p *Pipeline) record(ctx context.Context, call *Call, resp *types.Response, err error) {
	ev := telemetry.RequestEvent{
		RequestID: logging.GetRequestID(ctx),
		Pipeline:  p.name,
		CallType:  call.Details.CallType.String(),
		Model:     call.Details.Model,
		Duration:  time.Since(call.Started),
	}
	if err != nil {
		ev.Status = types.StatusOf(err)
		ev.Outcome = types.ClassOf(err).String()
		ev.Code = types.CodeOf(err)
		var dr types.DownstreamResponder
		if errors.As(err, &dr) && dr.DownstreamResponse() != nil {
			ev.Endpoint = dr.DownstreamResponse().EndpointID
		}
	} else {
		ev.Status = resp.StatusCode
		ev.Outcome = telemetry.OutcomeSuccess
		ev.Endpoint = resp.EndpointID
		ev.Streamed = resp.Streamed
		ev.Usage = resp.Usage
	}
	p.sink.RecordRequest(ctx, ev)
}

// DeadlineError is returned when the overall request deadline expires before
// an endpoint produced a response.
func DeadlineError(call *Call) *types.GatewayError {
	return &types.GatewayError{
		Class:   types.ClassTransient,
		Status:  http.StatusGatewayTimeout,
		Code:    types.CodeRequestTimeout,
		Message: fmt.Sprintf("pipeline %q did not obtain a response before the request deadline", call.Pipeline),
	}
}
