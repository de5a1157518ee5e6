package routing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy/types"
)

// Failover hands call to each candidate in order until one succeeds.
//
// Algorithm:
//  1. Stop if the caller has gone away or the request deadline has passed
//  2. Dispatch to the next candidate; return its response on success
//  3. Record the failure and move to the next candidate
//  4. When none are left, return an ExhaustedError
func Failover(ctx context.Context, call *pipeline.Call, selector string, candidates []Dispatcher) (*types.Response, error) {
	span := trace.SpanFromContext(ctx)
	attempts := make([]Attempt, 0, len(candidates))
	var lastResp *types.Response
	var lastRespErr, lastErr error

	for i, d := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, ClientClosedError(err)
		}
		if call.Expired() {
			slog.WarnContext(ctx, "request deadline reached during failover",
				"selector", selector,
				"pipeline", call.Pipeline,
				"attempted", len(attempts),
			)
			return nil, pipeline.DeadlineError(call)
		}

		resp, err := d.Dispatch(ctx, call)
		if err == nil {
			if i > 0 {
				span.AddEvent("failover.recovered", trace.WithAttributes(
					attribute.String("aicentral.endpoint", d.Name()),
					attribute.Int("aicentral.attempt", i+1),
				))
			}
			return resp, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ClientClosedError(err)
		}
		if types.CodeOf(err) == types.CodeRequestTimeout {
			slog.WarnContext(ctx, "request deadline reached during failover",
				"selector", selector,
				"pipeline", call.Pipeline,
				"endpoint", d.Name(),
				"attempted", len(attempts)+1,
			)
			return nil, err
		}

		attempt := Attempt{Endpoint: d.Name(), Status: types.StatusOf(err), Err: err}
		var dr types.DownstreamResponder
		if errors.As(err, &dr) && dr.DownstreamResponse() != nil {
			lastResp = dr.DownstreamResponse()
			lastRespErr = err
			attempt.Status = lastResp.StatusCode
		}
		attempts = append(attempts, attempt)
		lastErr = err

		span.AddEvent("failover.attempt_failed", trace.WithAttributes(
			attribute.String("aicentral.endpoint", d.Name()),
			attribute.Int("http.response.status_code", attempt.Status),
			attribute.String("aicentral.error_class", types.ClassOf(err).String()),
		))
		if i < len(candidates)-1 {
			slog.WarnContext(ctx, "endpoint failed, trying another endpoint",
				"selector", selector,
				"pipeline", call.Pipeline,
				"endpoint", d.Name(),
				"status", attempt.Status,
				"error", err,
			)
		}
	}

	exhausted := &ExhaustedError{
		Selector: selector,
		Attempts: attempts,
		Response: lastResp,
		Err:      exhaustionCause(selector, attempts, lastResp, lastRespErr, lastErr),
	}
	slog.ErrorContext(ctx, "failed to handle request, exhausted endpoints",
		"selector", selector,
		"pipeline", call.Pipeline,
		"attempts", len(attempts),
		"status", types.StatusOf(exhausted),
	)
	return nil, exhausted
}

// exhaustionCause classifies an exhausted failover sequence. When some
// endpoint answered, the latest answer is surfaced and classified by the
// attempt that produced it, even if later candidates failed without one.
func exhaustionCause(selector string, attempts []Attempt, lastResp *types.Response, lastRespErr, lastErr error) *types.GatewayError {
	if len(attempts) == 0 {
		return &types.GatewayError{
			Class:   types.ClassTerminal,
			Status:  http.StatusServiceUnavailable,
			Code:    types.CodeEndpointsExhausted,
			Message: "selector " + selector + " has no endpoints",
		}
	}

	if lastResp != nil {
		return &types.GatewayError{
			Class:   types.ClassOf(lastRespErr),
			Status:  lastResp.StatusCode,
			Code:    types.CodeEndpointsExhausted,
			Message: "every endpoint failed; the last downstream response is returned",
			Cause:   lastRespErr,
		}
	}

	notServed := true
	for _, a := range attempts {
		if types.CodeOf(a.Err) != types.CodeModelNotServed {
			notServed = false
			break
		}
	}
	if notServed {
		return &types.GatewayError{
			Class:   types.ClassClient,
			Status:  http.StatusNotFound,
			Code:    types.CodeModelNotServed,
			Message: "no endpoint serves the requested model",
			Cause:   lastErr,
		}
	}

	if len(attempts) == 1 {
		return types.AsGatewayError(lastErr)
	}

	status := types.StatusOf(lastErr)
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
	default:
		status = http.StatusServiceUnavailable
	}
	return &types.GatewayError{
		Class:   types.ClassOf(lastErr),
		Status:  status,
		Code:    types.CodeEndpointsExhausted,
		Message: "no endpoint could handle the request",
		Cause:   lastErr,
	}
}
