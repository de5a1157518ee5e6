// Package handlers provides the HTTP handlers of the gateway.
//
// GatewayHandler serves every AI call. It routes the request by Host header to
// exactly one pipeline, classifies it, runs the pipeline chain and writes the
// outcome:
//
//  1. Route: an unmatched host is answered with 404 before the body is read
//  2. Classify: the body is buffered once and malformed JSON is rejected
//  3. Execute: auth gate, throttle steps, then the endpoint selector
//  4. Materialize: buffered responses are written with diagnostic headers;
//     streamed responses were already forwarded during dispatch
//
// HealthHandler answers liveness probes. ReadyHandler reports whether any
// pipeline is loaded together with the health of each endpoint.
package handlers
