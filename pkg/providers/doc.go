// Package providers implements the endpoint dispatcher: the outbound call
// from the gateway to one downstream AI endpoint.
//
// # Overview
//
// A Dispatcher owns everything about one endpoint: its kind (see the azure
// and openai subpackages), its model mappings, the credentials it injects
// and its resiliency state. Selectors in package routing hand it calls and
// move on to another dispatcher when it fails.
//
// # Model Mapping
//
// A call for a model the endpoint does not map fails with
// ModelNotServedError before any network activity. Calls that carry no
// parsed body and name no model (image polling, for example) are forwarded
// without mapping.
//
// # Credentials
//
// Three Authenticators are provided:
//
//   - HeaderAuth: fixed headers, such as an Azure "api-key"
//   - BearerAuth: OAuth client credentials cached until shortly before
//     expiry; concurrent refreshes collapse into one token request
//   - PassthroughAuth: forwards the caller's own bearer token
//
// # Resiliency
//
// Each dispatch runs inside three layers, outermost first:
//
//  1. Circuit breaker: tracks the failure ratio of whole dispatches over a
//     rolling window and rejects calls while open
//  2. Retry: retries retryable statuses (HTTP 429 by default), transport
//     failures and timeouts with exponential backoff
//  3. Timeout: bounds each attempt, and never extends past the request
//     deadline
//
// An optional concurrency cap either fails fast or queues briefly.
//
// # Error Handling
//
// Every failure is a classified error (see types.ClassOf):
//
//   - ModelNotServedError: client, 404
//   - DownstreamError: a complete non-2xx response, surfaced unchanged
//   - CircuitOpenError: capacity, 503
//   - TransportError and AuthError: transient, 502
//   - TimeoutError: transient, 504
//
// # Streaming
//
// A "stream": true call whose successful response is text/event-stream is
// copied to the caller as chunks arrive. The returned Response is marked
// Streamed and has no body.
//
// # Thread Safety
//
// Dispatchers are safe for concurrent use and are shared by all requests.
package providers
