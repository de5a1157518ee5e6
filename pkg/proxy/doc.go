// Package proxy contains the gateway's HTTP edge helpers: inbound body
// buffering, header forwarding rules, response materialization and error
// rendering.
//
// # Response Materialization
//
// A pipeline produces either a buffered types.Response or one whose body was
// already streamed to the caller during dispatch. WriteResponse copies a
// buffered response's status, forwardable headers and body to the caller and
// adds the diagnostic headers. For a streamed response it does nothing.
//
// # Error Rendering
//
// WriteError renders any pipeline error. A failure that still carries a
// complete downstream response (see types.DownstreamResponder) is surfaced
// unchanged; every other failure is rendered as an OpenAI-compatible error
// envelope:
//
//	{"error": {"message": "...", "type": "rate_limit_exceeded", "code": "rate_limited"}}
//
// # Header Forwarding
//
// Hop-by-hop headers, Content-Length and Host are never forwarded in either
// direction. Credentials presented by the caller are stripped from outbound
// requests; each endpoint injects its own.
package proxy
